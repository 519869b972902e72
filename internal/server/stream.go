package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ProgressEvent is one training progress update pushed to SSE clients.
type ProgressEvent struct {
	JobID      string    `json:"jobId"`
	State      JobState  `json:"state"`
	Iterations int       `json:"iterations"`
	Loss       float64   `json:"loss"`
	IPS        float64   `json:"ips"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventBroadcaster fans progress events out to the SSE subscribers of each
// job. The most recent event per job is retained so a client connecting
// mid-run sees the current progress immediately.
type EventBroadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[chan ProgressEvent]struct{}
	latest map[string]ProgressEvent
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		subs:   make(map[string]map[chan ProgressEvent]struct{}),
		latest: make(map[string]ProgressEvent),
	}
}

// Subscribe registers a new listener for a job and returns its channel.
// The channel is buffered; a subscriber that stops draining loses events
// rather than stalling the worker.
func (eb *EventBroadcaster) Subscribe(jobID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, 10)
	set := eb.subs[jobID]
	if set == nil {
		set = make(map[chan ProgressEvent]struct{})
		eb.subs[jobID] = set
	}
	set[ch] = struct{}{}

	if ev, ok := eb.latest[jobID]; ok {
		ch <- ev // buffer is empty, cannot block
	}

	slog.Debug("sse subscriber added", "job_id", jobID, "subscribers", len(set))
	return ch
}

// Unsubscribe drops a listener and closes its channel.
func (eb *EventBroadcaster) Unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	set, ok := eb.subs[jobID]
	if !ok {
		return
	}
	if _, member := set[ch]; !member {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(eb.subs, jobID)
	}
	slog.Debug("sse subscriber removed", "job_id", jobID)
}

// Broadcast delivers an event to every subscriber of its job and caches it
// for late joiners. Full subscriber channels are skipped.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.latest[event.JobID] = event
	for ch := range eb.subs[event.JobID] {
		select {
		case ch <- event:
		default:
			slog.Warn("sse subscriber lagging, event dropped", "job_id", event.JobID)
		}
	}
}

// CleanupJob closes every subscriber channel of a job and forgets its
// cached event.
func (eb *EventBroadcaster) CleanupJob(jobID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.subs[jobID] {
		close(ch)
	}
	delete(eb.subs, jobID)
	delete(eb.latest, jobID)
}

// sse keep-alive comment interval.
const ssePingInterval = 30 * time.Second

// handleJobStream serves GET /api/v1/jobs/:id/stream as a server-sent
// event stream. The stream opens with a snapshot of the job's current
// state and ends when the job reaches a terminal state or the client goes
// away; clients fetch final results over the REST endpoints.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	events := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, events)

	snapshot := ProgressEvent{
		JobID:      job.ID,
		State:      job.State,
		Iterations: job.Iterations,
		Loss:       job.Loss,
		Timestamp:  time.Now(),
	}
	if err := writeSSEEvent(w, snapshot); err != nil {
		slog.Error("sse snapshot write failed", "job_id", jobID, "error", err)
		return
	}
	flusher.Flush()

	ping := time.NewTicker(ssePingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("sse client went away", "job_id", jobID)
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeSSEEvent(w, ev); err != nil {
				slog.Error("sse event write failed", "job_id", jobID, "error", err)
				return
			}
			flusher.Flush()
			if ev.State == StateCompleted || ev.State == StateFailed || ev.State == StateCancelled {
				return
			}
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent emits one event as a "data: <json>" frame.
func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
