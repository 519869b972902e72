package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fkgruber/mlrose-ky/internal/store"
	"github.com/google/uuid"
)

// JobState is the lifecycle phase of a training job.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// JobConfig is the training request a job runs. It is the same shape the
// store persists with each artifact.
type JobConfig = store.TrainConfig

// Job is one background training run and its accumulated results.
type Job struct {
	ID     string    `json:"id"`
	State  JobState  `json:"state"`
	Config JobConfig `json:"config"`

	// Fitted state, populated as training progresses and finalized on
	// completion. Weights decode against NodeList.
	Weights          []float64 `json:"weights,omitempty"`
	NodeList         []int     `json:"nodeList,omitempty"`
	OutputActivation string    `json:"outputActivation,omitempty"`
	Loss             float64   `json:"loss"`
	Iterations       int       `json:"iterations"`
	Curve            []float64 `json:"-"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// JobManager tracks jobs, their cancel handles and the progress
// broadcaster. All methods are safe for concurrent use; job fields must
// only be touched through UpdateJob once a worker is running.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	broadcaster *EventBroadcaster
}

func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job for config under a fresh UUID.
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.mu.Lock()
	jm.jobs[job.ID] = job
	jm.mu.Unlock()
	return job
}

// GetJob looks a job up by ID.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	job, ok := jm.jobs[id]
	return job, ok
}

// ListJobs returns every known job in unspecified order.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// UpdateJob mutates a job under the manager lock.
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, ok := jm.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	updateFn(job)
	return nil
}

// GetRunningJobs returns the jobs currently training.
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	running := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			running = append(running, job)
		}
	}
	return running
}

// RegisterCancel associates a cancel function with a job so CancelJob can
// reach its worker. The registration is dropped when the worker finishes.
func (jm *JobManager) RegisterCancel(id string, cancel context.CancelFunc) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.cancels[id] = cancel
}

// CancelJob requests cancellation of a pending or running job. The worker
// notices on its next iteration and finishes with the best state so far.
func (jm *JobManager) CancelJob(id string) error {
	jm.mu.Lock()
	job, ok := jm.jobs[id]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("job not found: %s", id)
	}
	if job.State != StatePending && job.State != StateRunning {
		jm.mu.Unlock()
		return fmt.Errorf("job %s is already %s", id, job.State)
	}
	cancel := jm.cancels[id]
	jm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// clearCancel removes a job's cancel registration once the worker is done.
func (jm *JobManager) clearCancel(id string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	delete(jm.cancels, id)
}
