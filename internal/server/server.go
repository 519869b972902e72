package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fkgruber/mlrose-ky/internal/store"
)

// Server runs training jobs behind a REST API plus HTML pages, with live
// progress on an SSE stream per job.
type Server struct {
	jobManager *JobManager
	modelStore store.Store
	addr       string
	server     *http.Server
}

// NewServer builds a server listening on addr. Completed jobs are
// persisted to modelStore; pass nil to keep results in memory only.
func NewServer(addr string, modelStore store.Store) *Server {
	return &Server{
		jobManager: NewJobManager(),
		modelStore: modelStore,
		addr:       addr,
	}
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Browser pages
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/jobs/", s.handleJobDetail)
	mux.HandleFunc("/create", s.handleCreatePage)

	// REST API
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.loggingMiddleware(s.corsMiddleware(mux)),
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the listener and waits for in-flight requests up to the
// context deadline. Running jobs are not interrupted.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleJobs dispatches the /api/v1/jobs collection endpoint.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID dispatches /api/v1/jobs/:id and its subresources:
// status, model, curve and stream. DELETE on the bare ID cancels the job.
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}
	jobID := parts[0]

	if r.Method == http.MethodDelete {
		if len(parts) == 1 {
			s.handleCancelJob(w, r, jobID)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sub := "status"
	if len(parts) > 1 {
		sub = parts[1]
	}
	switch sub {
	case "status":
		s.handleGetJobStatus(w, r, jobID)
	case "model":
		s.handleGetJobModel(w, r, jobID)
	case "curve":
		s.handleGetJobCurve(w, r, jobID)
	case "stream":
		s.handleJobStream(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob accepts a training config, spawns a worker for it and
// answers 201 with the pending job.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var config JobConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	applyConfigDefaults(&config)
	if err := validateConfig(&config); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(config)

	ctx, cancel := context.WithCancel(context.Background())
	s.jobManager.RegisterCancel(job.ID, cancel)
	go runJob(ctx, s.jobManager, s.modelStore, job.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.jobManager.ListJobs())
}

// handleGetJobStatus reports a job's state plus derived timing figures.
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	response := map[string]interface{}{
		"id":         job.ID,
		"state":      job.State,
		"config":     job.Config,
		"loss":       job.Loss,
		"iterations": job.Iterations,
		"elapsed":    elapsed.Seconds(),
		"ips":        throughput(job.Iterations, elapsed),
		"startTime":  job.StartTime,
		"endTime":    job.EndTime,
		"error":      job.Error,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleGetJobModel serves the fitted model of a finished job as a store
// artifact.
func (s *Server) handleGetJobModel(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if len(job.Weights) == 0 {
		// Weights only exist once the search has finished.
		http.Error(w, "No model yet", http.StatusNotFound)
		return
	}

	artifact := store.NewModelArtifact(job.ID, job.Weights, job.NodeList,
		job.OutputActivation, job.Loss, job.Iterations, job.Config)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(artifact)
}

// handleGetJobCurve serves the fitness history recorded so far. The curve
// is copied under the manager lock because the worker appends to it.
func (s *Server) handleGetJobCurve(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	var curve []float64
	s.jobManager.UpdateJob(jobID, func(j *Job) {
		curve = append(curve, j.Curve...)
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":    job.ID,
		"curve": curve,
	})
}

// handleCancelJob asks a job's worker to stop. Terminal jobs answer 409.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := s.jobManager.CancelJob(jobID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Job not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusConflict)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"id": jobID, "state": "cancelling"})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
