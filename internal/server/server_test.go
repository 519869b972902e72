package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/fkgruber/mlrose-ky/internal/store"
)

func TestServer_CreateJob(t *testing.T) {
	tmpDir := t.TempDir()
	dataPath := filepath.Join(tmpDir, "test.csv")
	createTestCSV(t, dataPath)

	s := NewServer(":8080", nil)

	// A slow search keeps the job observable while we assert
	config := JobConfig{
		DataPath:    dataPath,
		Algorithm:   "genetic_alg",
		HiddenNodes: []int{4},
		Classifier:  true,
		Bias:        true,
		MaxIters:    100000,
		PopSize:     200,
		Seed:        42,
	}

	body, _ := json.Marshal(config)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	// The worker starts right away, so the job is pending or running
	if job.State != StatePending && job.State != StateRunning {
		t.Errorf("Expected pending or running state, got %s", job.State)
	}

	// Defaults should have been applied before the job was stored
	stored, _ := s.jobManager.GetJob(job.ID)
	if stored.Config.Activation != "relu" {
		t.Errorf("Expected relu default, got %s", stored.Config.Activation)
	}
	if stored.Config.LearningRate != 0.1 {
		t.Errorf("Expected learning rate default 0.1, got %v", stored.Config.LearningRate)
	}

	// Stop the background worker
	s.jobManager.CancelJob(job.ID)
}

func TestServer_CreateJob_MissingDataPath(t *testing.T) {
	s := NewServer(":8080", nil)

	body, _ := json.Marshal(JobConfig{Algorithm: "random_hill_climb"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestServer_CreateJob_InvalidJSON(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestServer_ListJobs(t *testing.T) {
	s := NewServer(":8080", nil)

	// Create two jobs without workers
	s.jobManager.CreateJob(JobConfig{DataPath: "a.csv"})
	s.jobManager.CreateJob(JobConfig{DataPath: "b.csv"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()

	s.handleListJobs(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var jobs []*Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestServer_GetJobStatus(t *testing.T) {
	s := NewServer(":8080", nil)

	job := s.jobManager.CreateJob(JobConfig{DataPath: "test.csv", Algorithm: "random_hill_climb"})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/status", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobStatus(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["id"] != job.ID {
		t.Error("Response should contain job ID")
	}

	if response["state"] != string(StatePending) {
		t.Errorf("Expected pending state, got %v", response["state"])
	}
}

func TestServer_GetJobStatus_NotFound(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/status", nil)
	w := httptest.NewRecorder()

	s.handleGetJobStatus(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_GetJobModel(t *testing.T) {
	tmpDir := t.TempDir()
	dataPath := filepath.Join(tmpDir, "test.csv")
	createTestCSV(t, dataPath)

	s := NewServer(":8080", nil)

	job := s.jobManager.CreateJob(JobConfig{
		DataPath:     dataPath,
		Algorithm:    "random_hill_climb",
		HiddenNodes:  []int{2},
		Activation:   "relu",
		Classifier:   true,
		Bias:         true,
		MaxIters:     10,
		MaxAttempts:  10,
		LearningRate: 0.1,
		Seed:         42,
	})

	// Train to completion before asking for the model
	if err := runJob(context.Background(), s.jobManager, nil, job.ID); err != nil {
		t.Fatalf("Job failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/model", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobModel(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var artifact store.ModelArtifact
	if err := json.NewDecoder(w.Body).Decode(&artifact); err != nil {
		t.Fatalf("Failed to decode artifact: %v", err)
	}

	if artifact.ModelID != job.ID {
		t.Errorf("Expected model ID %s, got %s", job.ID, artifact.ModelID)
	}
	if len(artifact.Weights) == 0 {
		t.Error("Artifact should contain weights")
	}
	if err := artifact.Validate(); err != nil {
		t.Errorf("Artifact should validate: %v", err)
	}
}

func TestServer_GetJobModel_NotReady(t *testing.T) {
	s := NewServer(":8080", nil)

	job := s.jobManager.CreateJob(JobConfig{DataPath: "test.csv"})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/model", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobModel(w, req, job.ID)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unfitted job, got %d", w.Code)
	}
}

func TestServer_GetJobCurve(t *testing.T) {
	tmpDir := t.TempDir()
	dataPath := filepath.Join(tmpDir, "test.csv")
	createTestCSV(t, dataPath)

	s := NewServer(":8080", nil)

	job := s.jobManager.CreateJob(JobConfig{
		DataPath:     dataPath,
		Algorithm:    "random_hill_climb",
		Classifier:   true,
		Bias:         true,
		MaxIters:     10,
		MaxAttempts:  10,
		LearningRate: 0.1,
		Seed:         42,
	})

	if err := runJob(context.Background(), s.jobManager, nil, job.ID); err != nil {
		t.Fatalf("Job failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/curve", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobCurve(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		ID    string    `json:"id"`
		Curve []float64 `json:"curve"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.ID != job.ID {
		t.Errorf("Expected id %s, got %s", job.ID, response.ID)
	}
	if len(response.Curve) == 0 {
		t.Error("Curve should not be empty after a completed run")
	}
}

func TestServer_CancelJob(t *testing.T) {
	s := NewServer(":8080", nil)

	job := s.jobManager.CreateJob(JobConfig{DataPath: "test.csv"})
	ctx, cancel := context.WithCancel(context.Background())
	s.jobManager.RegisterCancel(job.ID, cancel)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+job.ID, nil)
	w := httptest.NewRecorder()

	s.handleJobsWithID(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Code)
	}

	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("Cancel should have fired the context")
	}
}

func TestServer_CancelJob_NotFound(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/nonexistent", nil)
	w := httptest.NewRecorder()

	s.handleJobsWithID(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_CancelJob_Finished(t *testing.T) {
	s := NewServer(":8080", nil)

	job := s.jobManager.CreateJob(JobConfig{DataPath: "test.csv"})
	s.jobManager.UpdateJob(job.ID, func(j *Job) {
		j.State = StateCompleted
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+job.ID, nil)
	w := httptest.NewRecorder()

	s.handleJobsWithID(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestServer_JobsWithID_UnknownSubpath(t *testing.T) {
	s := NewServer(":8080", nil)

	job := s.jobManager.CreateJob(JobConfig{DataPath: "test.csv"})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/bogus", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleJobsWithID(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_Jobs_MethodNotAllowed(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()

	s.handleJobs(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestServer_Integration(t *testing.T) {
	// Skip in short mode
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tmpDir := t.TempDir()
	dataPath := filepath.Join(tmpDir, "test.csv")
	createTestCSV(t, dataPath)

	s := NewServer("localhost:0", nil)
	srv := httptest.NewServer(s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/jobs" && r.Method == http.MethodPost {
			s.handleCreateJob(w, r)
		} else if r.URL.Path == "/api/v1/jobs" && r.Method == http.MethodGet {
			s.handleListJobs(w, r)
		} else {
			s.handleJobsWithID(w, r)
		}
	})))
	defer srv.Close()

	// Create job
	config := JobConfig{
		DataPath:    dataPath,
		Algorithm:   "gradient_descent",
		HiddenNodes: []int{2},
		Classifier:  true,
		Bias:        true,
		MaxIters:    20,
		Seed:        42,
	}

	body, _ := json.Marshal(config)
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	defer resp.Body.Close()

	var job Job
	json.NewDecoder(resp.Body).Decode(&job)

	// Poll until the worker reports a terminal state
	maxAttempts := 50
	for i := 0; i < maxAttempts; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/status")
		if err != nil {
			t.Fatalf("Failed to get status: %v", err)
		}

		var status map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()

		if status["state"] == string(StateCompleted) {
			break
		}

		if status["state"] == string(StateFailed) {
			t.Fatalf("Job failed: %v", status["error"])
		}

		if i == maxAttempts-1 {
			t.Fatal("Job did not complete in time")
		}

		time.Sleep(100 * time.Millisecond)
	}

	// Get fitted model
	resp, err = http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/model")
	if err != nil {
		t.Fatalf("Failed to get model: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	var artifact store.ModelArtifact
	if err := json.NewDecoder(resp.Body).Decode(&artifact); err != nil {
		t.Fatalf("Failed to decode artifact: %v", err)
	}
	if len(artifact.Weights) == 0 {
		t.Error("Fitted model should have weights")
	}

	// Get fitness curve
	curveResp, err := http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/curve")
	if err != nil {
		t.Fatalf("Failed to get curve: %v", err)
	}
	defer curveResp.Body.Close()

	if curveResp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for curve, got %d", curveResp.StatusCode)
	}
}

func TestServer_IndexPage(t *testing.T) {
	s := NewServer(":8080", nil)

	s.jobManager.CreateJob(JobConfig{DataPath: "test.csv", Algorithm: "random_hill_climb"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	s.handleIndex(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Error("Expected text/html content type")
	}

	body := w.Body.String()
	if !containsString(body, "Training Jobs") {
		t.Error("Response should contain page title")
	}
	if !containsString(body, "test.csv") {
		t.Error("Response should list the job's dataset")
	}
}

func TestServer_IndexPage_NonRootPath(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	w := httptest.NewRecorder()

	s.handleIndex(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_JobDetailPage(t *testing.T) {
	s := NewServer(":8080", nil)

	// Create a job
	job := s.jobManager.CreateJob(JobConfig{
		DataPath:    "assets/test.csv",
		Algorithm:   "simulated_annealing",
		HiddenNodes: []int{8, 4},
		Activation:  "tanh",
		Classifier:  true,
		MaxIters:    100,
	})

	// A known job renders its detail page
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/jobs/%s", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleJobDetail(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Error("Expected text/html content type")
	}

	// The page carries the job fields and the live-update hook
	body := w.Body.String()
	if !containsString(body, job.ID[:8]) {
		t.Error("Response should contain job ID")
	}
	if !containsString(body, "simulated_annealing") {
		t.Error("Response should contain the algorithm")
	}
	if !containsString(body, "8, 4") {
		t.Error("Response should contain the hidden layer sizes")
	}
	if !containsString(body, "classification") {
		t.Error("Response should contain the training mode")
	}
	if !containsString(body, "EventSource") {
		t.Error("Pending job page should subscribe to the event stream")
	}
}

func TestServer_JobDetailPage_NotFound(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/nonexistent", nil)
	w := httptest.NewRecorder()

	s.handleJobDetail(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_JobDetailPage_Finished(t *testing.T) {
	s := NewServer(":8080", nil)

	job := s.jobManager.CreateJob(JobConfig{
		DataPath:  "test.csv",
		Algorithm: "random_hill_climb",
		MaxIters:  100,
	})

	endTime := time.Now()
	s.jobManager.UpdateJob(job.ID, func(j *Job) {
		j.State = StateCompleted
		j.Loss = 0.25
		j.Iterations = 42
		j.EndTime = &endTime
	})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/jobs/%s", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleJobDetail(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !containsString(body, "completed") {
		t.Error("Response should show the completed state")
	}
	if !containsString(body, "0.25") {
		t.Error("Response should show the loss")
	}
	// Finished jobs render statically
	if containsString(body, "EventSource") {
		t.Error("Finished job page should not subscribe to the event stream")
	}
}

func TestServer_JobStream_SSE(t *testing.T) {
	s := NewServer(":8080", nil)

	job := s.jobManager.CreateJob(JobConfig{DataPath: "test.csv"})

	reqCtx, cancelReq := context.WithCancel(context.Background())
	defer cancelReq()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/stream", job.ID), nil).WithContext(reqCtx)
	w := httptest.NewRecorder()

	done := make(chan bool)
	go func() {
		s.handleJobStream(w, req, job.ID)
		done <- true
	}()

	// Let the handler subscribe; the replayed last event covers the race
	// if the broadcast lands first
	time.Sleep(100 * time.Millisecond)

	// A terminal event ends the stream
	s.jobManager.broadcaster.Broadcast(ProgressEvent{
		JobID:      job.ID,
		State:      StateCompleted,
		Iterations: 5,
		Loss:       0.1,
		Timestamp:  time.Now(),
	})

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stream should end after a terminal event")
	}

	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Error("Expected text/event-stream content type")
	}

	body := w.Body.String()
	if !containsString(body, "data:") {
		t.Error("Expected SSE data in response")
	}
	if !containsString(body, `"state":"completed"`) {
		t.Error("Expected terminal event in stream")
	}
}

func TestServer_JobStream_NotFound(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/stream", nil)
	w := httptest.NewRecorder()

	s.handleJobStream(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func containsString(haystack, needle string) bool {
	return bytes.Contains([]byte(haystack), []byte(needle))
}

func TestServer_CreatePageGet(t *testing.T) {
	server := NewServer(":0", nil)

	req := httptest.NewRequest(http.MethodGet, "/create", nil)
	rec := httptest.NewRecorder()

	server.handleCreatePage(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !containsString(body, "New Training Job") {
		t.Error("Expected page to contain 'New Training Job'")
	}

	if !containsString(body, "Dataset path") {
		t.Error("Expected page to contain the dataset field")
	}

	if !containsString(body, "random_hill_climb") {
		t.Error("Expected page to contain the algorithm options")
	}
}

func TestServer_CreatePagePost_Success(t *testing.T) {
	tmpDir := t.TempDir()
	dataPath := filepath.Join(tmpDir, "test.csv")
	createTestCSV(t, dataPath)

	server := NewServer(":0", nil)

	// Create form data for a slow search so the worker stays cancellable
	form := url.Values{}
	form.Add("dataPath", dataPath)
	form.Add("algorithm", "genetic_alg")
	form.Add("hiddenNodes", "4,2")
	form.Add("activation", "relu")
	form.Add("classifier", "on")
	form.Add("bias", "on")
	form.Add("maxIters", "100000")
	form.Add("popSize", "200")
	form.Add("seed", "42")

	req := httptest.NewRequest(http.MethodPost, "/create", bytes.NewBufferString(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	server.handleCreatePage(rec, req)

	// A valid submission redirects to the new job page
	if rec.Code != http.StatusSeeOther {
		t.Errorf("Expected status 303, got %d", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !containsString(location, "/jobs/") {
		t.Errorf("Expected redirect to /jobs/, got %s", location)
	}

	// Verify job was created with the submitted configuration
	jobs := server.jobManager.ListJobs()
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs))
	}

	job := jobs[0]
	if job.Config.DataPath != dataPath {
		t.Errorf("Expected dataPath %s, got %s", dataPath, job.Config.DataPath)
	}
	if job.Config.Algorithm != "genetic_alg" {
		t.Errorf("Expected genetic_alg, got %s", job.Config.Algorithm)
	}
	if len(job.Config.HiddenNodes) != 2 || job.Config.HiddenNodes[0] != 4 || job.Config.HiddenNodes[1] != 2 {
		t.Errorf("Expected hidden nodes [4 2], got %v", job.Config.HiddenNodes)
	}
	if !job.Config.Classifier {
		t.Error("Expected classifier to be set")
	}
	if !job.Config.Bias {
		t.Error("Expected bias to be set")
	}
	if job.Config.MaxIters != 100000 {
		t.Errorf("Expected 100000 iterations, got %d", job.Config.MaxIters)
	}
	if job.Config.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", job.Config.Seed)
	}

	// Stop the background worker
	server.jobManager.CancelJob(job.ID)
}

func TestServer_CreatePagePost_ValidationErrors(t *testing.T) {
	server := NewServer(":0", nil)

	tests := []struct {
		name     string
		formData map[string]string
		errMsg   string
	}{
		{
			name: "missing dataPath",
			formData: map[string]string{
				"algorithm": "random_hill_climb",
				"maxIters":  "100",
			},
			errMsg: "dataset path is required",
		},
		{
			name: "unknown algorithm",
			formData: map[string]string{
				"dataPath":  "test.csv",
				"algorithm": "warp_drive",
				"maxIters":  "100",
			},
			errMsg: "unknown algorithm",
		},
		{
			name: "invalid hidden nodes",
			formData: map[string]string{
				"dataPath":    "test.csv",
				"algorithm":   "random_hill_climb",
				"hiddenNodes": "abc",
				"maxIters":    "100",
			},
			errMsg: "hidden nodes must be positive integers",
		},
		{
			name: "invalid iterations",
			formData: map[string]string{
				"dataPath":  "test.csv",
				"algorithm": "random_hill_climb",
				"maxIters":  "0",
			},
			errMsg: "iterations must be a positive integer",
		},
		{
			name: "invalid mutation probability",
			formData: map[string]string{
				"dataPath":     "test.csv",
				"algorithm":    "genetic_alg",
				"maxIters":     "100",
				"mutationProb": "2",
			},
			errMsg: "mutation probability must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			for k, v := range tt.formData {
				form.Add(k, v)
			}

			req := httptest.NewRequest(http.MethodPost, "/create", bytes.NewBufferString(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()

			server.handleCreatePage(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", rec.Code)
			}

			body := rec.Body.String()
			if !containsString(body, tt.errMsg) {
				t.Errorf("Expected error message '%s' in body", tt.errMsg)
			}
		})
	}
}
