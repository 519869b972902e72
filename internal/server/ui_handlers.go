package server

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/fkgruber/mlrose-ky/internal/ui"
)

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// Get all jobs, newest first
	jobs := s.jobManager.ListJobs()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})

	// Convert to UI job list items
	jobItems := make([]ui.JobListItem, len(jobs))
	for i, job := range jobs {
		jobItems[i] = ui.JobListItem{
			ID:         job.ID,
			State:      string(job.State),
			DataPath:   job.Config.DataPath,
			Algorithm:  job.Config.Algorithm,
			Iterations: job.Iterations,
			Loss:       job.Loss,
			StartTime:  job.StartTime,
			EndTime:    job.EndTime,
			Error:      job.Error,
		}
	}

	// Render the job list page using templ
	if err := ui.JobList(jobItems).Render(r.Context(), w); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}

// handleJobDetail handles GET /jobs/:id
func (s *Server) handleJobDetail(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		http.NotFound(w, r)
		return
	}

	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	view := ui.JobDetailView{
		ID:          job.ID,
		State:       string(job.State),
		DataPath:    job.Config.DataPath,
		Algorithm:   job.Config.Algorithm,
		HiddenNodes: job.Config.HiddenNodes,
		Activation:  job.Config.Activation,
		Classifier:  job.Config.Classifier,
		MaxIters:    job.Config.MaxIters,
		Iterations:  job.Iterations,
		Loss:        job.Loss,
		StartTime:   job.StartTime,
		EndTime:     job.EndTime,
		Error:       job.Error,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ui.JobDetail(view).Render(r.Context(), w); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}

// handleCreatePage handles GET and POST /create
func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderCreatePage(w, r, ui.DefaultCreateFormValues(), "")

	case http.MethodPost:
		config, err := parseJobForm(r)
		if err != nil {
			s.renderCreatePage(w, r, createFormValues(r), err.Error())
			return
		}
		applyConfigDefaults(&config)
		if err := validateConfig(&config); err != nil {
			s.renderCreatePage(w, r, createFormValues(r), err.Error())
			return
		}

		job := s.jobManager.CreateJob(config)

		ctx, cancel := context.WithCancel(context.Background())
		s.jobManager.RegisterCancel(job.ID, cancel)
		go runJob(ctx, s.jobManager, s.modelStore, job.ID)

		http.Redirect(w, r, "/jobs/"+job.ID, http.StatusSeeOther)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// renderCreatePage renders the create form, optionally with an error banner.
func (s *Server) renderCreatePage(w http.ResponseWriter, r *http.Request, values ui.CreateFormValues, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ui.CreateForm(values, errMsg).Render(r.Context(), w); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// createFormValues echoes the submitted form back so a rejected submission
// keeps what the user typed.
func createFormValues(r *http.Request) ui.CreateFormValues {
	return ui.CreateFormValues{
		DataPath:     r.FormValue("dataPath"),
		HasHeader:    r.FormValue("hasHeader") == "on",
		Algorithm:    r.FormValue("algorithm"),
		HiddenNodes:  r.FormValue("hiddenNodes"),
		Activation:   r.FormValue("activation"),
		Classifier:   r.FormValue("classifier") == "on",
		Bias:         r.FormValue("bias") == "on",
		MaxIters:     r.FormValue("maxIters"),
		LearningRate: r.FormValue("learningRate"),
		PopSize:      r.FormValue("popSize"),
		MutationProb: r.FormValue("mutationProb"),
		Seed:         r.FormValue("seed"),
	}
}
