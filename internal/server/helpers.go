package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fkgruber/mlrose-ky/internal/model"
	"github.com/fkgruber/mlrose-ky/internal/neural"
)

// applyConfigDefaults fills unset numeric and name fields with the library
// defaults. Booleans are left alone: JSON cannot distinguish absent from
// false, so callers that want bias or classifier set them explicitly.
func applyConfigDefaults(config *JobConfig) {
	if config.Algorithm == "" {
		config.Algorithm = "random_hill_climb"
	}
	if config.Activation == "" {
		config.Activation = "relu"
	}
	if config.MaxIters <= 0 {
		config.MaxIters = 100
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 10
	}
	if config.LearningRate <= 0 {
		config.LearningRate = 0.1
	}
	if config.ClipMax <= 0 {
		config.ClipMax = 1e10
	}
	if config.PopSize <= 0 {
		config.PopSize = 200
	}
	if config.MutationProb <= 0 {
		config.MutationProb = 0.1
	}
}

// validateConfig rejects configurations the worker could not train.
func validateConfig(config *JobConfig) error {
	if config.DataPath == "" {
		return fmt.Errorf("dataPath is required")
	}
	if _, err := model.ParseAlgorithm(config.Algorithm); err != nil {
		return err
	}
	if _, err := neural.ParseActivation(config.Activation); err != nil {
		return err
	}
	for _, h := range config.HiddenNodes {
		if h <= 0 {
			return fmt.Errorf("hidden layer sizes must be positive, got %d", h)
		}
	}
	if config.TargetCols < 0 {
		return fmt.Errorf("target columns must not be negative, got %d", config.TargetCols)
	}
	return nil
}

// parseJobForm builds a job configuration from the create-page form.
func parseJobForm(r *http.Request) (JobConfig, error) {
	var config JobConfig
	if err := r.ParseForm(); err != nil {
		return config, fmt.Errorf("failed to parse form: %w", err)
	}

	config.DataPath = strings.TrimSpace(r.FormValue("dataPath"))
	if config.DataPath == "" {
		return config, fmt.Errorf("dataset path is required")
	}
	config.HasHeader = r.FormValue("hasHeader") == "on"
	config.Algorithm = r.FormValue("algorithm")
	config.Activation = r.FormValue("activation")
	config.Classifier = r.FormValue("classifier") == "on"
	config.Bias = r.FormValue("bias") == "on"

	hidden, err := parseHiddenNodes(r.FormValue("hiddenNodes"))
	if err != nil {
		return config, err
	}
	config.HiddenNodes = hidden

	if v := r.FormValue("maxIters"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return config, fmt.Errorf("iterations must be a positive integer")
		}
		config.MaxIters = n
	}
	if v := r.FormValue("learningRate"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return config, fmt.Errorf("learning rate must be a positive number")
		}
		config.LearningRate = f
	}
	if v := r.FormValue("popSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return config, fmt.Errorf("population size must be a positive integer")
		}
		config.PopSize = n
	}
	if v := r.FormValue("mutationProb"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return config, fmt.Errorf("mutation probability must be between 0 and 1")
		}
		config.MutationProb = f
	}
	if v := r.FormValue("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return config, fmt.Errorf("seed must be an integer")
		}
		config.Seed = n
	}

	return config, nil
}

// parseHiddenNodes parses a comma-separated list like "16,8" into layer
// sizes. An empty string means no hidden layers.
func parseHiddenNodes(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	nodes := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("hidden nodes must be positive integers, got %q", strings.TrimSpace(part))
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
