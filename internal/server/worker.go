package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fkgruber/mlrose-ky/internal/dataset"
	"github.com/fkgruber/mlrose-ky/internal/model"
	"github.com/fkgruber/mlrose-ky/internal/store"
)

// broadcastInterval throttles progress events so fast searches do not flood
// SSE clients.
const broadcastInterval = 250 * time.Millisecond

// runJob executes a training job in the background.
// If modelStore is not nil, the fitted model is persisted on completion.
func runJob(ctx context.Context, jm *JobManager, modelStore store.Store, jobID string) error {
	defer jm.clearCancel(jobID)

	// Get the job
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	config := job.Config

	// Update state to running
	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "data", config.DataPath, "algorithm", config.Algorithm)

	// Load training data
	x, y, err := dataset.Load(config.DataPath, dataset.Options{
		HasHeader:  config.HasHeader,
		TargetCols: config.TargetCols,
	})
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to load dataset: %w", err))
		return err
	}

	rows, cols := x.Dims()
	slog.Info("Loaded dataset", "job_id", jobID, "rows", rows, "features", cols)

	// Build the estimator
	nn, err := buildEstimator(config)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	// Check for cancellation before starting expensive operation
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	// Observe every search iteration: record progress under the manager
	// lock and broadcast a throttled event stream. Returning false stops
	// the search with the best weights found so far.
	start := time.Now()
	var lastBroadcast time.Time
	nn.TrainHook = func(iteration int, best float64) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		jm.UpdateJob(jobID, func(j *Job) {
			j.Iterations = iteration
			j.Loss = best
			j.Curve = append(j.Curve, best)
		})

		if time.Since(lastBroadcast) >= broadcastInterval {
			lastBroadcast = time.Now()
			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:      jobID,
				State:      StateRunning,
				Iterations: iteration,
				Loss:       best,
				IPS:        throughput(iteration, time.Since(start)),
				Timestamp:  time.Now(),
			})
		}
		return true
	}

	if err := nn.Fit(x, y); err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("training failed: %w", err))
		return err
	}

	elapsed := time.Since(start)
	cancelled := ctx.Err() != nil

	finalState := StateCompleted
	if cancelled {
		finalState = StateCancelled
	}

	// Update job with results. Cancelled jobs keep the best weights found
	// before the stop so clients can still inspect them.
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = finalState
		j.Weights = nn.FittedWeights
		j.NodeList = nn.NodeList
		j.OutputActivation = nn.OutputAct.String()
		j.Loss = nn.LossValue
		j.Iterations = nn.Iterations
		j.Curve = nn.FitnessCurve
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job finished",
		"job_id", jobID,
		"state", finalState,
		"elapsed", elapsed,
		"loss", nn.LossValue,
		"iterations", nn.Iterations,
	)

	// Persist the fitted model unless the job was cancelled
	if !cancelled && modelStore != nil {
		if err := saveModel(modelStore, jobID, config, nn); err != nil {
			slog.Error("Failed to persist model", "job_id", jobID, "error", err)
		}
	}

	// Broadcast final event
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      finalState,
		Iterations: nn.Iterations,
		Loss:       nn.LossValue,
		IPS:        throughput(nn.Iterations, elapsed),
		Timestamp:  time.Now(),
	})

	return nil
}

// buildEstimator maps a job configuration onto a network, keeping library
// defaults for anything the request left unset.
func buildEstimator(config JobConfig) (*model.NeuralNetwork, error) {
	cfg := model.DefaultNetworkConfig()
	cfg.HiddenNodes = config.HiddenNodes
	cfg.Classifier = config.Classifier
	cfg.Bias = config.Bias
	cfg.EarlyStopping = config.EarlyStopping
	cfg.Curve = true // progress and trace reporting need the curve

	if config.Algorithm != "" {
		alg, err := model.ParseAlgorithm(config.Algorithm)
		if err != nil {
			return nil, err
		}
		cfg.Algorithm = alg
	}
	if config.Activation != "" {
		cfg.Activation = config.Activation
	}
	if config.MaxIters > 0 {
		cfg.MaxIters = config.MaxIters
	}
	if config.MaxAttempts > 0 {
		cfg.MaxAttempts = config.MaxAttempts
	}
	if config.LearningRate > 0 {
		cfg.LearningRate = config.LearningRate
	}
	if config.ClipMax > 0 {
		cfg.ClipMax = config.ClipMax
	}
	if config.Restarts > 0 {
		cfg.Restarts = config.Restarts
	}
	if config.PopSize > 0 {
		cfg.PopSize = config.PopSize
	}
	if config.MutationProb > 0 {
		cfg.MutationProb = config.MutationProb
	}
	if config.Seed != 0 {
		cfg.Seed = config.Seed
	}

	return model.NewNeuralNetwork(cfg)
}

// throughput reports iterations per second over an elapsed duration.
func throughput(iterations int, elapsed time.Duration) float64 {
	if elapsed.Seconds() <= 0 {
		return 0
	}
	return float64(iterations) / elapsed.Seconds()
}

// saveModel persists the fitted network and its fitness trace.
func saveModel(modelStore store.Store, jobID string, config JobConfig, nn *model.NeuralNetwork) error {
	artifact := store.NewModelArtifact(jobID, nn.FittedWeights, nn.NodeList,
		nn.OutputAct.String(), nn.LossValue, nn.Iterations, config)

	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("artifact validation failed: %w", err)
	}

	if err := modelStore.SaveModel(jobID, artifact); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	slog.Info("Model saved", "job_id", jobID, "iteration", nn.Iterations, "loss", nn.LossValue)

	// A missing trace is not fatal, the artifact is what matters
	if err := saveTrace(modelStore, jobID, nn.FitnessCurve); err != nil {
		slog.Warn("Failed to save fitness trace", "job_id", jobID, "error", err)
	}

	return nil
}

// saveTrace writes the per-iteration fitness curve next to the model. Only
// filesystem stores expose a directory to write into.
func saveTrace(modelStore store.Store, jobID string, curve []float64) error {
	fsStore, ok := modelStore.(*store.FSStore)
	if !ok || len(curve) == 0 {
		return nil
	}

	tw, err := store.NewTraceWriter(fsStore.BaseDir(), jobID, false)
	if err != nil {
		return fmt.Errorf("failed to create trace writer: %w", err)
	}
	defer tw.Close()

	if err := tw.WriteCurve(curve); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}

	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateFailed,
		Timestamp: time.Now(),
	})
}

// markJobCancelled marks a job as cancelled before training started
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateCancelled,
		Timestamp: time.Now(),
	})
}
