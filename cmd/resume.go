package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fkgruber/mlrose-ky/internal/dataset"
	"github.com/fkgruber/mlrose-ky/internal/store"
	"github.com/spf13/cobra"
)

var (
	resumeDataDir   string
	resumeIters     int
	resumeAttempts  int
	resumeAlgorithm string
	resumeLearnRate float64
	resumeSeed      int64
	resumeCurve     bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume [model-id]",
	Short: "Continue training a stored model",
	Long: `Reloads a stored model and its dataset, restarts the weight search
from the fitted weights and saves the improved model under the same ID.
Search hyperparameters like the algorithm, iteration budget and learning
rate can be changed; the dataset and topology cannot.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for model storage")
	resumeCmd.Flags().IntVar(&resumeIters, "iters", 0, "Max search iterations for this leg (0 = stored value)")
	resumeCmd.Flags().IntVar(&resumeAttempts, "attempts", 0, "Max attempts without improvement (0 = stored value)")
	resumeCmd.Flags().StringVar(&resumeAlgorithm, "algorithm", "", "Override the weight search algorithm")
	resumeCmd.Flags().Float64Var(&resumeLearnRate, "learning-rate", 0, "Override the step size (0 = stored value)")
	resumeCmd.Flags().Int64Var(&resumeSeed, "seed", 0, "Random seed for this leg (0 = stored value)")
	resumeCmd.Flags().BoolVar(&resumeCurve, "curve", false, "Record the fitness curve and append it to the trace")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	modelID := args[0]

	modelStore, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return fmt.Errorf("failed to open model store: %w", err)
	}

	artifact, err := modelStore.LoadModel(modelID)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("stored model is invalid: %w", err)
	}

	// The resumed leg reuses the stored config with the search
	// hyperparameters the flags override. Topology overrides are not
	// offered: the stored weights would not decode against them.
	config := artifact.Config
	if resumeIters > 0 {
		config.MaxIters = resumeIters
	}
	if resumeAttempts > 0 {
		config.MaxAttempts = resumeAttempts
	}
	if resumeAlgorithm != "" {
		config.Algorithm = resumeAlgorithm
	}
	if resumeLearnRate > 0 {
		config.LearningRate = resumeLearnRate
	}
	if resumeSeed != 0 {
		config.Seed = resumeSeed
	}
	if err := artifact.IsCompatible(config); err != nil {
		return fmt.Errorf("cannot resume model %s: %w", modelID, err)
	}

	slog.Info("Resuming training",
		"model_id", modelID,
		"algorithm", config.Algorithm,
		"prior_iterations", artifact.Iteration,
		"prior_loss", artifact.Loss,
	)

	x, y, err := dataset.Load(config.DataPath, dataset.Options{
		HasHeader:  config.HasHeader,
		TargetCols: config.TargetCols,
	})
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	nn, err := networkFromConfig(config, resumeCurve)
	if err != nil {
		return err
	}

	// Restart the search from the stored weights
	start := time.Now()
	if err := nn.FitInit(x, y, artifact.Weights); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	elapsed := time.Since(start)

	totalIters := artifact.Iteration + nn.Iterations
	updated := store.NewModelArtifact(modelID, nn.FittedWeights, nn.NodeList,
		nn.OutputAct.String(), nn.LossValue, totalIters, config)
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("artifact validation failed: %w", err)
	}
	if err := modelStore.SaveModel(modelID, updated); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	if resumeCurve {
		if err := writeTrace(modelStore.BaseDir(), modelID, nn.FitnessCurve, true); err != nil {
			slog.Warn("Failed to append fitness trace", "model_id", modelID, "error", err)
		}
	}

	slog.Info("Resume complete",
		"model_id", modelID,
		"elapsed", elapsed,
		"loss", nn.LossValue,
		"total_iterations", totalIters,
	)

	fmt.Printf("Resumed model %s (loss: %.4f -> %.4f, +%d iterations)\n",
		modelID, artifact.Loss, nn.LossValue, nn.Iterations)

	return nil
}
