package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/fkgruber/mlrose-ky/internal/dataset"
	"github.com/fkgruber/mlrose-ky/internal/model"
	"github.com/fkgruber/mlrose-ky/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var (
	dataPath      string
	hasHeader     bool
	targetCols    int
	algorithm     string
	hiddenNodes   []int
	activation    string
	classifier    bool
	useBias       bool
	iters         int
	attempts      int
	learningRate  float64
	clipMax       float64
	restarts      int
	popSize       int
	mutationProb  float64
	earlyStopping bool
	seed          int64
	holdout       float64
	dataDir       string
	saveCurve     bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit network weights on a CSV dataset",
	Long: `Loads a numeric CSV dataset, trains a feed-forward network with the
chosen weight-search algorithm and stores the fitted model under the data
directory. The reported score is accuracy for classifiers and negated mean
squared error for regressors.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&dataPath, "data", "", "Training dataset CSV path (required)")
	trainCmd.Flags().BoolVar(&hasHeader, "header", false, "Dataset has a header row")
	trainCmd.Flags().IntVar(&targetCols, "target-cols", 1, "Number of trailing target columns")
	trainCmd.Flags().StringVar(&algorithm, "algorithm", "random_hill_climb", "Weight search algorithm: random_hill_climb, simulated_annealing, genetic_alg, gradient_descent, mayfly")
	trainCmd.Flags().IntSliceVar(&hiddenNodes, "hidden", nil, "Hidden layer sizes, e.g. 8,4 (empty = no hidden layer)")
	trainCmd.Flags().StringVar(&activation, "activation", "relu", "Hidden layer activation: identity, relu, sigmoid, tanh")
	trainCmd.Flags().BoolVar(&classifier, "classifier", true, "Train a classifier (false = regressor)")
	trainCmd.Flags().BoolVar(&useBias, "bias", true, "Add a bias term to each layer input")
	trainCmd.Flags().IntVar(&iters, "iters", 100, "Max search iterations")
	trainCmd.Flags().IntVar(&attempts, "attempts", 10, "Max attempts without improvement before stopping")
	trainCmd.Flags().Float64Var(&learningRate, "learning-rate", 0.1, "Step size (neighborhood radius or gradient step)")
	trainCmd.Flags().Float64Var(&clipMax, "clip-max", 1e10, "Weight magnitude bound")
	trainCmd.Flags().IntVar(&restarts, "restarts", 0, "Extra random restarts for hill climbing")
	trainCmd.Flags().IntVar(&popSize, "pop", 200, "Population size for the genetic algorithm")
	trainCmd.Flags().Float64Var(&mutationProb, "mutation", 0.1, "Mutation probability for the genetic algorithm")
	trainCmd.Flags().BoolVar(&earlyStopping, "early-stopping", false, "Stop after --attempts iterations without improvement")
	trainCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time-based)")
	trainCmd.Flags().Float64Var(&holdout, "holdout", 0, "Fraction of rows held out for a test score (0 = train on everything)")
	trainCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for model storage")
	trainCmd.Flags().BoolVar(&saveCurve, "curve", false, "Record the fitness curve and save it as a trace")

	trainCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	slog.Info("Starting training", "data", dataPath, "algorithm", algorithm, "hidden", hiddenNodes, "iters", iters)

	// Load training data
	x, y, err := dataset.Load(dataPath, dataset.Options{
		HasHeader:  hasHeader,
		TargetCols: targetCols,
	})
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	rows, cols := x.Dims()
	slog.Info("Loaded dataset", "rows", rows, "features", cols)

	// Hold out a test partition when requested
	var xTest, yTest *mat.Dense
	if holdout > 0 {
		var rng *rand.Rand
		if seed != 0 {
			rng = rand.New(rand.NewSource(seed))
		}
		x, y, xTest, yTest, err = dataset.Split(x, y, holdout, rng)
		if err != nil {
			return fmt.Errorf("failed to split dataset: %w", err)
		}
		trainRows, _ := x.Dims()
		testRows, _ := xTest.Dims()
		slog.Info("Split dataset", "train_rows", trainRows, "test_rows", testRows)
	}

	config := trainConfigFromFlags()
	nn, err := networkFromConfig(config, saveCurve)
	if err != nil {
		return err
	}

	// Log occasional progress without touching the hot path at info level
	nn.TrainHook = func(iteration int, best float64) bool {
		if iteration%100 == 0 {
			slog.Debug("Training progress", "iteration", iteration, "loss", best)
		}
		return true
	}

	// Run the weight search
	start := time.Now()
	if err := nn.Fit(x, y); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	elapsed := time.Since(start)

	ips := float64(0)
	if elapsed.Seconds() > 0 {
		ips = float64(nn.Iterations) / elapsed.Seconds()
	}

	trainScore, err := nn.Score(x, y)
	if err != nil {
		return fmt.Errorf("failed to score training set: %w", err)
	}

	slog.Info("Training complete",
		"elapsed", elapsed,
		"loss", nn.LossValue,
		"iterations", nn.Iterations,
		"train_score", trainScore,
		"iters_per_second", fmt.Sprintf("%.0f", ips),
	)

	if xTest != nil {
		testScore, err := nn.Score(xTest, yTest)
		if err != nil {
			return fmt.Errorf("failed to score test set: %w", err)
		}
		fmt.Printf("Test score: %.4f\n", testScore)
	}

	// Persist the fitted model
	modelID := uuid.New().String()
	modelStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create model store: %w", err)
	}

	artifact := store.NewModelArtifact(modelID, nn.FittedWeights, nn.NodeList,
		nn.OutputAct.String(), nn.LossValue, nn.Iterations, config)
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("artifact validation failed: %w", err)
	}
	if err := modelStore.SaveModel(modelID, artifact); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	if saveCurve {
		if err := writeTrace(modelStore.BaseDir(), modelID, nn.FitnessCurve, false); err != nil {
			slog.Warn("Failed to save fitness trace", "model_id", modelID, "error", err)
		}
	}

	fmt.Printf("Saved model %s (loss: %.4f, score: %.4f, %d iterations, %.0f iters/sec)\n",
		modelID, nn.LossValue, trainScore, nn.Iterations, ips)

	return nil
}

// trainConfigFromFlags snapshots the train flags into a persistable config.
func trainConfigFromFlags() store.TrainConfig {
	return store.TrainConfig{
		DataPath:      dataPath,
		HasHeader:     hasHeader,
		TargetCols:    targetCols,
		Algorithm:     algorithm,
		HiddenNodes:   hiddenNodes,
		Activation:    activation,
		Classifier:    classifier,
		Bias:          useBias,
		MaxIters:      iters,
		MaxAttempts:   attempts,
		LearningRate:  learningRate,
		ClipMax:       clipMax,
		Restarts:      restarts,
		PopSize:       popSize,
		MutationProb:  mutationProb,
		EarlyStopping: earlyStopping,
		Seed:          seed,
	}
}

// networkFromConfig maps a stored training config onto a network, keeping
// library defaults for anything left unset.
func networkFromConfig(config store.TrainConfig, curve bool) (*model.NeuralNetwork, error) {
	cfg := model.DefaultNetworkConfig()
	cfg.HiddenNodes = config.HiddenNodes
	cfg.Classifier = config.Classifier
	cfg.Bias = config.Bias
	cfg.EarlyStopping = config.EarlyStopping
	cfg.Curve = curve

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

// writeTrace saves a fitness curve as a JSONL trace next to the model.
func writeTrace(baseDir, modelID string, curve []float64, appendTrace bool) error {
	if len(curve) == 0 {
		return nil
	}
	tw, err := store.NewTraceWriter(baseDir, modelID, appendTrace)
	if err != nil {
		return err
	}
	if err := tw.WriteCurve(curve); err != nil {
		tw.Close()
		return err
	}
	return tw.Close()
}
