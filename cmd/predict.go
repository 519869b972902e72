package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/fkgruber/mlrose-ky/internal/dataset"
	"github.com/fkgruber/mlrose-ky/internal/model"
	"github.com/fkgruber/mlrose-ky/internal/store"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var (
	predictModelID string
	predictData    string
	predictHeader  bool
	predictDataDir string
	predictOut     string
	predictProbs   bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict with a stored model",
	Long: `Loads a fitted model from the data directory and predicts targets for
a CSV file of feature rows. Classifiers emit labels (one-hot for multi-class
models) unless --probs asks for the activation outputs; regressors always
emit raw outputs. Results are written as CSV to stdout or --out.`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictModelID, "model", "", "Model ID to predict with (required)")
	predictCmd.Flags().StringVar(&predictData, "data", "", "Feature CSV path (required)")
	predictCmd.Flags().BoolVar(&predictHeader, "header", false, "Dataset has a header row")
	predictCmd.Flags().StringVar(&predictDataDir, "data-dir", "./data", "Base directory for model storage")
	predictCmd.Flags().StringVar(&predictOut, "out", "", "Output CSV path (default stdout)")
	predictCmd.Flags().BoolVar(&predictProbs, "probs", false, "Emit class probabilities instead of labels")

	predictCmd.MarkFlagRequired("model")
	predictCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	modelStore, err := store.NewFSStore(predictDataDir)
	if err != nil {
		return fmt.Errorf("failed to open model store: %w", err)
	}

	artifact, err := modelStore.LoadModel(predictModelID)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("stored model is invalid: %w", err)
	}

	nn, err := restoreNetwork(artifact)
	if err != nil {
		return err
	}

	x, err := dataset.LoadFeatures(predictData, predictHeader)
	if err != nil {
		return fmt.Errorf("failed to load features: %w", err)
	}

	// The feature width must match the width the weights were fitted on
	_, cols := x.Dims()
	want := artifact.NodeList[0]
	if artifact.Config.Bias {
		want--
	}
	if cols != want {
		return fmt.Errorf("dataset has %d feature columns, model %s expects %d", cols, artifact.ModelID, want)
	}

	pred, err := nn.Predict(x)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}
	if predictProbs {
		if !artifact.Config.Classifier {
			return fmt.Errorf("--probs only applies to classifiers")
		}
		pred = nn.Probs
	}

	out := io.Writer(os.Stdout)
	if predictOut != "" {
		f, err := os.Create(predictOut)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := writePredictions(out, pred); err != nil {
		return fmt.Errorf("failed to write predictions: %w", err)
	}

	rows, _ := x.Dims()
	slog.Info("Prediction complete", "model_id", artifact.ModelID, "rows", rows)
	if predictOut != "" {
		fmt.Printf("Wrote %d prediction(s) to %s\n", rows, predictOut)
	}

	return nil
}

// restoreNetwork rebuilds a predict-ready network from a stored artifact.
// The search never reruns: fitted weights, layer sizes and the output
// activation are taken from the artifact as-is.
func restoreNetwork(artifact *store.ModelArtifact) (*model.NeuralNetwork, error) {
	nn, err := networkFromConfig(artifact.Config, false)
	if err != nil {
		return nil, fmt.Errorf("stored config is unusable: %w", err)
	}
	if err := nn.Restore(artifact.Weights, artifact.NodeList, artifact.OutputActivation); err != nil {
		return nil, fmt.Errorf("failed to restore fitted state: %w", err)
	}
	return nn, nil
}

// writePredictions emits one CSV record per prediction row.
func writePredictions(out io.Writer, pred *mat.Dense) error {
	w := csv.NewWriter(out)
	rows, cols := pred.Dims()
	record := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			record[j] = strconv.FormatFloat(pred.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
