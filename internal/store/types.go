package store

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/fkgruber/mlrose-ky/internal/neural"
)

// TrainConfig holds the training request that produced a model (artifact copy).
// This avoids import cycles with server package.
type TrainConfig struct {
	DataPath      string  `json:"dataPath"`
	HasHeader     bool    `json:"hasHeader,omitempty"`
	TargetCols    int     `json:"targetCols,omitempty"`
	Algorithm     string  `json:"algorithm"`
	HiddenNodes   []int   `json:"hiddenNodes,omitempty"`
	Activation    string  `json:"activation"`
	Classifier    bool    `json:"classifier"`
	Bias          bool    `json:"bias"`
	MaxIters      int     `json:"maxIters"`
	MaxAttempts   int     `json:"maxAttempts,omitempty"`
	LearningRate  float64 `json:"learningRate"`
	ClipMax       float64 `json:"clipMax,omitempty"`
	Restarts      int     `json:"restarts,omitempty"`
	PopSize       int     `json:"popSize,omitempty"`
	MutationProb  float64 `json:"mutationProb,omitempty"`
	EarlyStopping bool    `json:"earlyStopping,omitempty"`
	Seed          int64   `json:"seed,omitempty"`
}

// ModelArtifact represents a fitted model in its persistable form.
// All fields are serialized to JSON for persistence.
//
// Optimizer State Handling:
//
// The artifact saves the FITTED WEIGHTS, but does NOT save the internal
// search state (population, temperature, attempt counters). This design
// choice has important implications for resumed training:
//
// SAVED STATE:
//   - Weights: The flat weight vector that achieved the lowest loss
//   - NodeList: Layer sizes the weights decode against
//   - OutputActivation: Output layer activation used for prediction
//   - Loss: The training loss achieved by Weights
//   - Iterations: How many search iterations have been completed
//   - Config: Training configuration (dataset, algorithm, topology, etc.)
//
// REINITIALIZED ON RESUME:
//   - Search state: Populations, annealing temperature, restart counters
//   - Random stream: Can be re-seeded for reproducibility
//
// When resuming, the search restarts from the saved weights instead of a
// random state, so the loss never starts worse than the artifact's. The
// trajectory will diverge from an uninterrupted run, which is acceptable
// and keeps the format independent of any particular algorithm's
// internals.
type ModelArtifact struct {
	// ModelID is the unique identifier for this model
	ModelID string `json:"modelId"`

	// Weights is the fitted flat weight vector, decodable against NodeList
	Weights []float64 `json:"weights"`

	// NodeList holds the layer sizes (inputs incl. bias, hidden..., outputs)
	NodeList []int `json:"nodeList"`

	// OutputActivation names the output layer activation (identity,
	// sigmoid or softmax), resolved from the config at fit time
	OutputActivation string `json:"outputActivation"`

	// Loss is the training loss achieved by Weights
	Loss float64 `json:"loss"`

	// Iterations is the search iteration count when the model was saved
	Iteration int `json:"iteration"`

	// Timestamp records when this artifact was created
	Timestamp time.Time `json:"timestamp"`

	// Config holds the training configuration, needed for validation
	// during resume. Resumed runs must use a compatible topology.
	Config TrainConfig `json:"config"`
}

// ModelInfo contains metadata about a model without the weight vector.
// Used for listing models efficiently without loading large weight arrays.
type ModelInfo struct {
	// ModelID is the unique identifier for this model
	ModelID string `json:"modelId"`

	// Loss is the training loss at save time
	Loss float64 `json:"loss"`

	// Iteration is the search iteration count at save time
	Iteration int `json:"iteration"`

	// Timestamp records when this artifact was created
	Timestamp time.Time `json:"timestamp"`

	// Algorithm is the weight-search algorithm name
	Algorithm string `json:"algorithm"`

	// NodeList holds the layer sizes of the saved weights
	NodeList []int `json:"nodeList"`

	// DataPath is the training dataset path
	DataPath string `json:"dataPath"`
}

// NewModelArtifact creates an artifact from fitted model state.
// This is a helper for converting runtime state to a persistable artifact.
func NewModelArtifact(modelID string, weights []float64, nodeList []int, outputActivation string, loss float64, iteration int, config TrainConfig) *ModelArtifact {
	return &ModelArtifact{
		ModelID:          modelID,
		Weights:          weights,
		NodeList:         nodeList,
		OutputActivation: outputActivation,
		Loss:             loss,
		Iteration:        iteration,
		Timestamp:        time.Now(),
		Config:           config,
	}
}

// ToInfo converts a full ModelArtifact to ModelInfo (metadata only).
func (a *ModelArtifact) ToInfo() ModelInfo {
	return ModelInfo{
		ModelID:   a.ModelID,
		Loss:      a.Loss,
		Iteration: a.Iteration,
		Timestamp: a.Timestamp,
		Algorithm: a.Config.Algorithm,
		NodeList:  a.NodeList,
		DataPath:  a.Config.DataPath,
	}
}

// Validate checks if the artifact has valid data.
// Returns an error if any required field is missing or invalid.
func (a *ModelArtifact) Validate() error {
	if a.ModelID == "" {
		return &ValidationError{Field: "ModelID", Reason: "cannot be empty"}
	}
	if a.Weights == nil {
		return &ValidationError{Field: "Weights", Reason: "cannot be nil"}
	}
	if len(a.Weights) == 0 {
		return &ValidationError{Field: "Weights", Reason: "cannot be empty"}
	}
	if len(a.NodeList) < 2 {
		return &ValidationError{Field: "NodeList", Reason: "needs at least input and output sizes"}
	}
	for _, n := range a.NodeList {
		if n <= 0 {
			return &ValidationError{Field: "NodeList", Reason: "layer sizes must be positive"}
		}
	}
	// Weights must decode against the node list
	expected := neural.StateSize(a.NodeList)
	if len(a.Weights) != expected {
		return &ValidationError{
			Field:  "Weights",
			Reason: fmt.Sprintf("length mismatch: expected %d weights for layers %v", expected, a.NodeList),
		}
	}
	if a.OutputActivation == "" {
		return &ValidationError{Field: "OutputActivation", Reason: "cannot be empty"}
	}
	if math.IsNaN(a.Loss) {
		return &ValidationError{Field: "Loss", Reason: "cannot be NaN"}
	}
	if a.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if a.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if a.Config.DataPath == "" {
		return &ValidationError{Field: "Config.DataPath", Reason: "cannot be empty"}
	}
	if a.Config.Algorithm == "" {
		return &ValidationError{Field: "Config.Algorithm", Reason: "cannot be empty"}
	}
	if a.Config.MaxIters <= 0 {
		return &ValidationError{Field: "Config.MaxIters", Reason: "must be positive"}
	}
	if a.Config.LearningRate <= 0 {
		return &ValidationError{Field: "Config.LearningRate", Reason: "must be positive"}
	}
	return nil
}

// ValidationError represents a model artifact validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this artifact's weights can seed a run with the
// given config. The dataset and the weight topology must match; search
// hyperparameters (algorithm, iterations, rates) are free to change.
// Returns an error describing the first mismatch.
func (a *ModelArtifact) IsCompatible(config TrainConfig) error {
	if a.Config.DataPath != config.DataPath {
		return &CompatibilityError{
			Field:    "DataPath",
			Expected: a.Config.DataPath,
			Actual:   config.DataPath,
		}
	}
	if !slices.Equal(a.Config.HiddenNodes, config.HiddenNodes) {
		return &CompatibilityError{
			Field:    "HiddenNodes",
			Expected: fmt.Sprintf("%v", a.Config.HiddenNodes),
			Actual:   fmt.Sprintf("%v", config.HiddenNodes),
		}
	}
	if a.Config.Activation != config.Activation {
		return &CompatibilityError{
			Field:    "Activation",
			Expected: a.Config.Activation,
			Actual:   config.Activation,
		}
	}
	if a.Config.Bias != config.Bias {
		return &CompatibilityError{
			Field:    "Bias",
			Expected: fmt.Sprintf("%t", a.Config.Bias),
			Actual:   fmt.Sprintf("%t", config.Bias),
		}
	}
	if a.Config.Classifier != config.Classifier {
		return &CompatibilityError{
			Field:    "Classifier",
			Expected: fmt.Sprintf("%t", a.Config.Classifier),
			Actual:   fmt.Sprintf("%t", config.Classifier),
		}
	}
	return nil
}

// CompatibilityError represents a resume compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
