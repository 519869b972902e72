package model

// LinearRegression is the single-layer regression special case: identity
// output trained on mean squared error, no hidden layers.
type LinearRegression struct {
	NeuralNetwork
}

// NewLinearRegression builds a linear regressor from cfg. Hidden layers,
// the activation name and the classifier flag are overridden; everything
// else is honored.
func NewLinearRegression(cfg NetworkConfig) (*LinearRegression, error) {
	cfg.HiddenNodes = nil
	cfg.Activation = "identity"
	cfg.Classifier = false
	nn, err := NewNeuralNetwork(cfg)
	if err != nil {
		return nil, err
	}
	return &LinearRegression{NeuralNetwork: *nn}, nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (lr *LinearRegression) Clone() Estimator {
	fresh, err := NewLinearRegression(lr.cfg)
	if err != nil {
		panic(err)
	}
	return fresh
}

// LogisticRegression is the single-layer classification special case:
// sigmoid output trained on log-loss, no hidden layers.
type LogisticRegression struct {
	NeuralNetwork
}

// NewLogisticRegression builds a logistic classifier from cfg, overriding
// the layer and mode fields the same way NewLinearRegression does.
func NewLogisticRegression(cfg NetworkConfig) (*LogisticRegression, error) {
	cfg.HiddenNodes = nil
	cfg.Activation = "sigmoid"
	cfg.Classifier = true
	nn, err := NewNeuralNetwork(cfg)
	if err != nil {
		return nil, err
	}
	return &LogisticRegression{NeuralNetwork: *nn}, nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (lr *LogisticRegression) Clone() Estimator {
	fresh, err := NewLogisticRegression(lr.cfg)
	if err != nil {
		panic(err)
	}
	return fresh
}
