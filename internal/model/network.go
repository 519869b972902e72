package model

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/fkgruber/mlrose-ky/internal/neural"
	"github.com/fkgruber/mlrose-ky/internal/opt"
)

// NetworkConfig collects every hyperparameter of a NeuralNetwork. Start
// from DefaultNetworkConfig; the zero value fails validation.
type NetworkConfig struct {
	// HiddenNodes lists the hidden layer widths; empty means a single
	// weight layer from input to output.
	HiddenNodes []int
	// Activation names the hidden-layer activation: identity, relu,
	// sigmoid or tanh.
	Activation string
	// Algorithm selects the weight search.
	Algorithm Algorithm
	// MaxIters caps the search iterations.
	MaxIters int
	// MaxAttempts bounds consecutive non-improving iterations when
	// EarlyStopping is on.
	MaxAttempts int
	// Bias appends a constant-1 input column.
	Bias bool
	// Classifier trains on log-loss with discrete predictions;
	// otherwise squared error with raw outputs.
	Classifier bool
	// LearningRate scales gradient steps and doubles as the neighbor
	// step size for the local-search algorithms.
	LearningRate float64
	// ClipMax bounds every weight to [-ClipMax, ClipMax].
	ClipMax float64
	// Restarts repeats hill climbing from fresh random states.
	Restarts int
	// Schedule overrides the annealing schedule; nil uses the default
	// geometric decay.
	Schedule opt.Schedule
	// PopSize is the genetic and mayfly population size.
	PopSize int
	// MutationProb is the genetic per-coordinate mutation chance.
	MutationProb float64
	// EarlyStopping stops after MaxAttempts non-improving iterations
	// instead of running out the iteration budget.
	EarlyStopping bool
	// Curve records the best-so-far fitness per iteration during Fit.
	Curve bool
	// Seed fixes the random stream; 0 seeds from the clock.
	Seed int64
	// Workers parallelizes genetic population scoring.
	Workers int
}

// DefaultNetworkConfig mirrors the library defaults: a relu classifier
// trained by random hill climbing.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		Activation:   "relu",
		Algorithm:    RandomHillClimb,
		MaxIters:     100,
		MaxAttempts:  10,
		Bias:         true,
		Classifier:   true,
		LearningRate: 0.1,
		ClipMax:      1e10,
		PopSize:      200,
		MutationProb: 0.1,
	}
}

// NeuralNetwork trains feed-forward network weights with a randomized
// optimization algorithm and predicts with the fitted weights. The fitted
// state is exported so stored models can be reconstructed for prediction
// without refitting.
type NeuralNetwork struct {
	cfg       NetworkConfig
	hiddenAct neural.Activation
	rng       *rand.Rand
	binarizer *labelBinarizer

	// TrainHook, when set, observes every search iteration and can
	// cancel the fit; Fit then returns normally with the best state
	// found so far.
	TrainHook opt.Hook

	// Fitted state, overwritten by each Fit.
	FittedWeights []float64
	NodeList      []int
	OutputAct     neural.Activation
	LossValue     float64
	FitnessCurve  []float64
	Iterations    int
	// Probs keeps the continuous outputs of the latest Predict.
	Probs *mat.Dense
}

// NewNeuralNetwork validates cfg and resolves the activation and algorithm
// names once, so a constructed estimator cannot fail on names later.
func NewNeuralNetwork(cfg NetworkConfig) (*NeuralNetwork, error) {
	hiddenAct, err := neural.ParseActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}
	if _, err := ParseAlgorithm(string(cfg.Algorithm)); err != nil {
		return nil, err
	}
	for _, h := range cfg.HiddenNodes {
		if h <= 0 {
			return nil, &neural.TopologyError{
				NodeList: append([]int(nil), cfg.HiddenNodes...),
				Reason:   "hidden layer sizes must be positive",
			}
		}
	}
	if cfg.MaxIters <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", cfg.MaxIters)
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %v", cfg.LearningRate)
	}
	if cfg.ClipMax <= 0 {
		return nil, fmt.Errorf("weight clip bound must be positive, got %v", cfg.ClipMax)
	}
	if cfg.MutationProb < 0 || cfg.MutationProb > 1 {
		return nil, fmt.Errorf("mutation probability must be within [0, 1], got %v", cfg.MutationProb)
	}
	if cfg.PopSize <= 0 {
		return nil, fmt.Errorf("population size must be positive, got %d", cfg.PopSize)
	}
	if cfg.Restarts < 0 {
		return nil, fmt.Errorf("restarts must not be negative, got %d", cfg.Restarts)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &NeuralNetwork{
		cfg:       cfg,
		hiddenAct: hiddenAct,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Fit trains weights for x against y with the configured algorithm.
func (nn *NeuralNetwork) Fit(x, y *mat.Dense) error {
	return nn.FitInit(x, y, nil)
}

// FitInit trains like Fit but starts the search from initWeights instead
// of a fresh random draw. Resumed training hands previously fitted weights
// back in this way.
func (nn *NeuralNetwork) FitInit(x, y *mat.Dense, initWeights []float64) error {
	if x == nil || y == nil {
		return fmt.Errorf("fit needs both a design matrix and targets")
	}
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr == 0 {
		return fmt.Errorf("fit needs at least one sample")
	}
	if xr != yr {
		return fmt.Errorf("X has %d rows but y has %d", xr, yr)
	}

	target := y
	nn.binarizer = nil
	if nn.cfg.Classifier && yc == 1 {
		lb := &labelBinarizer{}
		lb.fit(y)
		target = lb.transform(y)
		nn.binarizer = lb
		yc = lb.width()
	}

	inputs := xc
	if nn.cfg.Bias {
		inputs++
	}
	nodeList := make([]int, 0, len(nn.cfg.HiddenNodes)+2)
	nodeList = append(nodeList, inputs)
	nodeList = append(nodeList, nn.cfg.HiddenNodes...)
	nodeList = append(nodeList, yc)

	stateSize := neural.StateSize(nodeList)
	if stateSize <= 0 {
		return &neural.TopologyError{
			NodeList: nodeList,
			Reason:   "topology yields no weights",
		}
	}

	fitness, err := neural.NewNetworkWeights(x, target, nodeList, neural.Config{
		Activation:   nn.hiddenAct,
		Bias:         nn.cfg.Bias,
		Classifier:   nn.cfg.Classifier,
		LearningRate: nn.cfg.LearningRate,
	})
	if err != nil {
		return err
	}

	problem, err := opt.NewContinuous(stateSize, fitness, opt.ContinuousConfig{
		MinVal: -nn.cfg.ClipMax,
		MaxVal: nn.cfg.ClipMax,
		Step:   nn.cfg.LearningRate,
		Rand:   nn.rng,
	})
	if err != nil {
		return err
	}

	init := initWeights
	if init == nil {
		// Starting weights always come from [-1, 1], not the clip
		// bounds, which may be enormous.
		init = make([]float64, stateSize)
		for i := range init {
			init[i] = nn.rng.Float64()*2 - 1
		}
	} else if len(init) != stateSize {
		return &neural.ShapeMismatchError{
			Got:      len(init),
			Want:     stateSize,
			NodeList: nodeList,
		}
	}

	result, err := nn.searcher(init).Optimize(problem)
	if err != nil {
		return err
	}

	nn.FittedWeights = result.BestState
	nn.NodeList = nodeList
	nn.OutputAct = fitness.OutputActivation()
	nn.LossValue = result.BestFitness
	nn.FitnessCurve = result.Curve
	nn.Iterations = result.Iterations
	nn.Probs = nil

	slog.Debug("fit complete",
		"algorithm", string(nn.cfg.Algorithm),
		"loss", nn.LossValue,
		"weights", len(nn.FittedWeights),
		"iterations", nn.Iterations,
	)
	return nil
}

// searcher assembles the configured algorithm around an initial state.
// Without early stopping the attempt budget equals the iteration budget,
// so only the iteration cap can end the run.
func (nn *NeuralNetwork) searcher(init []float64) opt.Optimizer {
	attempts := nn.cfg.MaxAttempts
	if !nn.cfg.EarlyStopping {
		attempts = nn.cfg.MaxIters
	}
	switch nn.cfg.Algorithm {
	case SimulatedAnnealing:
		return &opt.SimulatedAnnealing{
			Schedule:    nn.cfg.Schedule,
			MaxAttempts: attempts,
			MaxIters:    nn.cfg.MaxIters,
			InitState:   init,
			Curve:       nn.cfg.Curve,
			Hook:        nn.TrainHook,
		}
	case GeneticAlg:
		return &opt.GeneticAlgorithm{
			PopSize:      nn.cfg.PopSize,
			MutationProb: nn.cfg.MutationProb,
			Workers:      nn.cfg.Workers,
			MaxAttempts:  attempts,
			MaxIters:     nn.cfg.MaxIters,
			InitState:    init,
			Curve:        nn.cfg.Curve,
			Hook:         nn.TrainHook,
		}
	case GradientDescent:
		return &opt.GradientDescent{
			MaxAttempts: attempts,
			MaxIters:    nn.cfg.MaxIters,
			InitState:   init,
			Curve:       nn.cfg.Curve,
			Hook:        nn.TrainHook,
		}
	case MayflySearch:
		return &opt.Mayfly{
			MaxIters: nn.cfg.MaxIters,
			PopSize:  nn.cfg.PopSize,
			Seed:     nn.cfg.Seed,
		}
	default:
		return &opt.RandomHillClimb{
			MaxAttempts: attempts,
			MaxIters:    nn.cfg.MaxIters,
			Restarts:    nn.cfg.Restarts,
			InitState:   init,
			Curve:       nn.cfg.Curve,
			Hook:        nn.TrainHook,
		}
	}
}

// Restore installs previously fitted state so Predict and Score work
// without refitting. The weight vector must decode against nodeList, and
// outputActivation must name the activation the topology implies under
// the network's classifier setting.
func (nn *NeuralNetwork) Restore(weights []float64, nodeList []int, outputActivation string) error {
	if len(nodeList) < 2 {
		return &neural.TopologyError{
			NodeList: nodeList,
			Reason:   "needs at least input and output sizes",
		}
	}
	if want := neural.StateSize(nodeList); len(weights) != want {
		return &neural.ShapeMismatchError{Got: len(weights), Want: want, NodeList: nodeList}
	}
	outAct := neural.OutputActivationFor(nn.cfg.Classifier, nodeList[len(nodeList)-1])
	if outAct.String() != outputActivation {
		return fmt.Errorf("output activation %q does not match topology (want %s)", outputActivation, outAct)
	}

	nn.FittedWeights = weights
	nn.NodeList = nodeList
	nn.OutputAct = outAct
	return nil
}

// Predict runs the fitted network over x. Classifiers return discrete
// labels, thresholding at 0.5 for a single output column and marking the
// first maximum per row beyond that; the continuous outputs stay available
// in Probs. Regressors return raw outputs.
func (nn *NeuralNetwork) Predict(x *mat.Dense) (*mat.Dense, error) {
	if nn.FittedWeights == nil || nn.NodeList == nil || nn.OutputAct == nil {
		return nil, fmt.Errorf("predict before fit: no fitted weights")
	}
	out, err := neural.FeedForward(x, nn.FittedWeights, nn.NodeList, nn.hiddenAct, nn.OutputAct, nn.cfg.Bias)
	if err != nil {
		return nil, err
	}
	nn.Probs = out
	if !nn.cfg.Classifier {
		return out, nil
	}

	r, c := out.Dims()
	labels := mat.NewDense(r, c, nil)
	if c == 1 {
		for i := 0; i < r; i++ {
			if out.At(i, 0) > 0.5 {
				labels.Set(i, 0, 1)
			}
		}
		return labels, nil
	}
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if out.At(i, j) > out.At(i, best) {
				best = j
			}
		}
		labels.Set(i, best, 1)
	}
	return labels, nil
}

// Score reports classification accuracy against y, counting a multi-column
// row as correct only when every column matches. Regressors report the
// negated mean squared error so larger is better for both modes.
func (nn *NeuralNetwork) Score(x, y *mat.Dense) (float64, error) {
	pred, err := nn.Predict(x)
	if err != nil {
		return 0, err
	}
	yr, yc := y.Dims()
	pr, pc := pred.Dims()
	if yr != pr {
		return 0, fmt.Errorf("y has %d rows but predictions have %d", yr, pr)
	}

	if !nn.cfg.Classifier {
		if yc != pc {
			return 0, fmt.Errorf("y has %d columns but predictions have %d", yc, pc)
		}
		var sum float64
		for i := 0; i < yr; i++ {
			for j := 0; j < yc; j++ {
				d := pred.At(i, j) - y.At(i, j)
				sum += d * d
			}
		}
		return -sum / float64(yr*yc), nil
	}

	target := y
	if nn.binarizer != nil && yc == 1 {
		target = nn.binarizer.transform(y)
	}
	if _, tc := target.Dims(); tc != pc {
		return 0, fmt.Errorf("targets have %d columns but predictions have %d", tc, pc)
	}
	correct := 0
	for i := 0; i < yr; i++ {
		match := true
		for j := 0; j < pc; j++ {
			if target.At(i, j) != pred.At(i, j) {
				match = false
				break
			}
		}
		if match {
			correct++
		}
	}
	return float64(correct) / float64(yr), nil
}

// Params reports the hyperparameters under their conventional names.
func (nn *NeuralNetwork) Params() Params {
	return Params{
		"hidden_nodes":   append([]int(nil), nn.cfg.HiddenNodes...),
		"activation":     nn.cfg.Activation,
		"algorithm":      string(nn.cfg.Algorithm),
		"max_iters":      nn.cfg.MaxIters,
		"max_attempts":   nn.cfg.MaxAttempts,
		"bias":           nn.cfg.Bias,
		"is_classifier":  nn.cfg.Classifier,
		"learning_rate":  nn.cfg.LearningRate,
		"clip_max":       nn.cfg.ClipMax,
		"restarts":       nn.cfg.Restarts,
		"pop_size":       nn.cfg.PopSize,
		"mutation_prob":  nn.cfg.MutationProb,
		"early_stopping": nn.cfg.EarlyStopping,
		"curve":          nn.cfg.Curve,
		"random_state":   nn.cfg.Seed,
		"workers":        nn.cfg.Workers,
	}
}

// SetParams overrides hyperparameters by name and revalidates the whole
// configuration. Unknown names are an error so harness typos surface
// instead of silently fitting defaults.
func (nn *NeuralNetwork) SetParams(p Params) error {
	cfg := nn.cfg
	for name, value := range p {
		if err := applyParam(&cfg, name, value); err != nil {
			return err
		}
	}
	fresh, err := NewNeuralNetwork(cfg)
	if err != nil {
		return err
	}
	nn.cfg = fresh.cfg
	nn.hiddenAct = fresh.hiddenAct
	nn.rng = fresh.rng
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (nn *NeuralNetwork) Clone() Estimator {
	fresh, err := NewNeuralNetwork(nn.cfg)
	if err != nil {
		// cfg passed validation when nn was built.
		panic(err)
	}
	return fresh
}

func applyParam(cfg *NetworkConfig, name string, value any) error {
	switch name {
	case "hidden_nodes":
		v, ok := value.([]int)
		if !ok {
			return paramTypeError(name, "[]int", value)
		}
		cfg.HiddenNodes = append([]int(nil), v...)
	case "activation":
		v, ok := value.(string)
		if !ok {
			return paramTypeError(name, "string", value)
		}
		cfg.Activation = v
	case "algorithm":
		v, ok := value.(string)
		if !ok {
			return paramTypeError(name, "string", value)
		}
		cfg.Algorithm = Algorithm(v)
	case "max_iters":
		v, ok := value.(int)
		if !ok {
			return paramTypeError(name, "int", value)
		}
		cfg.MaxIters = v
	case "max_attempts":
		v, ok := value.(int)
		if !ok {
			return paramTypeError(name, "int", value)
		}
		cfg.MaxAttempts = v
	case "bias":
		v, ok := value.(bool)
		if !ok {
			return paramTypeError(name, "bool", value)
		}
		cfg.Bias = v
	case "is_classifier":
		v, ok := value.(bool)
		if !ok {
			return paramTypeError(name, "bool", value)
		}
		cfg.Classifier = v
	case "learning_rate":
		v, ok := value.(float64)
		if !ok {
			return paramTypeError(name, "float64", value)
		}
		cfg.LearningRate = v
	case "clip_max":
		v, ok := value.(float64)
		if !ok {
			return paramTypeError(name, "float64", value)
		}
		cfg.ClipMax = v
	case "restarts":
		v, ok := value.(int)
		if !ok {
			return paramTypeError(name, "int", value)
		}
		cfg.Restarts = v
	case "schedule":
		v, ok := value.(opt.Schedule)
		if !ok {
			return paramTypeError(name, "opt.Schedule", value)
		}
		cfg.Schedule = v
	case "pop_size":
		v, ok := value.(int)
		if !ok {
			return paramTypeError(name, "int", value)
		}
		cfg.PopSize = v
	case "mutation_prob":
		v, ok := value.(float64)
		if !ok {
			return paramTypeError(name, "float64", value)
		}
		cfg.MutationProb = v
	case "early_stopping":
		v, ok := value.(bool)
		if !ok {
			return paramTypeError(name, "bool", value)
		}
		cfg.EarlyStopping = v
	case "curve":
		v, ok := value.(bool)
		if !ok {
			return paramTypeError(name, "bool", value)
		}
		cfg.Curve = v
	case "random_state":
		switch v := value.(type) {
		case int64:
			cfg.Seed = v
		case int:
			cfg.Seed = int64(v)
		default:
			return paramTypeError(name, "int64", value)
		}
	case "workers":
		v, ok := value.(int)
		if !ok {
			return paramTypeError(name, "int", value)
		}
		cfg.Workers = v
	default:
		return fmt.Errorf("unknown hyperparameter %q", name)
	}
	return nil
}

func paramTypeError(name, want string, got any) error {
	return fmt.Errorf("hyperparameter %q wants %s, got %T", name, want, got)
}
