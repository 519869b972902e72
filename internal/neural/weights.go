package neural

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// logEps keeps predicted probabilities away from 0 and 1 before logs.
const logEps = 1e-10

// Config holds the fixed choices of a NetworkWeights adapter.
type Config struct {
	// Activation applies to every hidden layer.
	Activation Activation
	// Bias appends a constant-1 column to X before the first layer.
	Bias bool
	// Classifier selects log-loss with a sigmoid or softmax output;
	// otherwise mean squared error with an identity output.
	Classifier bool
	// LearningRate scales the update step produced by Updates.
	LearningRate float64
}

// NetworkWeights scores flat weight vectors against one fixed dataset and
// layer topology, and derives gradient update steps for gradient descent.
// The dataset matrices are treated as read-only for the adapter's
// lifetime; Evaluate and EvalGrad are safe for concurrent use.
type NetworkWeights struct {
	x        *mat.Dense // bias column already appended when enabled
	y        *mat.Dense
	nodeList []int
	cfg      Config
	output   Activation
}

// NewNetworkWeights validates the dataset against the layer sizes and
// returns an adapter. The first layer must match the feature count (plus
// one when bias is enabled) and the last must match the target width.
func NewNetworkWeights(x, y *mat.Dense, nodeList []int, cfg Config) (*NetworkWeights, error) {
	if x == nil || y == nil {
		return nil, fmt.Errorf("dataset matrices must not be nil")
	}
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr != yr {
		return nil, fmt.Errorf("X has %d rows but y has %d", xr, yr)
	}
	if len(nodeList) < 2 {
		return nil, &TopologyError{
			NodeList: append([]int(nil), nodeList...),
			Reason:   "need at least an input and an output layer",
		}
	}
	for _, n := range nodeList {
		if n <= 0 {
			return nil, &TopologyError{
				NodeList: append([]int(nil), nodeList...),
				Reason:   "layer sizes must be positive",
			}
		}
	}
	wantIn := xc
	if cfg.Bias {
		wantIn++
	}
	if nodeList[0] != wantIn {
		return nil, &TopologyError{
			NodeList: append([]int(nil), nodeList...),
			Reason:   fmt.Sprintf("first layer has %d nodes, %d features with bias=%v need %d", nodeList[0], xc, cfg.Bias, wantIn),
		}
	}
	if last := nodeList[len(nodeList)-1]; last != yc {
		return nil, &TopologyError{
			NodeList: append([]int(nil), nodeList...),
			Reason:   fmt.Sprintf("last layer has %d nodes, targets have %d columns", last, yc),
		}
	}
	if cfg.Activation == nil {
		return nil, fmt.Errorf("hidden activation must be set")
	}
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %v", cfg.LearningRate)
	}

	input := x
	if cfg.Bias {
		input = appendBias(x)
	}
	return &NetworkWeights{
		x:        input,
		y:        y,
		nodeList: append([]int(nil), nodeList...),
		cfg:      cfg,
		output:   OutputActivationFor(cfg.Classifier, yc),
	}, nil
}

// NodeList returns a copy of the layer sizes.
func (nw *NetworkWeights) NodeList() []int {
	return append([]int(nil), nw.nodeList...)
}

// StateSize returns the length of the flat weight vectors the adapter
// expects.
func (nw *NetworkWeights) StateSize() int { return StateSize(nw.nodeList) }

// OutputActivation returns the output-layer activation the adapter paired
// with its loss.
func (nw *NetworkWeights) OutputActivation() Activation { return nw.output }

// Pass carries the intermediates of one forward propagation: the
// unflattened weights, each layer's input and pre-activation, the network
// output and the loss. It is the explicit context Updates consumes.
type Pass struct {
	Weights []*mat.Dense
	Inputs  []*mat.Dense // Inputs[i] feeds layer i; Inputs[0] is X
	PreActs []*mat.Dense // PreActs[i] = Inputs[i] * Weights[i]
	Output  *mat.Dense
	Loss    float64
}

// Forward propagates flat through the network and returns the full pass
// context, including the loss for the adapter's configured mode.
func (nw *NetworkWeights) Forward(flat []float64) (*Pass, error) {
	weights, err := UnflattenWeights(flat, nw.nodeList)
	if err != nil {
		return nil, err
	}
	layers := len(weights)
	pass := &Pass{
		Weights: weights,
		Inputs:  make([]*mat.Dense, layers),
		PreActs: make([]*mat.Dense, layers),
	}
	a := nw.x
	for i, w := range weights {
		pass.Inputs[i] = a
		var z mat.Dense
		z.Mul(a, w)
		pass.PreActs[i] = &z
		if i < layers-1 {
			a = nw.cfg.Activation.Apply(&z)
		} else {
			a = nw.output.Apply(&z)
		}
	}
	pass.Output = a
	pass.Loss = nw.loss(a)
	return pass, nil
}

// Updates derives the per-layer weight update steps from a forward pass.
// The output delta is the raw prediction error; that shortcut is exact for
// the loss and output-activation pairings the adapter constructs.
func (nw *NetworkWeights) Updates(pass *Pass) []*mat.Dense {
	layers := len(pass.Weights)
	deltas := make([]*mat.Dense, layers)

	var last mat.Dense
	last.Sub(pass.Output, nw.y)
	deltas[layers-1] = &last

	for i := layers - 2; i >= 0; i-- {
		var back mat.Dense
		back.Mul(deltas[i+1], pass.Weights[i+1].T())
		var d mat.Dense
		d.MulElem(&back, nw.cfg.Activation.Deriv(pass.PreActs[i]))
		deltas[i] = &d
	}

	updates := make([]*mat.Dense, layers)
	for i := range updates {
		var u mat.Dense
		u.Mul(pass.Inputs[i].T(), deltas[i])
		u.Scale(-nw.cfg.LearningRate, &u)
		updates[i] = &u
	}
	return updates
}

// UpdatesFlat flattens the update matrices into the search-state layout.
func (nw *NetworkWeights) UpdatesFlat(pass *Pass) []float64 {
	return FlattenWeights(nw.Updates(pass))
}

// Evaluate reports the loss for flat. This is the hot-path fitness method;
// a vector of the wrong length is a caller bug and panics.
func (nw *NetworkWeights) Evaluate(flat []float64) float64 {
	pass, err := nw.Forward(flat)
	if err != nil {
		panic(fmt.Sprintf("neural: evaluate: %v", err))
	}
	return pass.Loss
}

// EvalGrad reports the loss and the flattened update step for flat in one
// forward pass.
func (nw *NetworkWeights) EvalGrad(flat []float64) (float64, []float64) {
	pass, err := nw.Forward(flat)
	if err != nil {
		panic(fmt.Sprintf("neural: evaluate: %v", err))
	}
	return pass.Loss, nw.UpdatesFlat(pass)
}

// loss computes log-loss for classifiers and mean squared error otherwise.
// Multi-column log-loss sums y*log(p) over columns; the single-column form
// also credits the complement class.
func (nw *NetworkWeights) loss(pred *mat.Dense) float64 {
	r, c := pred.Dims()
	if !nw.cfg.Classifier {
		var sum float64
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				d := pred.At(i, j) - nw.y.At(i, j)
				sum += d * d
			}
		}
		return sum / float64(r*c)
	}
	if c == 1 {
		var sum float64
		for i := 0; i < r; i++ {
			p := clampProb(pred.At(i, 0))
			yv := nw.y.At(i, 0)
			sum += yv*math.Log(p) + (1-yv)*math.Log(1-p)
		}
		return -sum / float64(r)
	}
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if yv := nw.y.At(i, j); yv != 0 {
				sum += yv * math.Log(clampProb(pred.At(i, j)))
			}
		}
	}
	return -sum / float64(r)
}

func clampProb(p float64) float64 {
	if p < logEps {
		return logEps
	}
	if p > 1-logEps {
		return 1 - logEps
	}
	return p
}

// FeedForward propagates x through flat weights without a fitness context.
// Prediction against stored weights goes through here. The bias column is
// appended when bias is set; hidden layers use hidden, the last layer uses
// output.
func FeedForward(x *mat.Dense, flat []float64, nodeList []int, hidden, output Activation, bias bool) (*mat.Dense, error) {
	if len(nodeList) < 2 {
		return nil, &TopologyError{
			NodeList: append([]int(nil), nodeList...),
			Reason:   "need at least an input and an output layer",
		}
	}
	weights, err := UnflattenWeights(flat, nodeList)
	if err != nil {
		return nil, err
	}
	a := x
	if bias {
		a = appendBias(x)
	}
	if _, c := a.Dims(); c != nodeList[0] {
		return nil, &TopologyError{
			NodeList: append([]int(nil), nodeList...),
			Reason:   fmt.Sprintf("input has %d columns, first layer needs %d", c, nodeList[0]),
		}
	}
	for i, w := range weights {
		var z mat.Dense
		z.Mul(a, w)
		if i < len(weights)-1 {
			a = hidden.Apply(&z)
		} else {
			a = output.Apply(&z)
		}
	}
	return a, nil
}

// appendBias returns x with a constant-1 column appended.
func appendBias(x *mat.Dense) *mat.Dense {
	r, _ := x.Dims()
	ones := make([]float64, r)
	for i := range ones {
		ones[i] = 1
	}
	var out mat.Dense
	out.Augment(x, mat.NewDense(r, 1, ones))
	return &out
}

// ErrInvalidTopology is returned for unusable layer-size lists. Use
// errors.Is(err, ErrInvalidTopology).
var ErrInvalidTopology = &TopologyError{}

// TopologyError reports a layer-size list that cannot describe a network
// for the data it was paired with.
type TopologyError struct {
	NodeList []int
	Reason   string
}

func (e *TopologyError) Error() string {
	if e.Reason == "" {
		return "invalid network topology"
	}
	return fmt.Sprintf("invalid network topology %v: %s", e.NodeList, e.Reason)
}

func (e *TopologyError) Is(target error) bool {
	_, ok := target.(*TopologyError)
	return ok
}
