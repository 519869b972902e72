package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/fkgruber/mlrose-ky/internal/neural"
)

func sampleData(t *testing.T) (x, yClass *mat.Dense) {
	t.Helper()
	x = mat.NewDense(6, 4, []float64{
		0, 1, 0, 1,
		0, 0, 0, 0,
		1, 1, 1, 1,
		1, 1, 1, 1,
		0, 0, 1, 1,
		1, 0, 0, 0,
	})
	yClass = mat.NewDense(6, 1, []float64{1, 1, 0, 0, 1, 1})
	return x, yClass
}

// fitConfig is the shared fixture for the fit tests: one hidden pair of
// nodes, identity activation, no bias and weights pinned to [-1, 1].
func fitConfig(algorithm Algorithm) NetworkConfig {
	cfg := DefaultNetworkConfig()
	cfg.HiddenNodes = []int{2}
	cfg.Activation = "identity"
	cfg.Algorithm = algorithm
	cfg.Bias = false
	cfg.LearningRate = 1
	cfg.ClipMax = 1
	cfg.Seed = 42
	return cfg
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func TestFitAlgorithms(t *testing.T) {
	x, y := sampleData(t)
	for _, algorithm := range []Algorithm{RandomHillClimb, SimulatedAnnealing, GeneticAlg, GradientDescent} {
		t.Run(string(algorithm), func(t *testing.T) {
			nn, err := NewNeuralNetwork(fitConfig(algorithm))
			require.NoError(t, err)
			require.NoError(t, nn.FitInit(x, y, ones(10)))

			require.Len(t, nn.FittedWeights, 10)
			assert.Equal(t, []int{4, 2, 1}, nn.NodeList)
			sum := 0.0
			for i, w := range nn.FittedWeights {
				assert.GreaterOrEqual(t, w, -1.0, "weight %d below the clip bound", i)
				assert.LessOrEqual(t, w, 1.0, "weight %d above the clip bound", i)
				sum += w
			}
			assert.Less(t, sum, 10.0, "search must move off the all-ones start")
			assert.Greater(t, nn.LossValue, 0.0)
			assert.Equal(t, "sigmoid", nn.OutputAct.String())
		})
	}
}

func TestFitMayfly(t *testing.T) {
	x, y := sampleData(t)
	cfg := fitConfig(MayflySearch)
	cfg.PopSize = 20
	cfg.MaxIters = 30
	nn, err := NewNeuralNetwork(cfg)
	require.NoError(t, err)
	require.NoError(t, nn.Fit(x, y))

	require.Len(t, nn.FittedWeights, 10)
	assert.False(t, math.IsNaN(nn.LossValue))
	assert.Greater(t, nn.LossValue, 0.0)
}

func TestFitRunsOutIterationBudget(t *testing.T) {
	x, y := sampleData(t)
	cfg := fitConfig(RandomHillClimb)
	cfg.MaxIters = 30
	nn, err := NewNeuralNetwork(cfg)
	require.NoError(t, err)
	require.NoError(t, nn.Fit(x, y))
	// Early stopping is off, so the attempt budget can never end the
	// run before the iteration cap.
	assert.Equal(t, 30, nn.Iterations)
}

func TestFitEarlyStopping(t *testing.T) {
	x, y := sampleData(t)
	cfg := fitConfig(RandomHillClimb)
	cfg.EarlyStopping = true
	cfg.MaxAttempts = 5
	cfg.MaxIters = 10000
	nn, err := NewNeuralNetwork(cfg)
	require.NoError(t, err)
	require.NoError(t, nn.Fit(x, y))
	assert.Less(t, nn.Iterations, 10000, "a stall should end the run before the cap")
}

func TestFitCurve(t *testing.T) {
	x, y := sampleData(t)
	cfg := fitConfig(SimulatedAnnealing)
	cfg.Curve = true
	cfg.MaxAttempts = 100
	nn, err := NewNeuralNetwork(cfg)
	require.NoError(t, err)
	require.NoError(t, nn.Fit(x, y))

	require.NotEmpty(t, nn.FitnessCurve)
	for i := 1; i < len(nn.FitnessCurve); i++ {
		assert.LessOrEqual(t, nn.FitnessCurve[i], nn.FitnessCurve[i-1],
			"best-so-far loss must never rise")
	}
	assert.Equal(t, nn.LossValue, nn.FitnessCurve[len(nn.FitnessCurve)-1])
}

func TestFitValidation(t *testing.T) {
	x, y := sampleData(t)
	nn, err := NewNeuralNetwork(fitConfig(RandomHillClimb))
	require.NoError(t, err)

	assert.Error(t, nn.Fit(nil, y))
	assert.Error(t, nn.Fit(x, nil))
	assert.Error(t, nn.Fit(x, mat.NewDense(3, 1, []float64{1, 0, 1})), "row mismatch")

	err = nn.FitInit(x, y, ones(7))
	require.Error(t, err)
	assert.ErrorIs(t, err, neural.ErrShapeMismatch)
}

func TestFitMulticlassOneHot(t *testing.T) {
	x, _ := sampleData(t)
	y := mat.NewDense(6, 1, []float64{0, 1, 2, 0, 1, 2})
	nn, err := NewNeuralNetwork(fitConfig(RandomHillClimb))
	require.NoError(t, err)
	require.NoError(t, nn.Fit(x, y))

	assert.Equal(t, []int{4, 2, 3}, nn.NodeList)
	assert.Equal(t, "softmax", nn.OutputAct.String())

	pred, err := nn.Predict(x)
	require.NoError(t, err)
	r, c := pred.Dims()
	require.Equal(t, 6, r)
	require.Equal(t, 3, c)
	for i := 0; i < r; i++ {
		rowSum := 0.0
		for j := 0; j < c; j++ {
			v := pred.At(i, j)
			assert.True(t, v == 0 || v == 1, "prediction at (%d,%d) = %v is not one-hot", i, j, v)
			rowSum += v
		}
		assert.Equal(t, 1.0, rowSum, "row %d marks %v classes", i, rowSum)
	}
}

func TestNewNeuralNetworkValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*NetworkConfig)
	}{
		{"unknown activation", func(c *NetworkConfig) { c.Activation = "swish" }},
		{"unknown algorithm", func(c *NetworkConfig) { c.Algorithm = "tabu_search" }},
		{"zero hidden layer", func(c *NetworkConfig) { c.HiddenNodes = []int{2, 0} }},
		{"zero iterations", func(c *NetworkConfig) { c.MaxIters = 0 }},
		{"zero attempts", func(c *NetworkConfig) { c.MaxAttempts = 0 }},
		{"bad learning rate", func(c *NetworkConfig) { c.LearningRate = 0 }},
		{"bad clip", func(c *NetworkConfig) { c.ClipMax = -1 }},
		{"bad mutation", func(c *NetworkConfig) { c.MutationProb = 2 }},
		{"bad population", func(c *NetworkConfig) { c.PopSize = 0 }},
		{"negative restarts", func(c *NetworkConfig) { c.Restarts = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultNetworkConfig()
			tc.mutate(&cfg)
			_, err := NewNeuralNetwork(cfg)
			assert.Error(t, err)
		})
	}
}

func TestPredictBeforeFit(t *testing.T) {
	x, _ := sampleData(t)
	nn, err := NewNeuralNetwork(DefaultNetworkConfig())
	require.NoError(t, err)
	_, err = nn.Predict(x)
	assert.Error(t, err)
}

func TestRestore(t *testing.T) {
	x, _ := sampleData(t)
	nn, err := NewNeuralNetwork(fitConfig(RandomHillClimb))
	require.NoError(t, err)

	require.NoError(t, nn.Restore(ones(10), []int{4, 2, 1}, "sigmoid"))

	// Identity hidden activation and all-ones weights reduce each row to
	// twice its feature sum, so only the all-zero row stays below 0.5.
	labels, err := nn.Predict(x)
	require.NoError(t, err)
	want := []float64{1, 0, 1, 1, 1, 1}
	for i, w := range want {
		assert.Equal(t, w, labels.At(i, 0), "row %d", i)
	}
}

func TestRestoreRejectsBadState(t *testing.T) {
	nn, err := NewNeuralNetwork(fitConfig(RandomHillClimb))
	require.NoError(t, err)

	err = nn.Restore(ones(7), []int{4, 2, 1}, "sigmoid")
	assert.ErrorIs(t, err, neural.ErrShapeMismatch)

	err = nn.Restore(ones(4), []int{4}, "sigmoid")
	assert.ErrorIs(t, err, neural.ErrInvalidTopology)

	err = nn.Restore(ones(10), []int{4, 2, 1}, "softmax")
	assert.Error(t, err, "a single sigmoid column cannot restore as softmax")

	assert.Nil(t, nn.FittedWeights, "rejected state must not install")
}

// fittedNetwork builds an estimator with its fitted state installed
// directly, the way a stored model is reconstructed.
func fittedNetwork(t *testing.T, cfg NetworkConfig, nodeList []int, weights []float64, output neural.Activation) *NeuralNetwork {
	t.Helper()
	nn, err := NewNeuralNetwork(cfg)
	require.NoError(t, err)
	nn.FittedWeights = weights
	nn.NodeList = nodeList
	nn.OutputAct = output
	return nn
}

func TestPredictSoftmaxNoBias(t *testing.T) {
	x, _ := sampleData(t)
	nn := fittedNetwork(t, fitConfig(RandomHillClimb), []int{4, 2, 2},
		[]float64{0.2, 0.5, 0.3, 0.4, 0.4, 0.3, 0.5, 0.2, -1, 1, 1, -1},
		neural.Softmax{})

	labels, err := nn.Predict(x)
	require.NoError(t, err)

	wantLabels := [][]float64{{0, 1}, {1, 0}, {1, 0}, {1, 0}, {0, 1}, {1, 0}}
	wantProbs := [][]float64{
		{0.40131, 0.59869},
		{0.5, 0.5},
		{0.5, 0.5},
		{0.5, 0.5},
		{0.31003, 0.68997},
		{0.64566, 0.35434},
	}
	for i := 0; i < 6; i++ {
		for j := 0; j < 2; j++ {
			assert.Equal(t, wantLabels[i][j], labels.At(i, j), "label at (%d,%d)", i, j)
			assert.InDelta(t, wantProbs[i][j], nn.Probs.At(i, j), 1e-4, "probability at (%d,%d)", i, j)
		}
	}
}

func TestPredictSoftmaxBias(t *testing.T) {
	x, _ := sampleData(t)
	cfg := fitConfig(RandomHillClimb)
	cfg.Bias = true
	nn := fittedNetwork(t, cfg, []int{5, 2, 2},
		[]float64{0.2, 0.5, 0.3, 0.4, 0.4, 0.3, 0.5, 0.2, 1, -1, -0.1, 0.1, 0.1, -0.1},
		neural.Softmax{})

	labels, err := nn.Predict(x)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		assert.Equal(t, 0.0, labels.At(i, 0), "row %d", i)
		assert.Equal(t, 1.0, labels.At(i, 1), "row %d", i)
	}
}

func TestLinearRegressionPredict(t *testing.T) {
	x, _ := sampleData(t)

	cfg := DefaultNetworkConfig()
	cfg.Bias = false
	lr, err := NewLinearRegression(cfg)
	require.NoError(t, err)
	lr.FittedWeights = ones(4)
	lr.NodeList = []int{4, 1}
	lr.OutputAct = neural.Identity{}

	pred, err := lr.Predict(x)
	require.NoError(t, err)
	want := []float64{2, 0, 4, 4, 2, 1}
	for i, w := range want {
		assert.Equal(t, w, pred.At(i, 0), "row %d", i)
	}
}

func TestLinearRegressionPredictBias(t *testing.T) {
	x, _ := sampleData(t)

	lr, err := NewLinearRegression(DefaultNetworkConfig())
	require.NoError(t, err)
	lr.FittedWeights = ones(5)
	lr.NodeList = []int{5, 1}
	lr.OutputAct = neural.Identity{}

	pred, err := lr.Predict(x)
	require.NoError(t, err)
	want := []float64{3, 1, 5, 5, 3, 2}
	for i, w := range want {
		assert.Equal(t, w, pred.At(i, 0), "row %d", i)
	}
}

func TestLogisticRegressionPredict(t *testing.T) {
	x, _ := sampleData(t)

	cfg := DefaultNetworkConfig()
	cfg.Bias = false
	lr, err := NewLogisticRegression(cfg)
	require.NoError(t, err)
	lr.FittedWeights = []float64{-1, 1, 1, 1}
	lr.NodeList = []int{4, 1}
	lr.OutputAct = neural.Sigmoid{}

	labels, err := lr.Predict(x)
	require.NoError(t, err)
	wantLabels := []float64{1, 0, 1, 1, 1, 0}
	wantProbs := []float64{0.88080, 0.5, 0.88080, 0.88080, 0.88080, 0.26894}
	for i := range wantLabels {
		assert.Equal(t, wantLabels[i], labels.At(i, 0), "label row %d", i)
		assert.InDelta(t, wantProbs[i], lr.Probs.At(i, 0), 1e-4, "probability row %d", i)
	}
}

func TestLogisticRegressionPredictBias(t *testing.T) {
	x, _ := sampleData(t)

	lr, err := NewLogisticRegression(DefaultNetworkConfig())
	require.NoError(t, err)
	lr.FittedWeights = []float64{-1, 1, 1, 1, -1}
	lr.NodeList = []int{5, 1}
	lr.OutputAct = neural.Sigmoid{}

	labels, err := lr.Predict(x)
	require.NoError(t, err)
	wantLabels := []float64{1, 0, 1, 1, 1, 0}
	wantProbs := []float64{0.73106, 0.26894, 0.73106, 0.73106, 0.73106, 0.11920}
	for i := range wantLabels {
		assert.Equal(t, wantLabels[i], labels.At(i, 0), "label row %d", i)
		assert.InDelta(t, wantProbs[i], lr.Probs.At(i, 0), 1e-4, "probability row %d", i)
	}
}

func TestScoreAccuracy(t *testing.T) {
	x, y := sampleData(t)
	cfg := DefaultNetworkConfig()
	cfg.Bias = false
	lr, err := NewLogisticRegression(cfg)
	require.NoError(t, err)
	lr.FittedWeights = []float64{-1, 1, 1, 1}
	lr.NodeList = []int{4, 1}
	lr.OutputAct = neural.Sigmoid{}

	// Predictions [1 0 1 1 1 0] against [1 1 0 0 1 1] agree on rows
	// 0 and 4.
	score, err := lr.Score(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/6.0, score, 1e-12)
}

func TestScoreRegression(t *testing.T) {
	x, _ := sampleData(t)
	cfg := DefaultNetworkConfig()
	cfg.Bias = false
	lr, err := NewLinearRegression(cfg)
	require.NoError(t, err)
	lr.FittedWeights = ones(4)
	lr.NodeList = []int{4, 1}
	lr.OutputAct = neural.Identity{}

	exact := mat.NewDense(6, 1, []float64{2, 0, 4, 4, 2, 1})
	score, err := lr.Score(x, exact)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score, "exact predictions score a zero negated error")

	shifted := mat.NewDense(6, 1, []float64{3, 1, 5, 5, 3, 2})
	score, err = lr.Score(x, shifted)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, score, 1e-12, "a constant off-by-one costs a squared unit")
}

func TestScoreRelabeledClasses(t *testing.T) {
	x, _ := sampleData(t)
	y := mat.NewDense(6, 1, []float64{7, 7, 3, 3, 7, 7})
	cfg := fitConfig(RandomHillClimb)
	nn, err := NewNeuralNetwork(cfg)
	require.NoError(t, err)
	require.NoError(t, nn.Fit(x, y))

	// Raw labels are 3 and 7 while predictions are 0/1; scoring must
	// run them through the same binarization as fitting.
	score, err := nn.Score(x, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestLabelBinarizer(t *testing.T) {
	binary := mat.NewDense(4, 1, []float64{7, 3, 7, 7})
	lb := &labelBinarizer{}
	lb.fit(binary)
	assert.Equal(t, []float64{3, 7}, lb.classes)
	assert.Equal(t, 1, lb.width())
	got := lb.transform(binary)
	for i, want := range []float64{1, 0, 1, 1} {
		assert.Equal(t, want, got.At(i, 0), "row %d", i)
	}

	multi := mat.NewDense(5, 1, []float64{2, 0, 1, 2, 0})
	lb = &labelBinarizer{}
	lb.fit(multi)
	assert.Equal(t, []float64{0, 1, 2}, lb.classes)
	assert.Equal(t, 3, lb.width())
	oneHot := lb.transform(multi)
	wantRows := [][]float64{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 0}}
	for i, row := range wantRows {
		for j, want := range row {
			assert.Equal(t, want, oneHot.At(i, j), "at (%d,%d)", i, j)
		}
	}
}

func TestParamsRoundTrip(t *testing.T) {
	nn, err := NewNeuralNetwork(DefaultNetworkConfig())
	require.NoError(t, err)

	params := nn.Params()
	assert.Equal(t, "relu", params["activation"])
	assert.Equal(t, "random_hill_climb", params["algorithm"])
	assert.Equal(t, 100, params["max_iters"])
	assert.Equal(t, true, params["is_classifier"])

	require.NoError(t, nn.SetParams(Params{
		"learning_rate": 0.5,
		"algorithm":     "genetic_alg",
		"hidden_nodes":  []int{3, 3},
	}))
	params = nn.Params()
	assert.Equal(t, 0.5, params["learning_rate"])
	assert.Equal(t, "genetic_alg", params["algorithm"])
	assert.Equal(t, []int{3, 3}, params["hidden_nodes"])
}

func TestSetParamsRejectsBadInput(t *testing.T) {
	nn, err := NewNeuralNetwork(DefaultNetworkConfig())
	require.NoError(t, err)

	assert.Error(t, nn.SetParams(Params{"momentum": 0.9}), "unknown name")
	assert.Error(t, nn.SetParams(Params{"max_iters": "many"}), "wrong type")
	assert.Error(t, nn.SetParams(Params{"learning_rate": -1.0}), "invalid value")

	// A rejected update must not partially apply.
	assert.Equal(t, 100, nn.Params()["max_iters"])
	assert.Equal(t, 0.1, nn.Params()["learning_rate"])
}

func TestClone(t *testing.T) {
	x, y := sampleData(t)
	nn, err := NewNeuralNetwork(fitConfig(RandomHillClimb))
	require.NoError(t, err)
	require.NoError(t, nn.Fit(x, y))

	clone, ok := nn.Clone().(*NeuralNetwork)
	require.True(t, ok)
	assert.Nil(t, clone.FittedWeights, "clones start unfitted")
	assert.Equal(t, nn.Params(), clone.Params())

	require.NoError(t, clone.Fit(x, y))
	assert.NotSame(t, &nn.FittedWeights[0], &clone.FittedWeights[0])
}

func TestLinearRegressionCloneKeepsType(t *testing.T) {
	lr, err := NewLinearRegression(DefaultNetworkConfig())
	require.NoError(t, err)
	_, ok := lr.Clone().(*LinearRegression)
	assert.True(t, ok)

	lg, err := NewLogisticRegression(DefaultNetworkConfig())
	require.NoError(t, err)
	_, ok = lg.Clone().(*LogisticRegression)
	assert.True(t, ok)
}

func TestSeededFitsReproduce(t *testing.T) {
	x, y := sampleData(t)
	run := func() []float64 {
		nn, err := NewNeuralNetwork(fitConfig(SimulatedAnnealing))
		require.NoError(t, err)
		require.NoError(t, nn.Fit(x, y))
		return nn.FittedWeights
	}
	assert.Equal(t, run(), run())
}
