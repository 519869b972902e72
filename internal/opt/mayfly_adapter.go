package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// Mayfly adapts the external mayfly-algorithm library to the Optimizer
// surface. It is derivative-free, uses scalar bounds like Continuous and
// records no fitness curve. The library needs a population of at least 20.
type Mayfly struct {
	// MaxIters caps the library's iterations. Defaults to 100.
	MaxIters int
	// PopSize is the mayfly population. Defaults to 20, the library
	// minimum; smaller values are raised to it.
	PopSize int
	// Seed, when non-zero, gives the library its own seeded source
	// instead of sharing the problem's.
	Seed int64
}

// Optimize runs the mayfly search over problem.
func (m *Mayfly) Optimize(problem *Continuous) (*Result, error) {
	maxIters := m.MaxIters
	if maxIters <= 0 {
		maxIters = 100
	}
	popSize := m.PopSize
	if popSize < 20 {
		popSize = 20
	}

	config := mayfly.NewDefaultConfig()
	// The library minimizes; flip maximization problems on the way in
	// and back out.
	config.ObjectiveFunc = func(state []float64) float64 {
		if problem.maximize {
			return -problem.fitness.Evaluate(state)
		}
		return problem.fitness.Evaluate(state)
	}
	config.ProblemSize = problem.dim
	config.MaxIterations = maxIters
	config.NPop = popSize
	config.LowerBound = problem.minVal
	config.UpperBound = problem.maxVal
	if m.Seed != 0 {
		config.Rand = rand.New(rand.NewSource(m.Seed))
	} else {
		config.Rand = problem.rng
	}

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	fitness := result.GlobalBest.Cost
	if problem.maximize {
		fitness = -fitness
	}
	return &Result{
		BestState:   append([]float64(nil), result.GlobalBest.Position...),
		BestFitness: fitness,
		Iterations:  maxIters,
	}, nil
}
