package opt

import (
	"fmt"
	"math/rand"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
)

// GeneticAlgorithm evolves a population by fitness-proportional selection,
// crossover and uniform-redraw mutation. Selection weights come from the
// population fitnesses shifted so the worst member carries zero weight; a
// population with no fitness spread falls back to uniform selection.
type GeneticAlgorithm struct {
	// PopSize is the population size. Defaults to 200.
	PopSize int
	// MutationProb is the per-coordinate chance of redrawing a child
	// coordinate uniformly within bounds. Defaults to 0.1; must not
	// exceed 1.
	MutationProb float64
	// UniformCrossover flips a coin per coordinate instead of splitting
	// parents at a single random cut point.
	UniformCrossover bool
	// Elite carries the best state seen so far into each generation
	// unchanged.
	Elite bool
	// Workers fans population evaluation out to a goroutine pool.
	// Values below 2 evaluate sequentially. Results are written to
	// fixed indices, so parallel runs reproduce sequential ones.
	Workers int
	// MaxAttempts is the number of consecutive generations without a
	// new best tolerated before stopping. Defaults to 10.
	MaxAttempts int
	// MaxIters caps the generations. Non-positive means no cap.
	MaxIters int
	// InitState, when set, replaces one member of the initial
	// population.
	InitState []float64
	// Curve records the best-so-far fitness per generation.
	Curve bool
	// Hook, when set, is called once per generation and can stop the
	// run.
	Hook Hook
}

// Optimize evolves a population over problem.
func (ga *GeneticAlgorithm) Optimize(problem *Continuous) (*Result, error) {
	popSize := ga.PopSize
	if popSize <= 0 {
		popSize = 200
	}
	mutation := ga.MutationProb
	if mutation == 0 {
		mutation = 0.1
	}
	if mutation < 0 || mutation > 1 {
		return nil, fmt.Errorf("mutation probability must be within [0, 1], got %v", mutation)
	}
	maxAttempts := maxAttemptsOr(ga.MaxAttempts)
	maxIters := maxItersOr(ga.MaxIters)

	pop := problem.RandomPop(popSize)
	if ga.InitState != nil {
		if len(ga.InitState) != problem.dim {
			return nil, fmt.Errorf("initial state has %d components, problem dimension is %d", len(ga.InitState), problem.dim)
		}
		pop[0] = problem.Clip(append([]float64(nil), ga.InitState...))
	}
	fits := make([]float64, popSize)
	ga.evalPop(problem, pop, fits)

	tr := newTracker(problem, ga.Curve)
	var bestState []float64
	for i, f := range fits {
		if tr.Observe(f) {
			bestState = append([]float64(nil), pop[i]...)
		}
	}

	attempts, iters := 0, 0
	for attempts < maxAttempts && iters < maxIters {
		iters++

		probs := mateProbs(fits)
		next := make([][]float64, popSize)
		start := 0
		if ga.Elite {
			next[0] = append([]float64(nil), bestState...)
			start = 1
		}
		for i := start; i < popSize; i++ {
			p1 := pop[rouletteSelect(problem.rng, probs, popSize)]
			p2 := pop[rouletteSelect(problem.rng, probs, popSize)]
			child := ga.crossover(problem.rng, p1, p2)
			ga.mutate(problem, child, mutation)
			next[i] = child
		}
		pop = next
		ga.evalPop(problem, pop, fits)

		improved := false
		for i, f := range fits {
			if tr.Observe(f) {
				bestState = append([]float64(nil), pop[i]...)
				improved = true
			}
		}
		if improved {
			attempts = 0
		} else {
			attempts++
		}
		tr.Mark()
		if ga.Hook != nil && !ga.Hook(iters, tr.BestOriginal()) {
			break
		}
	}

	return &Result{
		BestState:   bestState,
		BestFitness: tr.BestOriginal(),
		Curve:       tr.History(),
		Iterations:  iters,
	}, nil
}

// evalPop scores every member into fits. Evaluation dominates the cost of
// a generation for network-weights fitness and members are independent, so
// it is the one place worth parallelizing.
func (ga *GeneticAlgorithm) evalPop(problem *Continuous, pop [][]float64, fits []float64) {
	if ga.Workers < 2 {
		for i, member := range pop {
			fits[i] = problem.EvalFitness(member)
		}
		return
	}
	workers := pool.New().WithMaxGoroutines(ga.Workers)
	for i := range pop {
		workers.Go(func() {
			fits[i] = problem.EvalFitness(pop[i])
		})
	}
	workers.Wait()
}

// crossover combines two parents into a child. Single-point keeps one
// parent's head and the other's tail; uniform flips a coin per coordinate.
func (ga *GeneticAlgorithm) crossover(rng *rand.Rand, p1, p2 []float64) []float64 {
	n := len(p1)
	child := make([]float64, n)
	if ga.UniformCrossover || n == 1 {
		for i := range child {
			if rng.Intn(2) == 0 {
				child[i] = p1[i]
			} else {
				child[i] = p2[i]
			}
		}
		return child
	}
	cut := rng.Intn(n - 1)
	copy(child[:cut+1], p1[:cut+1])
	copy(child[cut+1:], p2[cut+1:])
	return child
}

// mutate redraws child coordinates uniformly within bounds with the given
// per-coordinate probability.
func (ga *GeneticAlgorithm) mutate(problem *Continuous, child []float64, prob float64) {
	for i := range child {
		if problem.rng.Float64() < prob {
			child[i] = problem.minVal + problem.rng.Float64()*(problem.maxVal-problem.minVal)
		}
	}
}

// mateProbs turns internal fitnesses into normalized selection weights by
// shifting so the worst member weighs zero. Returns nil when the shifted
// weights carry no mass, which signals uniform selection.
func mateProbs(fits []float64) []float64 {
	low := floats.Min(fits)
	probs := make([]float64, len(fits))
	total := 0.0
	for i, f := range fits {
		probs[i] = f - low
		total += probs[i]
	}
	if total == 0 {
		return nil
	}
	floats.Scale(1/total, probs)
	return probs
}

// rouletteSelect draws an index proportionally to probs, or uniformly from
// n members when probs is nil.
func rouletteSelect(rng *rand.Rand, probs []float64, n int) int {
	if probs == nil {
		return rng.Intn(n)
	}
	r := rng.Float64()
	acc := 0.0
	for i, p := range probs {
		acc += p
		if r < acc {
			return i
		}
	}
	return len(probs) - 1
}
