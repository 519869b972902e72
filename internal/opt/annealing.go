package opt

import (
	"log/slog"
	"math"
)

// SimulatedAnnealing walks random neighbors, always accepting improvements
// and accepting worse states with probability exp(delta/temperature) under
// a cooling schedule. The search stops when the attempt budget runs out,
// the iteration cap is hit or the schedule cools to its floor.
type SimulatedAnnealing struct {
	// Schedule controls the temperature; nil uses DefaultGeomDecay.
	Schedule Schedule
	// MaxAttempts is the number of consecutive rejected neighbors
	// tolerated before stopping. Defaults to 10.
	MaxAttempts int
	// MaxIters caps the iterations. Non-positive means no cap.
	MaxIters int
	// InitState seeds the walk; nil draws a random state.
	InitState []float64
	// Curve records the best-so-far fitness per iteration.
	Curve bool
	// Hook, when set, is called once per iteration and can stop the run.
	Hook Hook
}

// Optimize runs the annealing walk over problem.
func (sa *SimulatedAnnealing) Optimize(problem *Continuous) (*Result, error) {
	schedule := sa.Schedule
	if schedule == nil {
		schedule = DefaultGeomDecay()
	}
	maxAttempts := maxAttemptsOr(sa.MaxAttempts)
	maxIters := maxItersOr(sa.MaxIters)

	if sa.InitState != nil {
		if err := problem.SetState(sa.InitState); err != nil {
			return nil, err
		}
	} else {
		problem.Reset()
	}

	tr := newTracker(problem, sa.Curve)
	tr.Observe(problem.current)
	bestState := problem.State()

	attempts, iters := 0, 0
	for attempts < maxAttempts && iters < maxIters {
		temp := schedule.Temp(iters)
		if temp <= schedule.Min() {
			slog.Debug("annealing schedule reached its floor", "iteration", iters)
			break
		}
		iters++

		neighbor := problem.RandomNeighbor()
		fitness := problem.EvalFitness(neighbor)
		delta := fitness - problem.current
		if delta > 0 || problem.rng.Float64() < math.Exp(delta/temp) {
			problem.setEvaluated(neighbor, fitness)
			attempts = 0
		} else {
			attempts++
		}
		if tr.Observe(problem.current) {
			bestState = problem.State()
		}
		tr.Mark()
		if sa.Hook != nil && !sa.Hook(iters, tr.BestOriginal()) {
			break
		}
	}

	// The cursor may rest on an accepted-worse state; the best visited
	// state is what the caller gets.
	return &Result{
		BestState:   bestState,
		BestFitness: tr.BestOriginal(),
		Curve:       tr.History(),
		Iterations:  iters,
	}, nil
}
