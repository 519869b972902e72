package opt

import "log/slog"

// RandomHillClimb greedily walks random neighbors, moving to any that
// match or beat the cursor fitness. Restarts repeats the climb from fresh
// random states and the overall best across restarts wins.
type RandomHillClimb struct {
	// MaxAttempts is the number of consecutive non-improving neighbors
	// tolerated before a restart ends. Defaults to 10.
	MaxAttempts int
	// MaxIters caps the iterations of each restart. Non-positive means
	// no cap.
	MaxIters int
	// Restarts is the number of additional climbs from random states.
	Restarts int
	// InitState seeds the first climb; nil draws a random state.
	InitState []float64
	// Curve records the best-so-far fitness per iteration.
	Curve bool
	// Hook, when set, is called once per iteration and can stop the run.
	Hook Hook
}

// Optimize runs the climb over problem.
func (hc *RandomHillClimb) Optimize(problem *Continuous) (*Result, error) {
	maxAttempts := maxAttemptsOr(hc.MaxAttempts)
	maxIters := maxItersOr(hc.MaxIters)

	tr := newTracker(problem, hc.Curve)
	var bestState []float64
	iterations := 0
	stopped := false

	for restart := 0; restart <= hc.Restarts && !stopped; restart++ {
		if restart == 0 && hc.InitState != nil {
			if err := problem.SetState(hc.InitState); err != nil {
				return nil, err
			}
		} else {
			problem.Reset()
		}
		if tr.Observe(problem.current) {
			bestState = problem.State()
		}

		attempts, iters := 0, 0
		for attempts < maxAttempts && iters < maxIters {
			iters++
			neighbor := problem.RandomNeighbor()
			fitness := problem.EvalFitness(neighbor)
			switch {
			case fitness > problem.current:
				attempts = 0
				problem.setEvaluated(neighbor, fitness)
			case fitness == problem.current:
				// Plateau moves keep the walk alive but still count
				// against the attempt budget.
				attempts++
				problem.setEvaluated(neighbor, fitness)
			default:
				attempts++
			}
			if tr.Observe(problem.current) {
				bestState = problem.State()
			}
			tr.Mark()
			if hc.Hook != nil && !hc.Hook(iterations+iters, tr.BestOriginal()) {
				stopped = true
				break
			}
		}
		iterations += iters
		slog.Debug("hill climb restart finished",
			"restart", restart,
			"iterations", iters,
			"best_fitness", tr.BestOriginal(),
		)
	}

	return &Result{
		BestState:   bestState,
		BestFitness: tr.BestOriginal(),
		Curve:       tr.History(),
		Iterations:  iterations,
	}, nil
}
