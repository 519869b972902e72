package opt

// GradientDescent repeatedly adds the fitness function's update step to
// the state and clips into bounds. Steps are taken unconditionally, so the
// walk can pass through worse states; the best visited state is tracked
// separately and returned. Requires a GradientFitness.
type GradientDescent struct {
	// MaxAttempts is the number of consecutive non-improving steps
	// tolerated before stopping. Defaults to 10.
	MaxAttempts int
	// MaxIters caps the iterations. Non-positive means no cap.
	MaxIters int
	// InitState seeds the descent; nil draws a random state.
	InitState []float64
	// Curve records the best-so-far fitness per iteration.
	Curve bool
	// Hook, when set, is called once per iteration and can stop the run.
	Hook Hook
}

// Optimize descends over problem. Each iteration costs exactly one
// gradient evaluation.
func (gd *GradientDescent) Optimize(problem *Continuous) (*Result, error) {
	gradient, ok := problem.fitness.(GradientFitness)
	if !ok {
		return nil, &UnsupportedFitnessError{Algorithm: "gradient descent"}
	}
	maxAttempts := maxAttemptsOr(gd.MaxAttempts)
	maxIters := maxItersOr(gd.MaxIters)

	var state []float64
	if gd.InitState != nil {
		if err := problem.SetState(gd.InitState); err != nil {
			return nil, err
		}
		state = problem.State()
	} else {
		state = problem.RandomState()
	}

	raw, updates := gradient.EvalGrad(state)
	current := problem.internal(raw)

	tr := newTracker(problem, gd.Curve)
	tr.Observe(current)
	bestState := append([]float64(nil), state...)

	attempts, iters := 0, 0
	for attempts < maxAttempts && iters < maxIters {
		iters++

		next := problem.ClipAdd(state, updates)
		raw, nextUpdates := gradient.EvalGrad(next)
		fitness := problem.internal(raw)
		if fitness > current {
			attempts = 0
		} else {
			attempts++
		}
		if tr.Observe(fitness) {
			bestState = append([]float64(nil), next...)
		}
		state, current, updates = next, fitness, nextUpdates
		tr.Mark()
		if gd.Hook != nil && !gd.Hook(iters, tr.BestOriginal()) {
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
