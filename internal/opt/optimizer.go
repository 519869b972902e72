package opt

// Fitness is a scalar objective over a real-valued state vector.
// Implementations must be safe for concurrent Evaluate calls.
type Fitness interface {
	Evaluate(state []float64) float64
}

// GradientFitness is a Fitness that can also produce the additive update
// step derived from its analytic gradient at a state. Both values come
// from a single forward pass.
type GradientFitness interface {
	Fitness
	EvalGrad(state []float64) (fitness float64, updates []float64)
}

// Result is the outcome of one search run. BestFitness is reported in the
// problem's own sense, so a loss stays a loss even though the algorithms
// maximize internally. Curve, when recording was requested, holds the best
// fitness seen after each iteration in the same sense.
type Result struct {
	BestState   []float64
	BestFitness float64
	Curve       []float64
	Iterations  int
}

// Optimizer runs a search over a continuous problem.
type Optimizer interface {
	Optimize(problem *Continuous) (*Result, error)
}

// Hook observes the search once per iteration with the best fitness so far
// in the problem's own sense. Returning false stops the search; the best
// state found up to that point is still returned.
type Hook func(iteration int, bestFitness float64) bool

const (
	defaultMaxAttempts = 10
	unlimitedIters     = int(^uint(0) >> 1)
)

// maxAttemptsOr returns v or the package default when v is unset.
func maxAttemptsOr(v int) int {
	if v <= 0 {
		return defaultMaxAttempts
	}
	return v
}

// maxItersOr returns v or an effectively unlimited cap when v is unset.
func maxItersOr(v int) int {
	if v <= 0 {
		return unlimitedIters
	}
	return v
}

// ErrUnsupportedFitness is returned when a gradient-based optimizer is
// paired with a fitness function that cannot produce gradients. Use
// errors.Is(err, ErrUnsupportedFitness).
var ErrUnsupportedFitness = &UnsupportedFitnessError{}

// UnsupportedFitnessError names the algorithm that needed gradients.
type UnsupportedFitnessError struct {
	Algorithm string
}

func (e *UnsupportedFitnessError) Error() string {
	if e.Algorithm == "" {
		return "fitness function does not expose gradients"
	}
	return e.Algorithm + " requires a fitness function with analytic gradients"
}

func (e *UnsupportedFitnessError) Is(target error) bool {
	_, ok := target.(*UnsupportedFitnessError)
	return ok
}
