package opt

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ContinuousConfig tunes a continuous search space. Zero bounds fall back
// to [-1, 1], a zero step to 0.1 and a nil Rand to a time-seeded source.
type ContinuousConfig struct {
	// Maximize flips the problem sense; by default fitness values are
	// losses to minimize.
	Maximize bool
	MinVal   float64
	MaxVal   float64
	Step     float64
	Rand     *rand.Rand
}

// Continuous couples a fitness function with a bounded real-valued search
// space. It owns the random source and the search cursor the local-search
// algorithms walk, and normalizes the fitness sign so every algorithm
// maximizes internally.
//
// The cursor methods are not safe for concurrent use; EvalFitness is.
type Continuous struct {
	fitness  Fitness
	dim      int
	maximize bool
	minVal   float64
	maxVal   float64
	step     float64
	rng      *rand.Rand

	state   []float64
	current float64 // internal-sense fitness of state
}

// NewContinuous validates the search space and returns a problem with an
// unset cursor. Algorithms install the cursor through SetState or Reset.
func NewContinuous(dim int, fitness Fitness, cfg ContinuousConfig) (*Continuous, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("problem dimension must be positive, got %d", dim)
	}
	if fitness == nil {
		return nil, fmt.Errorf("fitness function must not be nil")
	}
	if cfg.MinVal == 0 && cfg.MaxVal == 0 {
		cfg.MinVal, cfg.MaxVal = -1, 1
	}
	if cfg.MaxVal <= cfg.MinVal {
		return nil, fmt.Errorf("max value must exceed min value, got [%v, %v]", cfg.MinVal, cfg.MaxVal)
	}
	if cfg.Step == 0 {
		cfg.Step = 0.1
	}
	if cfg.Step <= 0 {
		return nil, fmt.Errorf("step size must be positive, got %v", cfg.Step)
	}
	if cfg.Step > cfg.MaxVal-cfg.MinVal {
		return nil, fmt.Errorf("step size %v exceeds the bound range [%v, %v]", cfg.Step, cfg.MinVal, cfg.MaxVal)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Continuous{
		fitness:  fitness,
		dim:      dim,
		maximize: cfg.Maximize,
		minVal:   cfg.MinVal,
		maxVal:   cfg.MaxVal,
		step:     cfg.Step,
		rng:      rng,
	}, nil
}

// Dim returns the state vector length.
func (p *Continuous) Dim() int { return p.dim }

// MinVal returns the lower bound applied to every component.
func (p *Continuous) MinVal() float64 { return p.minVal }

// MaxVal returns the upper bound applied to every component.
func (p *Continuous) MaxVal() float64 { return p.maxVal }

// Step returns the neighbor perturbation size.
func (p *Continuous) Step() float64 { return p.step }

// Maximize reports the problem sense.
func (p *Continuous) Maximize() bool { return p.maximize }

// Rand exposes the problem's random source so algorithm-internal draws
// stay on the single seeded stream.
func (p *Continuous) Rand() *rand.Rand { return p.rng }

// FitnessFunc returns the wrapped fitness function.
func (p *Continuous) FitnessFunc() Fitness { return p.fitness }

// State returns a copy of the search cursor.
func (p *Continuous) State() []float64 {
	return append([]float64(nil), p.state...)
}

// EvalFitness scores state in the internal sense: minimization problems
// report the negated fitness so larger is always better. Safe for
// concurrent use.
func (p *Continuous) EvalFitness(state []float64) float64 {
	return p.internal(p.fitness.Evaluate(state))
}

// Original converts an internal-sense fitness back to the problem's own
// sense.
func (p *Continuous) Original(internal float64) float64 {
	if !p.maximize {
		return -internal
	}
	return internal
}

func (p *Continuous) internal(raw float64) float64 {
	if !p.maximize {
		return -raw
	}
	return raw
}

// SetState clips state into bounds, installs it as the cursor and
// evaluates it.
func (p *Continuous) SetState(state []float64) error {
	if len(state) != p.dim {
		return fmt.Errorf("state has %d components, problem dimension is %d", len(state), p.dim)
	}
	s := p.Clip(append([]float64(nil), state...))
	p.state = s
	p.current = p.EvalFitness(s)
	return nil
}

// Reset draws a fresh random cursor.
func (p *Continuous) Reset() {
	s := p.RandomState()
	p.state = s
	p.current = p.EvalFitness(s)
}

// setEvaluated installs an already-scored state as the cursor without
// re-evaluating it.
func (p *Continuous) setEvaluated(state []float64, internal float64) {
	p.state = state
	p.current = internal
}

// RandomState draws a state uniformly within bounds.
func (p *Continuous) RandomState() []float64 {
	s := make([]float64, p.dim)
	for i := range s {
		s[i] = p.minVal + p.rng.Float64()*(p.maxVal-p.minVal)
	}
	return s
}

// RandomNeighbor perturbs one random coordinate of the cursor by the step
// size in a random direction and clips the result. Proposals identical to
// the cursor (a coordinate pinned at a bound) are redrawn, so the neighbor
// always differs; the step-fits-in-range check at construction guarantees
// the redraw terminates.
func (p *Continuous) RandomNeighbor() []float64 {
	for {
		nb := append([]float64(nil), p.state...)
		i := p.rng.Intn(p.dim)
		if p.rng.Intn(2) == 0 {
			nb[i] += p.step
		} else {
			nb[i] -= p.step
		}
		nb[i] = clamp(nb[i], p.minVal, p.maxVal)
		if nb[i] != p.state[i] {
			return nb
		}
	}
}

// RandomPop draws size independent random states.
func (p *Continuous) RandomPop(size int) [][]float64 {
	pop := make([][]float64, size)
	for i := range pop {
		pop[i] = p.RandomState()
	}
	return pop
}

// Clip clamps every component of state into bounds in place and returns
// state. Out-of-range values are silently repaired, never rejected.
func (p *Continuous) Clip(state []float64) []float64 {
	for i, v := range state {
		state[i] = clamp(v, p.minVal, p.maxVal)
	}
	return state
}

// ClipAdd returns clip(state + updates) as a fresh vector.
func (p *Continuous) ClipAdd(state, updates []float64) []float64 {
	next := append([]float64(nil), state...)
	floats.Add(next, updates)
	return p.Clip(next)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
