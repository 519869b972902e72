package opt

import (
	"fmt"
	"math"
)

// Schedule maps an iteration count to an annealing temperature.
type Schedule interface {
	// Temp returns the temperature at iteration t, never below Min.
	Temp(t int) float64
	// Min returns the temperature floor. Annealing stops once Temp
	// reaches it.
	Min() float64
}

// ParseSchedule resolves a schedule name to its default-parameter form.
func ParseSchedule(name string) (Schedule, error) {
	switch name {
	case "geom", "geometric":
		return DefaultGeomDecay(), nil
	case "arith", "arithmetic":
		return ArithDecay{InitTemp: 1.0, Decay: 0.0001, MinTemp: 0.001}, nil
	case "exp", "exponential":
		return ExpDecay{InitTemp: 1.0, ExpConst: 0.005, MinTemp: 0.001}, nil
	}
	return nil, fmt.Errorf("unknown schedule %q (want geom, arith or exp)", name)
}

// GeomDecay cools geometrically: init * decay^t, floored at MinTemp.
type GeomDecay struct {
	InitTemp float64
	Decay    float64
	MinTemp  float64
}

// DefaultGeomDecay is the schedule annealing falls back to when none is
// configured.
func DefaultGeomDecay() GeomDecay {
	return GeomDecay{InitTemp: 1.0, Decay: 0.99, MinTemp: 0.001}
}

func (g GeomDecay) Temp(t int) float64 {
	return math.Max(g.InitTemp*math.Pow(g.Decay, float64(t)), g.MinTemp)
}

func (g GeomDecay) Min() float64 { return g.MinTemp }

// ArithDecay cools linearly: init - decay*t, floored at MinTemp.
type ArithDecay struct {
	InitTemp float64
	Decay    float64
	MinTemp  float64
}

func (a ArithDecay) Temp(t int) float64 {
	return math.Max(a.InitTemp-a.Decay*float64(t), a.MinTemp)
}

func (a ArithDecay) Min() float64 { return a.MinTemp }

// ExpDecay cools exponentially: init * e^(-c*t), floored at MinTemp.
type ExpDecay struct {
	InitTemp float64
	ExpConst float64
	MinTemp  float64
}

func (e ExpDecay) Temp(t int) float64 {
	return math.Max(e.InitTemp*math.Exp(-e.ExpConst*float64(t)), e.MinTemp)
}

func (e ExpDecay) Min() float64 { return e.MinTemp }
