// Package model exposes scikit-style estimator facades over the search
// algorithms: a feed-forward network whose weights are fitted by
// randomized optimization, plus linear and logistic regressions as
// single-layer special cases.
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Params is a flat bag of hyperparameters keyed by their conventional
// snake_case names. Model-selection tooling uses it to introspect and
// reconfigure estimators without knowing their concrete types.
type Params map[string]any

// Estimator is the contract model-selection harnesses drive: fit, predict,
// score and hyperparameter plumbing. Nothing about weight encoding or
// search internals leaks through it.
type Estimator interface {
	Fit(x, y *mat.Dense) error
	Predict(x *mat.Dense) (*mat.Dense, error)
	// Score reports classification accuracy, or negated mean squared
	// error for regressors. Larger is better either way.
	Score(x, y *mat.Dense) (float64, error)
	Params() Params
	SetParams(p Params) error
	// Clone returns an unfitted copy with the same hyperparameters.
	Clone() Estimator
}

// Algorithm names a weight-search strategy.
type Algorithm string

const (
	RandomHillClimb    Algorithm = "random_hill_climb"
	SimulatedAnnealing Algorithm = "simulated_annealing"
	GeneticAlg         Algorithm = "genetic_alg"
	GradientDescent    Algorithm = "gradient_descent"
	MayflySearch       Algorithm = "mayfly"
)

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(name); a {
	case RandomHillClimb, SimulatedAnnealing, GeneticAlg, GradientDescent, MayflySearch:
		return a, nil
	}
	return "", fmt.Errorf("unknown algorithm %q (want random_hill_climb, simulated_annealing, genetic_alg, gradient_descent or mayfly)", name)
}
