package neural

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activation is an elementwise activation function paired with its
// derivative. Deriv is evaluated on pre-activation values. Apply and Deriv
// return fresh matrices and never modify their argument.
type Activation interface {
	Apply(z *mat.Dense) *mat.Dense
	Deriv(z *mat.Dense) *mat.Dense
	String() string
}

// ParseActivation resolves a hidden-layer activation by name. Softmax is
// not a valid hidden activation; it is selected internally for multiclass
// output layers.
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "identity":
		return Identity{}, nil
	case "relu":
		return ReLU{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	}
	return nil, fmt.Errorf("unknown activation %q (want identity, relu, sigmoid or tanh)", name)
}

// OutputActivationFor picks the output-layer activation matching the loss:
// sigmoid for binary classification, softmax for wider targets, identity
// for regression.
func OutputActivationFor(classifier bool, width int) Activation {
	if !classifier {
		return Identity{}
	}
	if width > 1 {
		return Softmax{}
	}
	return Sigmoid{}
}

// Identity passes values through unchanged.
type Identity struct{}

func (Identity) Apply(z *mat.Dense) *mat.Dense { return applyElem(z, func(v float64) float64 { return v }) }
func (Identity) Deriv(z *mat.Dense) *mat.Dense { return onesLike(z) }
func (Identity) String() string                { return "identity" }

// ReLU clamps negatives to zero.
type ReLU struct{}

func (ReLU) Apply(z *mat.Dense) *mat.Dense {
	return applyElem(z, func(v float64) float64 { return math.Max(0, v) })
}

func (ReLU) Deriv(z *mat.Dense) *mat.Dense {
	return applyElem(z, func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	})
}

func (ReLU) String() string { return "relu" }

// Sigmoid is the logistic function 1/(1+e^-z).
type Sigmoid struct{}

func (Sigmoid) Apply(z *mat.Dense) *mat.Dense { return applyElem(z, sigmoid) }

func (Sigmoid) Deriv(z *mat.Dense) *mat.Dense {
	return applyElem(z, func(v float64) float64 {
		s := sigmoid(v)
		return s * (1 - s)
	})
}

func (Sigmoid) String() string { return "sigmoid" }

// sigmoid evaluates the logistic function without overflowing for large
// negative arguments.
func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}

// Tanh is the hyperbolic tangent.
type Tanh struct{}

func (Tanh) Apply(z *mat.Dense) *mat.Dense { return applyElem(z, math.Tanh) }

func (Tanh) Deriv(z *mat.Dense) *mat.Dense {
	return applyElem(z, func(v float64) float64 {
		t := math.Tanh(v)
		return 1 - t*t
	})
}

func (Tanh) String() string { return "tanh" }

// Softmax normalizes each row into a probability distribution, shifting by
// the row maximum so large pre-activations cannot overflow.
type Softmax struct{}

func (Softmax) Apply(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, z)
		shift := floats.Max(row)
		for j, v := range row {
			row[j] = math.Exp(v - shift)
		}
		floats.Scale(1/floats.Sum(row), row)
		out.SetRow(i, row)
	}
	return out
}

// Deriv is never consulted: softmax appears only on the output layer,
// where the loss gradient folds the activation in.
func (Softmax) Deriv(z *mat.Dense) *mat.Dense { return onesLike(z) }

func (Softmax) String() string { return "softmax" }

func applyElem(z *mat.Dense, f func(float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return f(v) }, z)
	return &out
}

func onesLike(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	data := make([]float64, r*c)
	for i := range data {
		data[i] = 1
	}
	return mat.NewDense(r, c, data)
}
