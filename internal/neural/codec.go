package neural

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StateSize returns the number of weights a network with the given layer
// sizes carries: the sum of n_i*n_{i+1} over consecutive layer pairs.
func StateSize(nodeList []int) int {
	size := 0
	for i := 0; i+1 < len(nodeList); i++ {
		size += nodeList[i] * nodeList[i+1]
	}
	return size
}

// FlattenWeights concatenates the row-major elements of every weight
// matrix, in layer order, into one flat vector. It is the inverse of
// UnflattenWeights for any matrix list consistent with a layer-size list.
func FlattenWeights(weights []*mat.Dense) []float64 {
	total := 0
	for _, w := range weights {
		r, c := w.Dims()
		total += r * c
	}
	flat := make([]float64, 0, total)
	for _, w := range weights {
		r, c := w.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				flat = append(flat, w.At(i, j))
			}
		}
	}
	return flat
}

// UnflattenWeights partitions flat into per-layer weight matrices shaped
// (n_i, n_{i+1}) by the layer-size list. The vector length must equal
// StateSize(nodeList) exactly.
func UnflattenWeights(flat []float64, nodeList []int) ([]*mat.Dense, error) {
	want := StateSize(nodeList)
	if len(flat) != want {
		return nil, &ShapeMismatchError{
			Got:      len(flat),
			Want:     want,
			NodeList: append([]int(nil), nodeList...),
		}
	}
	weights := make([]*mat.Dense, 0, len(nodeList)-1)
	offset := 0
	for i := 0; i+1 < len(nodeList); i++ {
		r, c := nodeList[i], nodeList[i+1]
		chunk := make([]float64, r*c)
		copy(chunk, flat[offset:offset+r*c])
		weights = append(weights, mat.NewDense(r, c, chunk))
		offset += r * c
	}
	return weights, nil
}

// ErrShapeMismatch is returned when a flat weight vector's length is
// inconsistent with a layer-size list. Use errors.Is(err, ErrShapeMismatch).
var ErrShapeMismatch = &ShapeMismatchError{}

// ShapeMismatchError reports a flat vector that cannot be partitioned into
// the weight matrices a layer-size list demands.
type ShapeMismatchError struct {
	Got      int
	Want     int
	NodeList []int
}

func (e *ShapeMismatchError) Error() string {
	if e.NodeList == nil {
		return "weight vector shape mismatch"
	}
	return fmt.Sprintf("weight vector shape mismatch: got %d values, node list %v needs %d", e.Got, e.NodeList, e.Want)
}

func (e *ShapeMismatchError) Is(target error) bool {
	_, ok := target.(*ShapeMismatchError)
	return ok
}
