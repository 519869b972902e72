package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// labelBinarizer maps a single column of class labels onto the network's
// target layout: one 0/1 column for up to two classes, one-hot columns
// beyond that. Classes are remembered in sorted order so the column
// assignment is stable across fit and score.
type labelBinarizer struct {
	classes []float64
}

func (lb *labelBinarizer) fit(y *mat.Dense) {
	r, _ := y.Dims()
	seen := make(map[float64]bool, 2)
	for i := 0; i < r; i++ {
		seen[y.At(i, 0)] = true
	}
	lb.classes = make([]float64, 0, len(seen))
	for v := range seen {
		lb.classes = append(lb.classes, v)
	}
	sort.Float64s(lb.classes)
}

// width is the number of target columns transform produces.
func (lb *labelBinarizer) width() int {
	if len(lb.classes) > 2 {
		return len(lb.classes)
	}
	return 1
}

func (lb *labelBinarizer) transform(y *mat.Dense) *mat.Dense {
	r, _ := y.Dims()
	if len(lb.classes) <= 2 {
		out := mat.NewDense(r, 1, nil)
		if len(lb.classes) == 2 {
			positive := lb.classes[1]
			for i := 0; i < r; i++ {
				if y.At(i, 0) == positive {
					out.Set(i, 0, 1)
				}
			}
		}
		return out
	}
	out := mat.NewDense(r, len(lb.classes), nil)
	for i := 0; i < r; i++ {
		v := y.At(i, 0)
		for j, class := range lb.classes {
			if v == class {
				out.Set(i, j, 1)
				break
			}
		}
	}
	return out
}
