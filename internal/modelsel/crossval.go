package modelsel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/fkgruber/mlrose-ky/internal/model"
)

// CrossValScore fits a fresh clone of est on each fold's training rows and
// scores it on the held-out rows. It returns one score per fold, in fold
// order. The estimator passed in is never fitted itself.
func CrossValScore(est model.Estimator, x, y *mat.Dense, kf KFold) ([]float64, error) {
	if est == nil {
		return nil, fmt.Errorf("estimator cannot be nil")
	}
	n, _ := x.Dims()
	yRows, _ := y.Dims()
	if n != yRows {
		return nil, fmt.Errorf("row count mismatch: x has %d rows, y has %d", n, yRows)
	}

	folds, err := kf.Split(n)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	for i, fold := range folds {
		clone := est.Clone()
		if err := clone.Fit(takeRows(x, fold.Train), takeRows(y, fold.Train)); err != nil {
			return nil, fmt.Errorf("fold %d fit: %w", i, err)
		}
		s, err := clone.Score(takeRows(x, fold.Test), takeRows(y, fold.Test))
		if err != nil {
			return nil, fmt.Errorf("fold %d score: %w", i, err)
		}
		scores[i] = s
	}

	return scores, nil
}

func takeRows(m *mat.Dense, idx []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	row := make([]float64, cols)
	for i, r := range idx {
		mat.Row(row, r, m)
		out.SetRow(i, row)
	}
	return out
}
