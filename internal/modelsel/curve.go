package modelsel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/fkgruber/mlrose-ky/internal/model"
)

// CurvePoint is one training-set size on a learning curve, with train and
// held-out scores averaged over folds.
type CurvePoint struct {
	Fraction   float64
	TrainSize  int
	TrainScore float64
	TestScore  float64
}

// LearningCurve fits clones of est on growing prefixes of each fold's
// training rows and reports the mean train and test score per fraction.
// Fractions must lie in (0, 1]; each prefix keeps at least one row.
func LearningCurve(est model.Estimator, x, y *mat.Dense, fracs []float64, kf KFold) ([]CurvePoint, error) {
	if est == nil {
		return nil, fmt.Errorf("estimator cannot be nil")
	}
	if len(fracs) == 0 {
		return nil, fmt.Errorf("need at least one training fraction")
	}
	for _, f := range fracs {
		if f <= 0 || f > 1 {
			return nil, fmt.Errorf("training fraction must be in (0, 1], got %g", f)
		}
	}

	n, _ := x.Dims()
	folds, err := kf.Split(n)
	if err != nil {
		return nil, err
	}

	points := make([]CurvePoint, len(fracs))
	for pi, frac := range fracs {
		trainScores := make([]float64, len(folds))
		testScores := make([]float64, len(folds))
		size := 0
		for fi, fold := range folds {
			sz := int(math.Round(frac * float64(len(fold.Train))))
			if sz < 1 {
				sz = 1
			}
			if sz > len(fold.Train) {
				sz = len(fold.Train)
			}
			size = sz
			sub := fold.Train[:sz]

			clone := est.Clone()
			if err := clone.Fit(takeRows(x, sub), takeRows(y, sub)); err != nil {
				return nil, fmt.Errorf("fraction %g fold %d fit: %w", frac, fi, err)
			}
			ts, err := clone.Score(takeRows(x, sub), takeRows(y, sub))
			if err != nil {
				return nil, fmt.Errorf("fraction %g fold %d train score: %w", frac, fi, err)
			}
			vs, err := clone.Score(takeRows(x, fold.Test), takeRows(y, fold.Test))
			if err != nil {
				return nil, fmt.Errorf("fraction %g fold %d test score: %w", frac, fi, err)
			}
			trainScores[fi] = ts
			testScores[fi] = vs
		}

		points[pi] = CurvePoint{
			Fraction:   frac,
			TrainSize:  size,
			TrainScore: stat.Mean(trainScores, nil),
			TestScore:  stat.Mean(testScores, nil),
		}
	}

	return points, nil
}
