package modelsel

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/fkgruber/mlrose-ky/internal/model"
)

// Candidate records the cross-validation outcome of one parameter
// combination.
type Candidate struct {
	Params    model.Params
	Scores    []float64
	MeanScore float64
}

// GridSearchResult holds the winning combination plus every candidate
// tried, so callers can inspect the full sweep.
type GridSearchResult struct {
	BestParams model.Params
	BestScore  float64
	Candidates []Candidate
}

// GridSearch cross-validates every combination of the grid values and
// returns the one with the highest mean score. Combinations are visited in
// deterministic order (names sorted, values as given); ties keep the
// earlier combination. Parameter names must be accepted by the estimator's
// SetParams.
func GridSearch(est model.Estimator, grid map[string][]any, x, y *mat.Dense, kf KFold) (*GridSearchResult, error) {
	if est == nil {
		return nil, fmt.Errorf("estimator cannot be nil")
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("parameter grid cannot be empty")
	}

	names := make([]string, 0, len(grid))
	for name, values := range grid {
		if len(values) == 0 {
			return nil, fmt.Errorf("parameter %q has no candidate values", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	result := &GridSearchResult{BestScore: math.Inf(-1)}
	counters := make([]int, len(names))
	for {
		params := make(model.Params, len(names))
		for i, name := range names {
			params[name] = grid[name][counters[i]]
		}

		clone := est.Clone()
		if err := clone.SetParams(params); err != nil {
			return nil, fmt.Errorf("apply params %v: %w", params, err)
		}
		scores, err := CrossValScore(clone, x, y, kf)
		if err != nil {
			return nil, err
		}
		mean := stat.Mean(scores, nil)

		result.Candidates = append(result.Candidates, Candidate{
			Params:    params,
			Scores:    scores,
			MeanScore: mean,
		})
		if mean > result.BestScore {
			result.BestScore = mean
			result.BestParams = params
		}

		// Advance the rightmost counter, carrying leftward.
		i := len(counters) - 1
		for i >= 0 {
			counters[i]++
			if counters[i] < len(grid[names[i]]) {
				break
			}
			counters[i] = 0
			i--
		}
		if i < 0 {
			break
		}
	}

	return result, nil
}
