// Package dataset loads numeric CSV files into gonum matrices and splits
// them into train/test partitions. All features and targets must be finite
// real numbers; categorical targets are expected to be pre-encoded as
// integer labels (one column) or one-hot indicators (several columns).
package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Options controls how a CSV file is interpreted.
type Options struct {
	// HasHeader skips the first record.
	HasHeader bool

	// TargetCols is the number of trailing columns treated as targets.
	// Zero means one. Use several for one-hot encoded labels or
	// multi-output regression.
	TargetCols int
}

// Load reads a CSV file into a feature matrix and a target matrix.
// The last Options.TargetCols columns become y, everything before them X.
func Load(path string, opts Options) (x, y *mat.Dense, err error) {
	targets := opts.TargetCols
	if targets == 0 {
		targets = 1
	}
	if targets < 0 {
		return nil, nil, fmt.Errorf("target columns must be positive, got %d", targets)
	}

	records, err := readRecords(path, opts.HasHeader)
	if err != nil {
		return nil, nil, err
	}

	rows := len(records)
	cols := len(records[0])
	if targets >= cols {
		return nil, nil, fmt.Errorf("dataset %s has %d columns, cannot split off %d target columns", path, cols, targets)
	}
	features := cols - targets

	x = mat.NewDense(rows, features, nil)
	y = mat.NewDense(rows, targets, nil)
	for i, record := range records {
		for j, field := range record {
			v, err := parseField(path, field, i, j, opts.HasHeader)
			if err != nil {
				return nil, nil, err
			}
			if j < features {
				x.Set(i, j, v)
			} else {
				y.Set(i, j-features, v)
			}
		}
	}

	return x, y, nil
}

// LoadFeatures reads a CSV file that contains feature columns only,
// e.g. unlabeled rows passed to a fitted model for prediction.
func LoadFeatures(path string, hasHeader bool) (*mat.Dense, error) {
	records, err := readRecords(path, hasHeader)
	if err != nil {
		return nil, err
	}

	rows := len(records)
	cols := len(records[0])
	x := mat.NewDense(rows, cols, nil)
	for i, record := range records {
		for j, field := range record {
			v, err := parseField(path, field, i, j, hasHeader)
			if err != nil {
				return nil, err
			}
			x.Set(i, j, v)
		}
	}

	return x, nil
}

// Split partitions samples into train and test sets. testFrac is the
// fraction of rows (rounded) assigned to the test set; both sides keep at
// least one row. A nil rng uses a time-seeded source.
func Split(x, y *mat.Dense, testFrac float64, rng *rand.Rand) (xTrain, yTrain, xTest, yTest *mat.Dense, err error) {
	if x == nil || y == nil {
		return nil, nil, nil, nil, fmt.Errorf("cannot split nil matrices")
	}
	n, _ := x.Dims()
	yRows, _ := y.Dims()
	if n != yRows {
		return nil, nil, nil, nil, fmt.Errorf("row count mismatch: x has %d rows, y has %d", n, yRows)
	}
	if n < 2 {
		return nil, nil, nil, nil, fmt.Errorf("need at least 2 samples to split, got %d", n)
	}
	if testFrac <= 0 || testFrac >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %g", testFrac)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	nTest := int(math.Round(float64(n) * testFrac))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}

	perm := rng.Perm(n)
	testIdx := perm[:nTest]
	trainIdx := perm[nTest:]

	return takeRows(x, trainIdx), takeRows(y, trainIdx), takeRows(x, testIdx), takeRows(y, testIdx), nil
}

// readRecords loads all CSV records and strips the header if requested.
func readRecords(path string, hasHeader bool) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	if hasHeader {
		if len(records) == 0 {
			return nil, fmt.Errorf("dataset %s is empty", path)
		}
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s has no data rows", path)
	}

	return records, nil
}

func parseField(path, field string, row, col int, hasHeader bool) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		line := row + 1
		if hasHeader {
			line++
		}
		return 0, fmt.Errorf("dataset %s line %d column %d: %q is not numeric", path, line, col+1, field)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		line := row + 1
		if hasHeader {
			line++
		}
		return 0, fmt.Errorf("dataset %s line %d column %d: value must be finite", path, line, col+1)
	}
	return v, nil
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
