package dataset

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// writeCSV creates a CSV file in a temp directory and returns its path.
func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test CSV: %v", err)
	}
	return path
}

func TestLoad_LastColumnTarget(t *testing.T) {
	path := writeCSV(t, "xor.csv", "0,0,0\n0,1,1\n1,0,1\n1,1,0\n")

	x, y, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Failed to load dataset: %v", err)
	}

	rows, cols := x.Dims()
	if rows != 4 || cols != 2 {
		t.Errorf("Expected 4x2 feature matrix, got %dx%d", rows, cols)
	}
	rows, cols = y.Dims()
	if rows != 4 || cols != 1 {
		t.Errorf("Expected 4x1 target matrix, got %dx%d", rows, cols)
	}

	if x.At(1, 1) != 1 {
		t.Errorf("Expected x[1,1]=1, got %f", x.At(1, 1))
	}
	if y.At(3, 0) != 0 {
		t.Errorf("Expected y[3,0]=0, got %f", y.At(3, 0))
	}
}

func TestLoad_WithHeader(t *testing.T) {
	path := writeCSV(t, "data.csv", "a,b,label\n1.5,2.5,1\n3.5,4.5,0\n")

	x, y, err := Load(path, Options{HasHeader: true})
	if err != nil {
		t.Fatalf("Failed to load dataset with header: %v", err)
	}

	rows, _ := x.Dims()
	if rows != 2 {
		t.Errorf("Expected 2 rows after skipping header, got %d", rows)
	}
	if x.At(0, 0) != 1.5 {
		t.Errorf("Expected x[0,0]=1.5, got %f", x.At(0, 0))
	}
	if y.At(1, 0) != 0 {
		t.Errorf("Expected y[1,0]=0, got %f", y.At(1, 0))
	}
}

func TestLoad_MultipleTargetColumns(t *testing.T) {
	path := writeCSV(t, "onehot.csv", "1,2,1,0\n3,4,0,1\n")

	x, y, err := Load(path, Options{TargetCols: 2})
	if err != nil {
		t.Fatalf("Failed to load dataset: %v", err)
	}

	_, xCols := x.Dims()
	_, yCols := y.Dims()
	if xCols != 2 {
		t.Errorf("Expected 2 feature columns, got %d", xCols)
	}
	if yCols != 2 {
		t.Errorf("Expected 2 target columns, got %d", yCols)
	}
	if y.At(0, 0) != 1 || y.At(0, 1) != 0 {
		t.Errorf("Expected first target row [1 0], got [%f %f]", y.At(0, 0), y.At(0, 1))
	}
}

func TestLoad_TrimsWhitespace(t *testing.T) {
	path := writeCSV(t, "spaces.csv", " 1.0 , 2.0 , 0 \n")

	x, _, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Failed to load dataset with padded fields: %v", err)
	}
	if x.At(0, 1) != 2.0 {
		t.Errorf("Expected x[0,1]=2.0, got %f", x.At(0, 1))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoad_NonNumericField(t *testing.T) {
	path := writeCSV(t, "bad.csv", "1,2,0\n1,abc,1\n")

	_, _, err := Load(path, Options{})
	if err == nil {
		t.Fatal("Expected error for non-numeric field")
	}
}

func TestLoad_TooManyTargetColumns(t *testing.T) {
	path := writeCSV(t, "narrow.csv", "1,2\n3,4\n")

	_, _, err := Load(path, Options{TargetCols: 2})
	if err == nil {
		t.Fatal("Expected error when target columns consume all columns")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeCSV(t, "empty.csv", "")

	_, _, err := Load(path, Options{})
	if err == nil {
		t.Fatal("Expected error for empty dataset")
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	path := writeCSV(t, "header.csv", "a,b,label\n")

	_, _, err := Load(path, Options{HasHeader: true})
	if err == nil {
		t.Fatal("Expected error for dataset with header but no rows")
	}
}

func TestLoadFeatures(t *testing.T) {
	path := writeCSV(t, "features.csv", "1,2,3\n4,5,6\n")

	x, err := LoadFeatures(path, false)
	if err != nil {
		t.Fatalf("Failed to load features: %v", err)
	}

	rows, cols := x.Dims()
	if rows != 2 || cols != 3 {
		t.Errorf("Expected 2x3 matrix, got %dx%d", rows, cols)
	}
	if x.At(1, 2) != 6 {
		t.Errorf("Expected x[1,2]=6, got %f", x.At(1, 2))
	}
}

func TestSplit_Sizes(t *testing.T) {
	x := mat.NewDense(10, 2, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		x.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i))
	}

	xTrain, yTrain, xTest, yTest, err := Split(x, y, 0.3, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Failed to split dataset: %v", err)
	}

	trainRows, _ := xTrain.Dims()
	testRows, _ := xTest.Dims()
	if trainRows != 7 {
		t.Errorf("Expected 7 train rows, got %d", trainRows)
	}
	if testRows != 3 {
		t.Errorf("Expected 3 test rows, got %d", testRows)
	}

	yTrainRows, _ := yTrain.Dims()
	yTestRows, _ := yTest.Dims()
	if yTrainRows != trainRows || yTestRows != testRows {
		t.Errorf("Target rows do not match feature rows: train %d/%d test %d/%d",
			trainRows, yTrainRows, testRows, yTestRows)
	}
}

func TestSplit_RowsStayPaired(t *testing.T) {
	x := mat.NewDense(8, 1, nil)
	y := mat.NewDense(8, 1, nil)
	for i := 0; i < 8; i++ {
		x.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i)*10)
	}

	xTrain, yTrain, xTest, yTest, err := Split(x, y, 0.25, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Failed to split dataset: %v", err)
	}

	check := func(fx, fy *mat.Dense) {
		rows, _ := fx.Dims()
		for i := 0; i < rows; i++ {
			if fy.At(i, 0) != fx.At(i, 0)*10 {
				t.Errorf("Row %d lost pairing: x=%f y=%f", i, fx.At(i, 0), fy.At(i, 0))
			}
		}
	}
	check(xTrain, yTrain)
	check(xTest, yTest)
}

func TestSplit_Deterministic(t *testing.T) {
	x := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})

	_, _, xTest1, _, err := Split(x, y, 0.5, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("Failed first split: %v", err)
	}
	_, _, xTest2, _, err := Split(x, y, 0.5, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("Failed second split: %v", err)
	}

	if !mat.Equal(xTest1, xTest2) {
		t.Error("Expected identical splits for identical seeds")
	}
}

func TestSplit_InvalidFraction(t *testing.T) {
	x := mat.NewDense(4, 1, nil)
	y := mat.NewDense(4, 1, nil)

	for _, frac := range []float64{0, 1, -0.5, 1.5} {
		if _, _, _, _, err := Split(x, y, frac, nil); err == nil {
			t.Errorf("Expected error for test fraction %g", frac)
		}
	}
}

func TestSplit_RowMismatch(t *testing.T) {
	x := mat.NewDense(4, 1, nil)
	y := mat.NewDense(3, 1, nil)

	if _, _, _, _, err := Split(x, y, 0.5, nil); err == nil {
		t.Fatal("Expected error for mismatched row counts")
	}
}

func TestSplit_KeepsBothSidesNonEmpty(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	xTrain, _, xTest, _, err := Split(x, y, 0.01, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Failed to split dataset: %v", err)
	}
	trainRows, _ := xTrain.Dims()
	testRows, _ := xTest.Dims()
	if testRows < 1 {
		t.Error("Expected at least one test row")
	}
	if trainRows < 1 {
		t.Error("Expected at least one train row")
	}
	if trainRows+testRows != 3 {
		t.Errorf("Expected partition to cover all rows, got %d+%d", trainRows, testRows)
	}
}
