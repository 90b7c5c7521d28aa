package selection_test

import (
	"errors"
	"math"
	"testing"

	"github.com/hscells/sieve/selection"
	"gonum.org/v1/gonum/mat"
)

// columns builds a matrix from column slices of equal length.
func columns(cols ...[]float64) *mat.Dense {
	X := mat.NewDense(len(cols[0]), len(cols), nil)
	for j, col := range cols {
		X.SetCol(j, col)
	}
	return X
}

func repeat(v float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = v
	}
	return x
}

func TestVarianceFilter_ZeroVariance(t *testing.T) {
	X := columns(
		[]float64{1, 1, 1, 1},
		[]float64{1, 2, 3, 4},
		[]float64{1, 2, 3, 4},
	)

	v := selection.NewVarianceFilter()
	Xt, err := selection.FitTransform(v, X)
	if err != nil {
		t.Fatal(err)
	}

	r, c := Xt.Dims()
	if r != 4 || c != 2 {
		t.Fatalf("expected 4x2 matrix, got %dx%d", r, c)
	}
	for i := 0; i < r; i++ {
		if Xt.At(i, 0) != float64(i+1) || Xt.At(i, 1) != float64(i+1) {
			t.Errorf("row %d: unexpected values %v", i, mat.Row(nil, i, Xt))
		}
	}

	names, err := v.FeatureNames([]string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "b" || names[1] != "c" {
		t.Errorf("expected [b c], got %v", names)
	}
}

func TestVarianceFilter_NearZeroVariance(t *testing.T) {
	d := append(append(repeat(1, 96), repeat(2, 2)...), repeat(3, 2)...)
	e := make([]float64, 100)
	for i := range e {
		e[i] = float64(i)
	}
	X := columns(d, e)

	v := selection.NewVarianceFilter(selection.UniqueCut(10), selection.FreqCut(19))
	if err := v.Fit(X); err != nil {
		t.Fatal(err)
	}

	metrics, err := v.Metrics()
	if err != nil {
		t.Fatal(err)
	}
	m := metrics[0]
	if m.Distinct != 3 {
		t.Errorf("expected 3 distinct values, got %d", m.Distinct)
	}
	if m.FreqRatio != 48 {
		t.Errorf("expected frequency ratio of 48, got %v", m.FreqRatio)
	}
	if m.UniquePercent != 3 {
		t.Errorf("expected 3%% unique values, got %v", m.UniquePercent)
	}
	if !m.NearZeroVariance || m.ZeroVariance {
		t.Errorf("expected near-zero but not zero variance, got %+v", m)
	}
	if metrics[1].NearZeroVariance || metrics[1].ZeroVariance {
		t.Errorf("expected column e to be kept, got %+v", metrics[1])
	}

	// Strict filtering keeps d.
	Xt, err := v.Transform(X)
	if err != nil {
		t.Fatal(err)
	}
	if _, c := Xt.Dims(); c != 2 {
		t.Errorf("expected 2 columns, got %d", c)
	}

	nz := selection.NewVarianceFilter(selection.NearZero(true))
	Xt, err = selection.FitTransform(nz, X)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := Xt.Dims(); r != 100 || c != 1 {
		t.Errorf("expected 100x1 matrix, got %dx%d", r, c)
	}
	if Xt.At(99, 0) != 99 {
		t.Errorf("expected column e to survive, got %v", Xt.At(99, 0))
	}
}

func TestVarianceFilter_NearZeroSupersetOfZero(t *testing.T) {
	X := columns(
		[]float64{5, 5, 5, 5, 5, 5},
		[]float64{1, 1, 1, 1, 1, 2},
		[]float64{1, 2, 1, 2, 1, 2},
		[]float64{0, 0, 0, 0, 0, 0},
	)

	v := selection.NewVarianceFilter(selection.FreqCut(2), selection.UniqueCut(50))
	if err := v.Fit(X); err != nil {
		t.Fatal(err)
	}
	zero, nearZero, err := v.Masks()
	if err != nil {
		t.Fatal(err)
	}
	if !zero.Equal(selection.ColumnMask{true, false, false, true}) {
		t.Errorf("unexpected zero variance mask %v", zero)
	}
	if !nearZero.Equal(selection.ColumnMask{true, true, false, true}) {
		t.Errorf("unexpected near-zero variance mask %v", nearZero)
	}
	for i := range zero {
		if zero[i] && !nearZero[i] {
			t.Errorf("column %d is zero variance but not near-zero variance", i)
		}
	}
}

func TestVarianceFilter_Idempotent(t *testing.T) {
	X := columns(
		[]float64{1, 1, 2, 1, 1, 1, 1, 1},
		[]float64{3, 3, 3, 3, 3, 3, 3, 3},
		[]float64{1, 2, 3, 4, 5, 6, 7, 8},
	)
	v := selection.NewVarianceFilter(selection.NearZero(true), selection.FreqCut(5), selection.UniqueCut(30))
	if err := v.Fit(X); err != nil {
		t.Fatal(err)
	}
	first, err := v.Mask()
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Fit(X); err != nil {
		t.Fatal(err)
	}
	second, err := v.Mask()
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(second) {
		t.Errorf("refitting changed the mask: %v != %v", first, second)
	}
}

func TestVarianceFilter_Workers(t *testing.T) {
	cols := make([][]float64, 37)
	for j := range cols {
		cols[j] = make([]float64, 20)
		for i := range cols[j] {
			if j%3 != 0 {
				cols[j][i] = float64(i % (j%5 + 1))
			}
		}
	}
	X := columns(cols...)

	sequential := selection.NewVarianceFilter(selection.NearZero(true))
	parallel := selection.NewVarianceFilter(selection.NearZero(true), selection.VarianceWorkers(8))
	if err := sequential.Fit(X); err != nil {
		t.Fatal(err)
	}
	if err := parallel.Fit(X); err != nil {
		t.Fatal(err)
	}
	a, _ := sequential.Mask()
	b, _ := parallel.Mask()
	if !a.Equal(b) {
		t.Errorf("parallel fit differs from sequential fit: %v != %v", b, a)
	}
}

func TestVarianceFilter_TransformRowsUnconstrained(t *testing.T) {
	v := selection.NewVarianceFilter()
	if err := v.Fit(columns([]float64{1, 1, 1}, []float64{1, 2, 3})); err != nil {
		t.Fatal(err)
	}
	Xt, err := v.Transform(columns([]float64{9, 8, 7, 6, 5}, []float64{4, 3, 2, 1, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if r, c := Xt.Dims(); r != 5 || c != 1 {
		t.Errorf("expected 5x1 matrix, got %dx%d", r, c)
	}
	if Xt.At(0, 0) != 4 {
		t.Errorf("expected the second column to survive, got %v", Xt.At(0, 0))
	}
}

func TestVarianceFilter_Errors(t *testing.T) {
	v := selection.NewVarianceFilter()

	if _, err := v.Transform(columns([]float64{1, 2})); !errors.Is(err, selection.ErrNotFitted) {
		t.Errorf("expected not fitted error, got %v", err)
	}
	if _, err := v.FeatureNames([]string{"a"}); !errors.Is(err, selection.ErrNotFitted) {
		t.Errorf("expected not fitted error, got %v", err)
	}
	if _, err := v.Mask(); !errors.Is(err, selection.ErrNotFitted) {
		t.Errorf("expected not fitted error, got %v", err)
	}

	five := columns(
		[]float64{1, 2, 3}, []float64{1, 2, 3}, []float64{1, 2, 3},
		[]float64{1, 2, 3}, []float64{1, 2, 3},
	)
	four := columns([]float64{1, 2, 3}, []float64{1, 2, 3}, []float64{1, 2, 3}, []float64{1, 2, 3})
	if err := v.Fit(five); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Transform(four); !errors.Is(err, selection.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch error, got %v", err)
	}
	if _, err := v.FeatureNames([]string{"a", "b", "c", "d"}); !errors.Is(err, selection.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch error, got %v", err)
	}

	if err := v.Fit(&mat.Dense{}); !errors.Is(err, selection.ErrEmptyMatrix) {
		t.Errorf("expected empty matrix error, got %v", err)
	}
	if _, err := v.Transform(five); !errors.Is(err, selection.ErrNotFitted) {
		t.Errorf("expected a failed fit to discard previous state, got %v", err)
	}
}

func TestVarianceFilter_MissingValues(t *testing.T) {
	nan := math.NaN()
	X := columns(
		[]float64{nan, nan, nan, nan},
		[]float64{1, 2, 3, 4},
		[]float64{nan, nan, 1, 2},
	)
	v := selection.NewVarianceFilter()
	if err := v.Fit(X); err != nil {
		t.Fatal(err)
	}
	metrics, err := v.Metrics()
	if err != nil {
		t.Fatal(err)
	}

	if m := metrics[0]; m.Distinct != 1 || !m.ZeroVariance || !m.NearZeroVariance {
		t.Errorf("expected an all missing column to have zero variance, got %+v", m)
	}
	if m := metrics[2]; m.Distinct != 3 || m.FreqRatio != 2 || m.UniquePercent != 75 || m.ZeroVariance {
		t.Errorf("expected missing values to count as one value, got %+v", m)
	}

	mask, _ := v.Mask()
	if !mask.Equal(selection.ColumnMask{true, false, false}) {
		t.Errorf("expected only the all missing column to be dropped, got %v", mask)
	}
}
