package selection

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultThreshold is the default cutoff on absolute Pearson correlation.
const DefaultThreshold = 0.9

// CorrelationFilter removes one column of every pair of columns whose absolute Pearson
// correlation is above a threshold. Of the two, the column with the larger average absolute
// correlation to all columns is removed.
//
// This is not exact: the correlation matrix and each column's average correlation are computed
// once, and not recalculated after a column is marked for removal.
//
// Every column of the fitted matrix must have nonzero variance; zero variance columns should be
// removed beforehand with a VarianceFilter.
type CorrelationFilter struct {
	threshold float64

	corr *mat.SymDense
	mask ColumnMask
}

// Threshold sets the cutoff on absolute correlation above which a pair of columns is pruned.
func Threshold(threshold float64) func(*CorrelationFilter) {
	return func(c *CorrelationFilter) {
		c.threshold = threshold
	}
}

// NewCorrelationFilter creates a new correlation filter.
func NewCorrelationFilter(options ...func(*CorrelationFilter)) *CorrelationFilter {
	c := &CorrelationFilter{
		threshold: DefaultThreshold,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Fit computes which columns of X to drop.
func (c *CorrelationFilter) Fit(X mat.Matrix) error {
	c.corr, c.mask = nil, nil

	r, n, err := checkFit(X)
	if err != nil {
		return err
	}
	if r < 2 {
		return errors.Wrapf(ErrInsufficientRows, "correlation needs at least 2 rows, got %d", r)
	}

	col := make([]float64, r)
	for j := 0; j < n; j++ {
		if constant(mat.Col(col, j, X)) {
			return errors.Wrapf(ErrDegenerateInput, "column %d has zero variance", j)
		}
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, X, nil)

	abs := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := corr.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(ErrDegenerateInput, "columns %d and %d have an undefined correlation", i, j)
			}
			// Rounding can push a perfect correlation just past 1.
			abs.SetSym(i, j, math.Min(math.Abs(v), 1))
		}
	}

	// Row means over the full symmetric matrix, diagonal included.
	means := make([]float64, n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		mat.Row(row, i, abs)
		means[i] = floats.Sum(row) / float64(n)
	}

	mask := NewColumnMask(n)
	for i := 0; i < n; i++ {
		avg := means[i]
		for j := i + 1; j < n; j++ {
			if abs.At(i, j) <= c.threshold {
				continue
			}
			if means[j] > avg {
				mask[j] = true
			} else {
				mask[i] = true
			}
		}
	}

	c.corr, c.mask = abs, mask
	return nil
}

// Mask returns the columns marked for removal.
func (c *CorrelationFilter) Mask() (ColumnMask, error) {
	if c.mask == nil {
		return nil, errors.WithStack(ErrNotFitted)
	}
	return append(ColumnMask(nil), c.mask...), nil
}

// Correlations returns the absolute correlation matrix computed by Fit.
func (c *CorrelationFilter) Correlations() (*mat.SymDense, error) {
	if c.corr == nil {
		return nil, errors.WithStack(ErrNotFitted)
	}
	return mat.NewSymDense(c.corr.Symmetric(), append([]float64(nil), c.corr.RawSymmetric().Data...)), nil
}

// Transform drops the correlated columns from X. The row count of X is kept unless every column
// is dropped, in which case the result is an empty (0x0) matrix.
func (c *CorrelationFilter) Transform(X mat.Matrix) (*mat.Dense, error) {
	return apply(c.mask, X)
}

// FeatureNames drops the names of correlated columns.
func (c *CorrelationFilter) FeatureNames(names []string) ([]string, error) {
	return applyNames(c.mask, names)
}

func (c *CorrelationFilter) String() string {
	return fmt.Sprintf("correlation(threshold=%g)", c.threshold)
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
