// Package selection provides feature selection filters that operate on a numeric feature matrix
// (rows are observations, columns are features) in a fit/transform lifecycle.
package selection

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted is returned when a filter is used before Fit.
	ErrNotFitted = errors.New("not fitted")
	// ErrShapeMismatch is returned when a matrix (or name list) does not have the column count seen by Fit.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrDegenerateInput is returned when a column yields an undefined correlation, e.g. a constant column.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrEmptyMatrix is returned when fitting a matrix with no rows or no columns.
	ErrEmptyMatrix = errors.New("empty matrix")
	// ErrInsufficientRows is returned when there are too few observations to compute a statistic.
	ErrInsufficientRows = errors.New("insufficient rows")
)

// Selector is a feature selection filter. Fit derives a ColumnMask from a training matrix, which
// Transform and FeatureNames then apply to any matrix (or names) with the same column layout.
type Selector interface {
	// Fit computes the mask of columns to drop.
	Fit(X mat.Matrix) error
	// Transform returns X without the dropped columns.
	Transform(X mat.Matrix) (*mat.Dense, error)
	// FeatureNames returns the names of the columns that survive Transform.
	FeatureNames(names []string) ([]string, error)
	// Mask returns the mask that Transform applies.
	Mask() (ColumnMask, error)
	// String is a canonical description of the filter and its configuration.
	String() string
}

// FitTransform fits s to X and then transforms X.
func FitTransform(s Selector, X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// checkFit validates a matrix handed to Fit.
func checkFit(X mat.Matrix) (r, c int, err error) {
	if X == nil {
		return 0, 0, errors.WithStack(ErrEmptyMatrix)
	}
	r, c = X.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.Wrapf(ErrEmptyMatrix, "%dx%d", r, c)
	}
	return r, c, nil
}

// apply checks that mask was fit and matches X before dropping columns.
func apply(mask ColumnMask, X mat.Matrix) (*mat.Dense, error) {
	if mask == nil {
		return nil, errors.WithStack(ErrNotFitted)
	}
	if X == nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "fit on %d columns, got nil matrix", len(mask))
	}
	if _, c := X.Dims(); c != len(mask) {
		return nil, errors.Wrapf(ErrShapeMismatch, "fit on %d columns, got %d", len(mask), c)
	}
	return mask.Apply(X), nil
}

func applyNames(mask ColumnMask, names []string) ([]string, error) {
	if mask == nil {
		return nil, errors.WithStack(ErrNotFitted)
	}
	if len(names) != len(mask) {
		return nil, errors.Wrapf(ErrShapeMismatch, "fit on %d columns, got %d names", len(mask), len(names))
	}
	return mask.ApplyNames(names), nil
}
