// Package prepare turns tabular client data into the numeric feature matrix and target vector
// consumed by the selection filters.
package prepare

import (
	"io"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/hscells/sieve/selection"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownTarget is returned when the target feature is not in the data or not a target column.
	ErrUnknownTarget = errors.New("unknown target feature")
	// ErrNonNumeric is returned when a feature column cannot be represented as a number.
	ErrNonNumeric = errors.New("non-numeric column")
	// ErrMissingColumn is returned when a requested column is not in the data.
	ErrMissingColumn = errors.New("missing column")
)

// DefaultTargetColumns are the revenue columns that may be predicted. Only one is used as the
// target; the others are removed from the features.
var DefaultTargetColumns = []string{
	"actual_net_revenue",
	"bill_total_sans_passthrough",
	"invoice_total_revenue",
}

// DefaultTargetFeature is the revenue column predicted by default.
const DefaultTargetFeature = "actual_net_revenue"

// Dataset is a numeric feature matrix, the names of its columns and the target vector.
type Dataset struct {
	X      *mat.Dense
	Y      []float64
	Names  []string
	Target string
}

// Dims returns the number of observations and features.
func (d Dataset) Dims() (r, c int) {
	return d.X.Dims()
}

// Preparation configures DataPrep.
type Preparation struct {
	targetColumns []string
	targetFeature string
	exclude       []string
}

// TargetColumns sets the revenue columns of the data.
func TargetColumns(columns ...string) func(*Preparation) {
	return func(p *Preparation) {
		p.targetColumns = columns
	}
}

// TargetFeature sets which of the target columns is predicted.
func TargetFeature(feature string) func(*Preparation) {
	return func(p *Preparation) {
		p.targetFeature = feature
	}
}

// Exclude removes columns from the features, e.g. identifiers.
func Exclude(columns ...string) func(*Preparation) {
	return func(p *Preparation) {
		p.exclude = append(p.exclude, columns...)
	}
}

// LoadCSV reads a CSV file with a header row into a data frame.
func LoadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r)
	if df.Err != nil {
		return df, errors.Wrap(df.Err, "reading csv")
	}
	return df, nil
}

// DataPrep splits df into features and target. The target columns other than the target feature
// are dropped, as are rows with a missing target. Every remaining column becomes a feature.
func DataPrep(df dataframe.DataFrame, options ...func(*Preparation)) (Dataset, error) {
	p := &Preparation{
		targetColumns: DefaultTargetColumns,
		targetFeature: DefaultTargetFeature,
	}
	for _, option := range options {
		option(p)
	}

	names := df.Names()
	if !contains(names, p.targetFeature) || !contains(p.targetColumns, p.targetFeature) {
		return Dataset{}, errors.Wrapf(ErrUnknownTarget, "%s", p.targetFeature)
	}

	// Pare down features.
	var features []string
	for _, name := range names {
		if name == p.targetFeature || contains(p.targetColumns, name) || contains(p.exclude, name) {
			continue
		}
		features = append(features, name)
	}

	// Keep only the rows which have a target.
	target := df.Col(p.targetFeature)
	if !numeric(target) {
		return Dataset{}, errors.Wrapf(ErrNonNumeric, "target %s has type %s", p.targetFeature, target.Type())
	}
	var rows []int
	for i, y := range target.Float() {
		if !math.IsNaN(y) {
			rows = append(rows, i)
		}
	}
	if len(rows) < 2 {
		return Dataset{}, errors.Wrapf(selection.ErrInsufficientRows, "%d rows with a target", len(rows))
	}
	if len(rows) < df.Nrow() {
		df = df.Subset(rows)
		if df.Err != nil {
			return Dataset{}, errors.Wrap(df.Err, "removing rows without a target")
		}
	}

	X, err := Matrix(df, features)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{
		X:      X,
		Y:      df.Col(p.targetFeature).Float(),
		Names:  features,
		Target: p.targetFeature,
	}, nil
}

// Matrix extracts the named numeric columns of df, in order, as a matrix.
func Matrix(df dataframe.DataFrame, names []string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, errors.Wrap(selection.ErrEmptyMatrix, "no feature columns")
	}
	if df.Nrow() == 0 {
		return nil, errors.Wrap(selection.ErrEmptyMatrix, "no rows")
	}
	have := df.Names()
	X := mat.NewDense(df.Nrow(), len(names), nil)
	for j, name := range names {
		if !contains(have, name) {
			return nil, errors.Wrapf(ErrMissingColumn, "%s", name)
		}
		s := df.Col(name)
		if !numeric(s) {
			return nil, errors.Wrapf(ErrNonNumeric, "column %s has type %s", name, s.Type())
		}
		X.SetCol(j, s.Float())
	}
	return X, nil
}

// Frame builds a data frame from the columns of X, followed by any extra columns.
func Frame(X mat.Matrix, names []string, extra ...series.Series) dataframe.DataFrame {
	_, c := X.Dims()
	cols := make([]series.Series, 0, c+len(extra))
	for j := 0; j < c; j++ {
		cols = append(cols, series.New(mat.Col(nil, j, X), series.Float, names[j]))
	}
	return dataframe.New(append(cols, extra...)...)
}

// MatchColumns returns the names that contain any of the substrings, in their original order.
func MatchColumns(names, substrings []string) []string {
	var matched []string
	for _, name := range names {
		for _, s := range substrings {
			if strings.Contains(name, s) {
				matched = append(matched, name)
				break
			}
		}
	}
	return matched
}

func numeric(s series.Series) bool {
	switch s.Type() {
	case series.Float, series.Int, series.Bool:
		return true
	}
	return false
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
