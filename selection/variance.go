package selection

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultFreqCut is the default cutoff for the ratio of the most frequent value to the second
	// most frequent value (95/5).
	DefaultFreqCut = 95.0 / 5.0
	// DefaultUniqueCut is the default cutoff for the percentage of distinct values.
	DefaultUniqueCut = 10.0
)

// ColumnMetrics are the statistics VarianceFilter computes for a single column.
type ColumnMetrics struct {
	Distinct         int     `json:"distinct"`
	FreqRatio        float64 `json:"freq_ratio"`
	UniquePercent    float64 `json:"unique_percent"`
	ZeroVariance     bool    `json:"zero_variance"`
	NearZeroVariance bool    `json:"near_zero_variance"`
}

// VarianceFilter identifies columns with zero variance and, optionally, near-zero variance.
// It works similarly to caret::nearZeroVar in R.
//
// A column has zero variance when all of its values are identical. A column has near-zero
// variance when its percentage of distinct values is below the unique cutoff and the ratio of
// the most frequent value count to the second most frequent value count is above the
// frequency cutoff. Every zero variance column also has near-zero variance.
type VarianceFilter struct {
	nearZero  bool
	freqCut   float64
	uniqueCut float64
	workers   int

	zero    ColumnMask
	nearZ   ColumnMask
	metrics []ColumnMetrics
}

// NearZero configures the filter to also drop near-zero variance columns.
func NearZero(nearZero bool) func(*VarianceFilter) {
	return func(v *VarianceFilter) {
		v.nearZero = nearZero
	}
}

// FreqCut sets the cutoff on the ratio of the most to the second most frequent value.
func FreqCut(cut float64) func(*VarianceFilter) {
	return func(v *VarianceFilter) {
		v.freqCut = cut
	}
}

// UniqueCut sets the cutoff on the percentage of distinct values.
func UniqueCut(cut float64) func(*VarianceFilter) {
	return func(v *VarianceFilter) {
		v.uniqueCut = cut
	}
}

// VarianceWorkers sets how many columns are analysed concurrently during Fit.
func VarianceWorkers(n int) func(*VarianceFilter) {
	return func(v *VarianceFilter) {
		v.workers = n
	}
}

// NewVarianceFilter creates a filter that, by default, only drops zero variance columns.
func NewVarianceFilter(options ...func(*VarianceFilter)) *VarianceFilter {
	v := &VarianceFilter{
		freqCut:   DefaultFreqCut,
		uniqueCut: DefaultUniqueCut,
		workers:   1,
	}
	for _, option := range options {
		option(v)
	}
	return v
}

// Fit computes the zero and near-zero variance masks of X.
func (v *VarianceFilter) Fit(X mat.Matrix) error {
	v.zero, v.nearZ, v.metrics = nil, nil, nil

	r, c, err := checkFit(X)
	if err != nil {
		return err
	}

	metrics := make([]ColumnMetrics, c)
	workers := v.workers
	if workers > c {
		workers = c
	}
	if workers <= 1 {
		for j := 0; j < c; j++ {
			metrics[j] = v.columnMetrics(mat.Col(nil, j, X), r)
		}
	} else {
		// Each goroutine writes only metrics[j].
		var wg sync.WaitGroup
		sem := make(chan bool, workers)
		for j := 0; j < c; j++ {
			sem <- true
			wg.Add(1)
			go func(j int) {
				defer func() { <-sem }()
				defer wg.Done()
				metrics[j] = v.columnMetrics(mat.Col(nil, j, X), r)
			}(j)
		}
		wg.Wait()
	}

	zero, nearZ := NewColumnMask(c), NewColumnMask(c)
	for j, m := range metrics {
		zero[j] = m.ZeroVariance
		nearZ[j] = m.NearZeroVariance
	}
	v.zero, v.nearZ, v.metrics = zero, nearZ, metrics
	return nil
}

func (v *VarianceFilter) columnMetrics(col []float64, n int) ColumnMetrics {
	// Missing values are counted as a single value.
	counts := make(map[float64]int)
	missing := 0
	for _, x := range col {
		if math.IsNaN(x) {
			missing++
			continue
		}
		counts[x]++
	}
	distinct := len(counts)
	if missing > 0 {
		distinct++
	}

	m := ColumnMetrics{
		Distinct:      distinct,
		UniquePercent: float64(distinct) / float64(n) * 100,
	}

	// A constant column is both zero and near-zero variance.
	if m.Distinct == 1 {
		m.ZeroVariance = true
		m.NearZeroVariance = true
		return m
	}

	sorted := make([]int, 0, distinct)
	for _, count := range counts {
		sorted = append(sorted, count)
	}
	if missing > 0 {
		sorted = append(sorted, missing)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	m.FreqRatio = freqRatio(sorted)
	m.NearZeroVariance = m.UniquePercent < v.uniqueCut && m.FreqRatio > v.freqCut
	return m
}

// freqRatio is the ratio of the first two counts, which must be sorted in descending order.
func freqRatio(counts []int) float64 {
	if len(counts) < 2 {
		panic(fmt.Sprintf("selection: frequency ratio needs at least two distinct values, got %d", len(counts)))
	}
	return float64(counts[0]) / float64(counts[1])
}

// Mask returns the near-zero variance mask when the filter drops near-zero variance columns, and
// the zero variance mask otherwise.
func (v *VarianceFilter) Mask() (ColumnMask, error) {
	mask := v.active()
	if mask == nil {
		return nil, errors.WithStack(ErrNotFitted)
	}
	return append(ColumnMask(nil), mask...), nil
}

// Masks returns both the zero variance and the near-zero variance masks.
func (v *VarianceFilter) Masks() (zero, nearZero ColumnMask, err error) {
	if v.zero == nil {
		return nil, nil, errors.WithStack(ErrNotFitted)
	}
	return append(ColumnMask(nil), v.zero...), append(ColumnMask(nil), v.nearZ...), nil
}

// Metrics returns the per-column statistics computed by Fit.
func (v *VarianceFilter) Metrics() ([]ColumnMetrics, error) {
	if v.metrics == nil {
		return nil, errors.WithStack(ErrNotFitted)
	}
	return append([]ColumnMetrics(nil), v.metrics...), nil
}

// Transform drops the zero (or near-zero) variance columns from X. The row count of X is kept
// unless every column is dropped, in which case the result is an empty (0x0) matrix.
func (v *VarianceFilter) Transform(X mat.Matrix) (*mat.Dense, error) {
	return apply(v.active(), X)
}

// FeatureNames drops the names of zero (or near-zero) variance columns.
func (v *VarianceFilter) FeatureNames(names []string) ([]string, error) {
	return applyNames(v.active(), names)
}

func (v *VarianceFilter) active() ColumnMask {
	if v.nearZero {
		return v.nearZ
	}
	return v.zero
}

func (v *VarianceFilter) String() string {
	return fmt.Sprintf("variance(near_zero=%t,freq_cut=%g,unique_cut=%g)", v.nearZero, v.freqCut, v.uniqueCut)
}
