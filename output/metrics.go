// Package output provides different formats of output for feature selection metrics.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/hscells/sieve/selection"
	"github.com/pkg/errors"
)

// MetricsFormatter outputs the per-feature statistics of a variance filter. The names and metrics
// must be parallel, i.e., metrics[i] describes the feature names[i].
type MetricsFormatter func(names []string, metrics []selection.ColumnMetrics) (string, error)

// JsonMetricsFormatter outputs metrics in a JSON format, keyed by feature name.
func JsonMetricsFormatter(names []string, metrics []selection.ColumnMetrics) (string, error) {
	if len(names) != len(metrics) {
		return "", errors.Wrapf(selection.ErrShapeMismatch, "%d names for %d metrics", len(names), len(metrics))
	}
	m := make(map[string]selection.ColumnMetrics, len(names))
	for i, name := range names {
		m[name] = metrics[i]
	}

	v, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// CsvMetricsFormatter outputs metrics in CSV format, one feature per row in column order.
func CsvMetricsFormatter(names []string, metrics []selection.ColumnMetrics) (string, error) {
	if len(names) != len(metrics) {
		return "", errors.Wrapf(selection.ErrShapeMismatch, "%d names for %d metrics", len(names), len(metrics))
	}
	b := bytes.NewBufferString("")
	w := csv.NewWriter(b)
	w.Write([]string{"feature", "distinct", "freq_ratio", "unique_percent", "zero_variance", "near_zero_variance"})
	for i, m := range metrics {
		w.Write([]string{
			names[i],
			strconv.Itoa(m.Distinct),
			strconv.FormatFloat(m.FreqRatio, 'f', -1, 64),
			strconv.FormatFloat(m.UniquePercent, 'f', -1, 64),
			strconv.FormatBool(m.ZeroVariance),
			strconv.FormatBool(m.NearZeroVariance),
		})
	}
	w.Flush()
	return b.String(), w.Error()
}
