package main

import (
	"strings"

	"github.com/hscells/sieve/prepare"
	"github.com/hscells/sieve/selection"
	"github.com/magiconair/properties"
	"github.com/pkg/errors"
)

// config holds the settings of a sieve run. It can be read from a properties file such as:
//
//	variance.near_zero = true
//	variance.freq_cut = 19
//	variance.unique_cut = 10
//	variance.workers = 4
//	correlation.enabled = true
//	correlation.threshold = 0.9
//	target.feature = actual_net_revenue
//	target.columns = actual_net_revenue,bill_total_sans_passthrough,invoice_total_revenue
//	features.exclude = _id,_date
type config struct {
	NearZero    bool     `json:"near_zero"`
	FreqCut     float64  `json:"freq_cut"`
	UniqueCut   float64  `json:"unique_cut"`
	Workers     int      `json:"workers"`
	Correlation bool     `json:"correlation"`
	Threshold   float64  `json:"threshold"`
	Target      string   `json:"target"`
	Targets     []string `json:"targets"`
	Exclude     []string `json:"exclude"`
}

func defaultConfig() config {
	return config{
		FreqCut:     selection.DefaultFreqCut,
		UniqueCut:   selection.DefaultUniqueCut,
		Workers:     1,
		Correlation: true,
		Threshold:   selection.DefaultThreshold,
		Target:      prepare.DefaultTargetFeature,
		Targets:     prepare.DefaultTargetColumns,
	}
}

// loadConfig reads a properties file over the default configuration.
func loadConfig(path string) (config, error) {
	c := defaultConfig()
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return c, errors.Wrapf(err, "loading %s", path)
	}

	c.NearZero = p.GetBool("variance.near_zero", c.NearZero)
	c.FreqCut = p.GetFloat64("variance.freq_cut", c.FreqCut)
	c.UniqueCut = p.GetFloat64("variance.unique_cut", c.UniqueCut)
	c.Workers = p.GetInt("variance.workers", c.Workers)
	c.Correlation = p.GetBool("correlation.enabled", c.Correlation)
	c.Threshold = p.GetFloat64("correlation.threshold", c.Threshold)
	c.Target = p.GetString("target.feature", c.Target)
	c.Targets = list(p.GetString("target.columns", ""), c.Targets)
	c.Exclude = list(p.GetString("features.exclude", ""), c.Exclude)
	return c, nil
}

func (c config) validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return errors.Errorf("correlation threshold must be between 0 and 1, got %v", c.Threshold)
	}
	if c.FreqCut < 1 {
		return errors.Errorf("frequency ratio cutoff must be at least 1, got %v", c.FreqCut)
	}
	if c.UniqueCut < 0 || c.UniqueCut > 100 {
		return errors.Errorf("unique percentage cutoff must be between 0 and 100, got %v", c.UniqueCut)
	}
	return nil
}

func list(value string, def []string) []string {
	if len(strings.TrimSpace(value)) == 0 {
		return def
	}
	var l []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); len(v) > 0 {
			l = append(l, v)
		}
	}
	return l
}

// selectors creates the selectors of the pipeline: a variance filter followed, optionally, by a
// correlation filter.
func (c config) selectors() []selection.Selector {
	s := []selection.Selector{
		selection.NewVarianceFilter(
			selection.NearZero(c.NearZero),
			selection.FreqCut(c.FreqCut),
			selection.UniqueCut(c.UniqueCut),
			selection.VarianceWorkers(c.Workers)),
	}
	if c.Correlation {
		s = append(s, selection.NewCorrelationFilter(selection.Threshold(c.Threshold)))
	}
	return s
}
