package sieve

import (
	"github.com/hscells/sieve/selection"
	"gonum.org/v1/gonum/mat"
)

// StageResult describes what a single selector of the pipeline removed.
type StageResult struct {
	Name    string                    `json:"name"`
	Mask    selection.ColumnMask      `json:"mask"`
	Dropped []string                  `json:"dropped"`
	Kept    []string                  `json:"kept"`
	Cached  bool                      `json:"cached"`
	Metrics []selection.ColumnMetrics `json:"metrics,omitempty"`
}

// PipelineResult is the output of fitting a pipeline.
type PipelineResult struct {
	RunID  string        `json:"run_id"`
	Stages []StageResult `json:"stages"`
	X      *mat.Dense    `json:"-"`
	Names  []string      `json:"names"`
}

// Dropped returns the names of all features removed by the pipeline, in stage order.
func (r PipelineResult) Dropped() []string {
	var dropped []string
	for _, stage := range r.Stages {
		dropped = append(dropped, stage.Dropped...)
	}
	return dropped
}
