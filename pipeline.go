// Package sieve selects the features of a client revenue dataset that are passed on to model
// training. A pipeline is fit once on training data and then applied to any data with the same
// column layout.
package sieve

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hscells/sieve/selection"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type verbosity bool

// Pipeline applies a sequence of selectors, each fit on the output of the previous one.
type Pipeline struct {
	Selectors []selection.Selector
	Cache     selection.MaskCacher
	Verbose   bool

	masks   []selection.ColumnMask
	columns int
}

// Selectors adds selectors to the pipeline. They are fit and applied in the order given.
func Selectors(selectors ...selection.Selector) func() interface{} {
	return func() interface{} {
		return selectors
	}
}

// Cache configures a cache of fitted masks. A selector is not fit when the cache already holds
// a mask for the same selector configuration and data.
func Cache(cache selection.MaskCacher) func() interface{} {
	return func() interface{} {
		return cache
	}
}

// Verbose logs what each stage of the pipeline removes.
func Verbose(verbose bool) func() interface{} {
	return func() interface{} {
		return verbosity(verbose)
	}
}

// NewPipeline creates a new pipeline from the optional functional components.
func NewPipeline(components ...func() interface{}) *Pipeline {
	p := &Pipeline{}
	for _, component := range components {
		val := component()
		switch v := val.(type) {
		case []selection.Selector:
			p.Selectors = append(p.Selectors, v...)
		case selection.MaskCacher:
			p.Cache = v
		case verbosity:
			p.Verbose = bool(v)
		}
	}
	return p
}

// Fit fits every selector of the pipeline to X and returns the selected features. When names is
// nil, the columns are named x0, x1, and so on. Selectors after a stage that drops every column
// are not fit and record an empty mask.
func (p *Pipeline) Fit(X mat.Matrix, names []string) (PipelineResult, error) {
	p.masks, p.columns = nil, 0

	if X == nil {
		return PipelineResult{}, errors.WithStack(selection.ErrEmptyMatrix)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return PipelineResult{}, errors.Wrapf(selection.ErrEmptyMatrix, "%dx%d", r, c)
	}
	names, err := columnNames(names, c)
	if err != nil {
		return PipelineResult{}, err
	}

	result := PipelineResult{
		RunID: uuid.New().String(),
	}

	masks := make([]selection.ColumnMask, 0, len(p.Selectors))
	Xt := mat.DenseCopyOf(X)
	for _, s := range p.Selectors {
		var (
			mask   selection.ColumnMask
			cached bool
		)
		if _, m := Xt.Dims(); m == 0 {
			// Every column was dropped by an earlier stage; there is nothing left to fit.
			mask = selection.NewColumnMask(0)
		} else {
			mask, cached, err = p.fit(s, Xt)
			if err != nil {
				return PipelineResult{}, err
			}
		}

		stage := StageResult{
			Name:   s.String(),
			Mask:   mask,
			Cached: cached,
		}
		for j, drop := range mask {
			if drop {
				stage.Dropped = append(stage.Dropped, names[j])
			}
		}
		if v, ok := s.(*selection.VarianceFilter); ok && !cached && len(mask) > 0 {
			stage.Metrics, _ = v.Metrics()
		}

		Xt = mask.Apply(Xt)
		names = mask.ApplyNames(names)
		stage.Kept = names

		if p.Verbose {
			log.Printf("%s: dropped %d of %d columns %v\n", stage.Name, len(stage.Dropped), len(mask), stage.Dropped)
		}

		masks = append(masks, mask)
		result.Stages = append(result.Stages, stage)
	}

	p.masks, p.columns = masks, c
	result.X = Xt
	result.Names = names
	return result, nil
}

func (p *Pipeline) fit(s selection.Selector, X mat.Matrix) (selection.ColumnMask, bool, error) {
	_, c := X.Dims()

	var key string
	if p.Cache != nil {
		key = selection.CacheKey(s, X)
		mask, err := p.Cache.Get(key)
		if err == nil && len(mask) == c {
			return mask, true, nil
		} else if err != nil && !errors.Is(err, selection.ErrCacheMiss) {
			return nil, false, errors.Wrapf(err, "reading cached mask for %s", s)
		}
	}

	if err := s.Fit(X); err != nil {
		return nil, false, errors.Wrapf(err, "fitting %s", s)
	}
	mask, err := s.Mask()
	if err != nil {
		return nil, false, err
	}

	if p.Cache != nil {
		if err := p.Cache.Set(key, mask); err != nil {
			return nil, false, errors.Wrapf(err, "caching mask for %s", s)
		}
	}
	return mask, false, nil
}

// Transform applies the masks of a fitted pipeline to X and its column names. When the pipeline
// drops every column the result is an empty (0x0) matrix and the row count of X is not kept.
func (p *Pipeline) Transform(X mat.Matrix, names []string) (*mat.Dense, []string, error) {
	if p.masks == nil {
		return nil, nil, errors.WithStack(selection.ErrNotFitted)
	}
	if X == nil {
		return nil, nil, errors.Wrap(selection.ErrShapeMismatch, "nil matrix")
	}
	r, c := X.Dims()
	if c != p.columns {
		return nil, nil, errors.Wrapf(selection.ErrShapeMismatch, "fit on %d columns, got %d", p.columns, c)
	}
	if r == 0 {
		return nil, nil, errors.Wrap(selection.ErrEmptyMatrix, "no rows")
	}
	names, err := columnNames(names, p.columns)
	if err != nil {
		return nil, nil, err
	}

	Xt := mat.DenseCopyOf(X)
	for _, mask := range p.masks {
		Xt = mask.Apply(Xt)
		names = mask.ApplyNames(names)
	}
	return Xt, names, nil
}

// Masks returns the masks of a fitted pipeline, one per selector.
func (p *Pipeline) Masks() ([]selection.ColumnMask, error) {
	if p.masks == nil {
		return nil, errors.WithStack(selection.ErrNotFitted)
	}
	return p.masks, nil
}

func columnNames(names []string, c int) ([]string, error) {
	if names == nil {
		names = make([]string, c)
		for i := range names {
			names[i] = fmt.Sprintf("x%d", i)
		}
		return names, nil
	}
	if len(names) != c {
		return nil, errors.Wrapf(selection.ErrShapeMismatch, "%d columns, got %d names", c, len(names))
	}
	return append([]string(nil), names...), nil
}
