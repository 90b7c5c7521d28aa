package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	goerrors "github.com/go-errors/errors"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/hscells/sieve"
	"github.com/hscells/sieve/output"
	"github.com/hscells/sieve/prepare"
	"github.com/hscells/sieve/selection"
	"github.com/peterbourgon/diskv"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
)

type args struct {
	Train         string   `help:"CSV file to fit the feature selection on" arg:"required,positional"`
	Apply         []string `help:"CSV files to transform with the fitted selection" arg:"-a,separate"`
	Output        string   `help:"Directory to write filtered CSV files to" arg:"required,-o"`
	Config        string   `help:"Properties file containing the selection configuration" arg:"-c"`
	Target        *string  `help:"Revenue column to predict" arg:"-t"`
	Targets       []string `help:"All revenue columns; those not predicted are removed" arg:"separate"`
	Exclude       []string `help:"Remove features whose name contains this substring" arg:"-x,separate"`
	NearZero      *bool    `help:"Also remove near-zero variance features"`
	FreqCut       *float64 `help:"Cutoff for the ratio of the most to second most frequent value (default 19)"`
	UniqueCut     *float64 `help:"Cutoff for the percentage of distinct values (default 10)"`
	Threshold     *float64 `help:"Cutoff for absolute pairwise correlation (default 0.9)"`
	NoCorrelation bool     `help:"Do not remove correlated features"`
	Workers       *int     `help:"Number of columns analysed concurrently" arg:"-w"`
	Cache         string   `help:"Directory to cache fitted masks in"`
	CacheSize     int      `help:"Number of fitted masks to cache in memory when no cache directory is given"`
	Report        string   `help:"File to write a JSON report of the selection to" arg:"-r"`
	Metrics       string   `help:"File to write variance metrics of every feature to (.csv or .json)" arg:"-m"`
	Verbose       bool     `help:"Log what each selector removes" arg:"-v"`
	Debug         bool     `help:"Print a stack trace on failure"`
}

func (args) Version() string {
	return "sieve 19.Oct.2026"
}

func (args) Description() string {
	return `Select the features of a client revenue dataset by removing zero (or near-zero) variance and highly correlated columns.`
}

type report struct {
	RunID    string              `json:"run_id"`
	Train    string              `json:"train"`
	Config   config              `json:"config"`
	Features []string            `json:"features"`
	Stages   []sieve.StageResult `json:"stages"`
	Outputs  []string            `json:"outputs"`
}

// configure combines the configuration file with the command line; the command line wins.
func (a args) configure() (config, error) {
	c := defaultConfig()
	if len(a.Config) > 0 {
		var err error
		c, err = loadConfig(a.Config)
		if err != nil {
			return c, err
		}
	}
	if a.Target != nil {
		c.Target = *a.Target
	}
	if len(a.Targets) > 0 {
		c.Targets = a.Targets
	}
	if len(a.Exclude) > 0 {
		c.Exclude = a.Exclude
	}
	if a.NearZero != nil {
		c.NearZero = *a.NearZero
	}
	if a.FreqCut != nil {
		c.FreqCut = *a.FreqCut
	}
	if a.UniqueCut != nil {
		c.UniqueCut = *a.UniqueCut
	}
	if a.Threshold != nil {
		c.Threshold = *a.Threshold
	}
	if a.NoCorrelation {
		c.Correlation = false
	}
	if a.Workers != nil {
		c.Workers = *a.Workers
	}
	return c, c.validate()
}

func (a args) cache() (selection.MaskCacher, error) {
	if len(a.Cache) > 0 {
		return selection.NewDiskvMaskCache(diskv.New(diskv.Options{
			BasePath:     a.Cache,
			Transform:    selection.BlockTransform(8),
			CacheSizeMax: 4096 * 1024,
		})), nil
	}
	if a.CacheSize > 0 {
		return selection.NewLRUMaskCache(a.CacheSize)
	}
	return nil, nil
}

func loadFile(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()
	return prepare.LoadCSV(f)
}

func writeFile(path string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return errors.Wrapf(df.Err, "building %s", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	err = df.WriteCSV(f)
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

func outputPath(dir, input string) (string, error) {
	out := filepath.Join(dir, filepath.Base(input))
	a, err := filepath.Abs(out)
	if err != nil {
		return "", err
	}
	b, err := filepath.Abs(input)
	if err != nil {
		return "", err
	}
	if a == b {
		return "", errors.Errorf("refusing to overwrite input file %s", input)
	}
	return out, nil
}

func run(a args) (report, error) {
	c, err := a.configure()
	if err != nil {
		return report{}, err
	}
	cache, err := a.cache()
	if err != nil {
		return report{}, err
	}

	components := []func() interface{}{
		sieve.Selectors(c.selectors()...),
		sieve.Verbose(a.Verbose),
	}
	if cache != nil {
		components = append(components, sieve.Cache(cache))
	}
	p := sieve.NewPipeline(components...)

	df, err := loadFile(a.Train)
	if err != nil {
		return report{}, errors.Wrapf(err, "loading %s", a.Train)
	}
	exclude := prepare.MatchColumns(df.Names(), c.Exclude)
	if a.Verbose && len(exclude) > 0 {
		log.Printf("excluding %v\n", exclude)
	}
	d, err := prepare.DataPrep(df,
		prepare.TargetColumns(c.Targets...),
		prepare.TargetFeature(c.Target),
		prepare.Exclude(exclude...))
	if err != nil {
		return report{}, errors.Wrapf(err, "preparing %s", a.Train)
	}

	r, m := d.Dims()
	log.Printf("fitting %d features on %d observations of %s\n", m, r, a.Train)
	result, err := p.Fit(d.X, d.Names)
	if err != nil {
		return report{}, err
	}
	log.Printf("selected %d of %d features\n", len(result.Names), m)

	err = os.MkdirAll(a.Output, 0777)
	if err != nil {
		return report{}, err
	}

	rep := report{
		RunID:    result.RunID,
		Train:    a.Train,
		Config:   c,
		Features: result.Names,
		Stages:   result.Stages,
	}

	out, err := outputPath(a.Output, a.Train)
	if err != nil {
		return report{}, err
	}
	err = writeFile(out, prepare.Frame(result.X, result.Names, series.New(d.Y, series.Float, d.Target)))
	if err != nil {
		return report{}, err
	}
	rep.Outputs = append(rep.Outputs, out)

	if len(a.Apply) > 0 {
		bar := pb.New(len(a.Apply))
		bar.Start()
		for _, path := range a.Apply {
			out, err := apply(p, d, a.Output, path)
			if err != nil {
				bar.Finish()
				return report{}, errors.Wrapf(err, "applying selection to %s", path)
			}
			rep.Outputs = append(rep.Outputs, out)
			bar.Increment()
		}
		bar.Finish()
	}

	if len(a.Metrics) > 0 {
		err = writeMetrics(a.Metrics, d.Names, result)
		if err != nil {
			return report{}, err
		}
	}

	if len(a.Report) > 0 {
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return report{}, err
		}
		err = ioutil.WriteFile(a.Report, b, 0644)
		if err != nil {
			return report{}, err
		}
	}
	return rep, nil
}

// writeMetrics outputs the metrics of the first stage that computed any, formatted according to
// the extension of path.
func writeMetrics(path string, names []string, result sieve.PipelineResult) error {
	var format output.MetricsFormatter = output.JsonMetricsFormatter
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		format = output.CsvMetricsFormatter
	}
	for _, stage := range result.Stages {
		if len(stage.Metrics) > 0 {
			s, err := format(names, stage.Metrics)
			if err != nil {
				return err
			}
			return ioutil.WriteFile(path, []byte(s), 0644)
		}
		names = stage.Kept
	}
	log.Println("no metrics were computed; the masks may have come from the cache")
	return nil
}

// apply transforms the features of a held out file; its target is carried through if present.
func apply(p *sieve.Pipeline, d prepare.Dataset, dir, path string) (string, error) {
	df, err := loadFile(path)
	if err != nil {
		return "", err
	}
	X, err := prepare.Matrix(df, d.Names)
	if err != nil {
		return "", err
	}
	Xt, names, err := p.Transform(X, d.Names)
	if err != nil {
		return "", err
	}

	var extra []series.Series
	for _, name := range df.Names() {
		if name == d.Target {
			extra = append(extra, df.Col(name))
		}
	}

	out, err := outputPath(dir, path)
	if err != nil {
		return "", err
	}
	return out, writeFile(out, prepare.Frame(Xt, names, extra...))
}

func main() {
	var a args
	arg.MustParse(&a)

	rep, err := run(a)
	if err != nil {
		if a.Debug {
			fmt.Println(goerrors.Wrap(err, 0).ErrorStack())
		}
		log.Fatal(err)
	}
	for _, out := range rep.Outputs {
		fmt.Println(out)
	}
}
