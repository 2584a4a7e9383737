// Package shrinkage runs shrinkage regression experiments: a dataset is loaded and
// preprocessed for its outcome type, fit under the Horseshoe, Horseshoe+, Ridge and LASSO
// priors, scored with an outcome specific metric and summarized with posterior diagnostics.
package shrinkage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-shrinkage/dataset"
	"github.com/aouyang1/go-shrinkage/diagnostics"
	"github.com/aouyang1/go-shrinkage/metrics"
	"github.com/aouyang1/go-shrinkage/oracle"
	"github.com/aouyang1/go-shrinkage/preprocess"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

var ErrNoSurvivalData = errors.New("dataset has no survival times")

// Experiment runs one outcome pipeline. Experiments share no mutable state and may run
// concurrently.
type Experiment struct {
	opt *Options

	loader      dataset.Loader
	fitter      *oracle.Fitter
	concordance metrics.Concordance
}

// New creates an experiment. A nil loader reads csv tables by locator and a nil oracle uses
// the LaplaceOracle with default options.
func New(opt *Options, loader dataset.Loader, o oracle.Oracle) (*Experiment, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if loader == nil {
		loader = dataset.NewCSVLoader(nil)
	}
	if o == nil {
		o, err = oracle.NewLaplaceOracle(nil)
		if err != nil {
			return nil, err
		}
	}
	fitter, err := oracle.NewFitter(o, opt.Sampler)
	if err != nil {
		return nil, err
	}
	return &Experiment{
		opt:         opt,
		loader:      loader,
		fitter:      fitter,
		concordance: metrics.NewUnoConcordance(opt.Tau),
	}, nil
}

// Name of the experiment
func (e *Experiment) Name() string {
	return e.opt.Name
}

// Options returns the validated experiment options
func (e *Experiment) Options() *Options {
	return e.opt
}

// Run loads the dataset and runs the experiment on it
func (e *Experiment) Run(ctx context.Context) (*Report, error) {
	features, response, err := e.loader.Load(ctx, e.opt.Source)
	if err != nil {
		return nil, fmt.Errorf("experiment %s, %w", e.opt.Name, err)
	}
	return e.RunDataset(ctx, features, response)
}

// RunDataset preprocesses the tables and fits every configured prior with the same seed.
// A prior that diverges or whose metric is undefined is reported as NA without failing
// the run.
func (e *Experiment) RunDataset(ctx context.Context, features *dataset.FeatureMatrix, response *dataset.ResponseTable) (*Report, error) {
	start := time.Now()
	ds, err := preprocess.Prepare(features, response, e.opt.Preprocess)
	if err != nil {
		return nil, fmt.Errorf("experiment %s, %w", e.opt.Name, err)
	}
	m, n := ds.Dims()
	slog.Info("prepared dataset",
		"experiment", e.opt.Name,
		"outcome", ds.Outcome(),
		"response", ds.Response(),
		"samples", m,
		"features", n,
	)

	report := &Report{
		RunID:     uuid.NewString(),
		Name:      e.opt.Name,
		Outcome:   ds.Outcome(),
		Response:  ds.Response(),
		Samples:   m,
		Features:  ds.Features(),
		Seed:      e.opt.Seed,
		Options:   e.opt,
		Summary:   NewSummary(ds.Outcome(), ds.Response()),
		Fits:      make(map[oracle.Prior]*oracle.Result, len(e.opt.Priors)),
		CreatedAt: start,
	}

	for _, prior := range e.opt.Priors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, row, err := e.fitAndEvaluate(ctx, ds, prior)
		if err != nil {
			return nil, fmt.Errorf("experiment %s prior %s, %w", e.opt.Name, prior.Label(), err)
		}
		report.Summary.Set(row)
		if res != nil {
			report.Fits[prior] = res
		}
	}

	results := make([]*oracle.Result, len(oracle.Priors))
	for i, p := range oracle.Priors {
		results[i] = report.Fits[p]
	}
	summaries, err := diagnostics.Compare(results, e.opt.Diagnostics)
	if err != nil {
		return nil, fmt.Errorf("experiment %s diagnostics, %w", e.opt.Name, err)
	}
	for _, s := range summaries {
		if s != nil {
			report.Diagnostics = append(report.Diagnostics, s)
		}
	}

	slog.Info("finished experiment", "experiment", e.opt.Name, "elapsed", time.Since(start))
	return report, nil
}

// fitAndEvaluate fits a single prior and scores it. Every prior goes through this same path
// with the experiment seed. A diverged fit or undefined metric is confined to the returned
// row; any other error is returned.
func (e *Experiment) fitAndEvaluate(ctx context.Context, ds *preprocess.StandardizedDataset, prior oracle.Prior) (*oracle.Result, Row, error) {
	row := Row{
		Prior:  prior,
		Metric: Metric(ds.Outcome()),
		Value:  nan(),
	}

	x := ds.X()
	res, err := e.fitter.Fit(ctx, oracle.Input{
		X:        x,
		Y:        ds.Y(),
		Features: ds.Features(),
		Response: ds.Response(),
		Family:   Family(ds.Outcome()),
		Prior:    prior,
		Seed:     e.opt.Seed,
		Sampler:  e.opt.Sampler,
	})
	if err != nil {
		if !errors.Is(err, oracle.ErrFitDivergence) {
			return nil, row, err
		}
		slog.Warn("fit diverged", "experiment", e.opt.Name, "prior", prior.Label(), "error", err)
		row.Err = err.Error()
		return nil, row, nil
	}

	value, err := e.Evaluate(ds, x, res)
	if err != nil {
		if !errors.Is(err, metrics.ErrMetricUndefined) {
			return nil, row, err
		}
		slog.Warn("metric undefined", "experiment", e.opt.Name, "prior", prior.Label(), "metric", row.Metric, "error", err)
		row.Err = err.Error()
		return res, row, nil
	}
	row.Value = value
	slog.Info("evaluated prior", "experiment", e.opt.Name, "prior", prior.Label(), "metric", row.Metric, "value", value)
	return res, row, nil
}

// Evaluate scores the posterior mean fit against the preprocessed response: RMSE for
// continuous and count outcomes, AUC for binary outcomes and Uno's C-statistic for survival
// outcomes
func (e *Experiment) Evaluate(ds *preprocess.StandardizedDataset, x mat.Matrix, res *oracle.Result) (float64, error) {
	eta, err := res.LinearPredictor(x)
	if err != nil {
		return nan(), err
	}
	y := ds.Y()

	switch ds.Outcome() {
	case preprocess.Binary:
		probs := make([]float64, len(eta))
		for i, v := range eta {
			probs[i] = oracle.Logistic.Mean(v)
		}
		if e.opt.AUCFromScores {
			return metrics.AUC(probs, y)
		}
		return metrics.AUC(metrics.Labels(probs, metrics.DefaultThreshold), y)
	case preprocess.Count:
		for i, v := range eta {
			eta[i] = oracle.Poisson.Mean(v)
		}
		return metrics.RMSE(eta, y)
	case preprocess.Survival:
		times, events := ds.Time(), ds.Event()
		if times == nil || events == nil {
			return nan(), ErrNoSurvivalData
		}
		return e.concordance.Concordance(times, events, eta)
	default:
		return metrics.RMSE(eta, y)
	}
}
