package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Fitter validates the inputs to an Oracle and the samples it returns. Any non-finite sample
// or error metric is reported as ErrFitDivergence.
type Fitter struct {
	oracle  Oracle
	sampler *SamplerConfig
}

// NewFitter wraps the oracle. The sampler configuration is applied to inputs that do not
// carry their own; a nil configuration uses the defaults.
func NewFitter(oracle Oracle, sampler *SamplerConfig) (*Fitter, error) {
	if oracle == nil {
		return nil, ErrNoOracle
	}
	sampler, err := sampler.Validate()
	if err != nil {
		return nil, err
	}
	return &Fitter{oracle: oracle, sampler: sampler}, nil
}

// Fit runs the oracle on the input. The seed is passed through unchanged so every prior fit
// with the same seed sees the same random stream.
func (f *Fitter) Fit(ctx context.Context, in Input) (*Result, error) {
	in, err := f.validate(in)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := f.oracle.Fit(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := f.check(in, res); err != nil {
		return nil, err
	}
	slog.Debug("fit prior",
		"prior", in.Prior.Label(),
		"family", in.Family,
		"draws", res.Draws(),
		"rmse", res.RMSE,
		"elapsed", time.Since(start),
	)
	return res, nil
}

func (f *Fitter) validate(in Input) (Input, error) {
	if !in.Family.Valid() {
		return in, fmt.Errorf("%q, %w", in.Family, ErrUnknownFamily)
	}
	if !in.Prior.Valid() {
		return in, fmt.Errorf("%q, %w", in.Prior, ErrUnknownPrior)
	}
	if in.X == nil {
		return in, fmt.Errorf("no design matrix, %w", ErrInputMismatch)
	}
	m, n := in.X.Dims()
	if len(in.Y) != m {
		return in, fmt.Errorf("%d rows and %d responses, %w", m, len(in.Y), ErrInputMismatch)
	}
	if in.Features == nil {
		in.Features = make([]string, n)
		for j := range n {
			in.Features[j] = fmt.Sprintf("x%d", j+1)
		}
	}
	if len(in.Features) != n {
		return in, fmt.Errorf("%d columns and %d feature names, %w", n, len(in.Features), ErrInputMismatch)
	}
	if in.Sampler == nil {
		sampler := *f.sampler
		in.Sampler = &sampler
	}
	if _, err := in.Sampler.Validate(); err != nil {
		return in, err
	}
	return in, nil
}

func (f *Fitter) check(in Input, res *Result) error {
	if res == nil || len(res.Coef) == 0 {
		return fmt.Errorf("%s returned no samples, %w", in.Prior.Label(), ErrFitDivergence)
	}
	if len(res.Intercept) != len(res.Coef) {
		return fmt.Errorf("%d intercept draws and %d coefficient draws, %w", len(res.Intercept), len(res.Coef), ErrFitDivergence)
	}
	n := len(in.Features)
	for i, draw := range res.Coef {
		if len(draw) != n {
			return fmt.Errorf("draw %d has %d coefficients instead of %d, %w", i, len(draw), n, ErrFitDivergence)
		}
		for _, v := range draw {
			if !isFinite(v) {
				return fmt.Errorf("non-finite coefficient in draw %d, %w", i, ErrFitDivergence)
			}
		}
		if !isFinite(res.Intercept[i]) {
			return fmt.Errorf("non-finite intercept in draw %d, %w", i, ErrFitDivergence)
		}
	}
	// oracles may return raw draws and leave the posterior summaries to the caller
	if len(res.PosteriorMean) != n || len(res.PosteriorMedian) != n {
		if len(res.Features) != n {
			res.Features = append([]string(nil), in.Features...)
		}
		if err := res.Summarize(); err != nil {
			return fmt.Errorf("%s posterior summary, %w, %w", in.Prior.Label(), ErrFitDivergence, err)
		}
	}
	if !isFinite(res.RMSE) || res.RMSE < 0 {
		return fmt.Errorf("rmse of %g, %w", res.RMSE, ErrFitDivergence)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
