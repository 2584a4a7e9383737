// Package oracle fits shrinkage prior regressions. Sampling is delegated to an Oracle and the
// Fitter validates what comes back.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aouyang1/go-shrinkage/metrics"
	"github.com/aouyang1/go-shrinkage/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrFitDivergence  = errors.New("fit diverged")
	ErrUnknownFamily  = errors.New("unknown family")
	ErrUnknownPrior   = errors.New("unknown prior")
	ErrInvalidSampler = errors.New("invalid sampler configuration")
	ErrInputMismatch  = errors.New("design matrix, response and feature names have inconsistent sizes")
	ErrNoOracle       = errors.New("no oracle provided")
	ErrNoSamples      = errors.New("result has no posterior samples")
)

// Family is the likelihood of the regression
type Family string

const (
	Gaussian Family = "gaussian"
	Logistic Family = "logistic"
	Poisson  Family = "poisson"
)

func (f Family) Valid() bool {
	switch f {
	case Gaussian, Logistic, Poisson:
		return true
	}
	return false
}

// Prior is the shrinkage prior placed on the regression coefficients
type Prior string

const (
	Horseshoe     Prior = "hs"
	HorseshoePlus Prior = "hs+"
	Ridge         Prior = "ridge"
	Lasso         Prior = "lasso"
)

// Priors lists every prior in reporting order
var Priors = []Prior{Horseshoe, HorseshoePlus, Ridge, Lasso}

func (p Prior) Valid() bool {
	switch p {
	case Horseshoe, HorseshoePlus, Ridge, Lasso:
		return true
	}
	return false
}

// Label returns the display name of the prior
func (p Prior) Label() string {
	switch p {
	case Horseshoe:
		return "Horseshoe"
	case HorseshoePlus:
		return "Horseshoe+"
	case Ridge:
		return "Ridge"
	case Lasso:
		return "LASSO"
	default:
		return string(p)
	}
}

// Slug is a file name safe identifier of the prior
func (p Prior) Slug() string {
	return strings.ReplaceAll(string(p), "+", "plus")
}

const (
	DefaultBurnIn = 10000
	DefaultDraws  = 1000
	DefaultThin   = 1
)

// SamplerConfig controls the posterior sampler
type SamplerConfig struct {
	BurnIn int `json:"burn_in" yaml:"burn_in"`
	Draws  int `json:"draws" yaml:"draws"`
	Thin   int `json:"thin" yaml:"thin"`
}

// NewDefaultSamplerConfig returns a burn-in of 10000 followed by 1000 retained draws
func NewDefaultSamplerConfig() *SamplerConfig {
	return &SamplerConfig{
		BurnIn: DefaultBurnIn,
		Draws:  DefaultDraws,
		Thin:   DefaultThin,
	}
}

// Validate runs basic validation on the sampler configuration
func (s *SamplerConfig) Validate() (*SamplerConfig, error) {
	if s == nil {
		s = NewDefaultSamplerConfig()
	}
	if s.BurnIn < 0 {
		return nil, fmt.Errorf("negative burn-in, %w", ErrInvalidSampler)
	}
	if s.Draws <= 0 {
		return nil, fmt.Errorf("draws must be positive, %w", ErrInvalidSampler)
	}
	if s.Thin <= 0 {
		return nil, fmt.Errorf("thin must be positive, %w", ErrInvalidSampler)
	}
	return s, nil
}

// Input is a single regression to fit. X is expected to be standardized.
type Input struct {
	X        mat.Matrix
	Y        []float64
	Features []string
	Response string

	Family  Family
	Prior   Prior
	Seed    uint64
	Sampler *SamplerConfig
}

// Oracle draws posterior samples of the intercept and coefficients
type Oracle interface {
	Fit(ctx context.Context, in Input) (*Result, error)
}

// Result holds the posterior samples of a fit
type Result struct {
	Prior    Prior         `json:"prior"`
	Family   Family        `json:"family"`
	Seed     uint64        `json:"seed"`
	Sampler  SamplerConfig `json:"sampler"`
	Formula  string        `json:"formula"`
	Features []string      `json:"features"`

	// Coef holds one row per draw and one column per feature
	Coef      [][]float64 `json:"coef_samples"`
	Intercept []float64   `json:"intercept_samples"`

	PosteriorMean   []float64 `json:"posterior_mean"`
	PosteriorMedian []float64 `json:"posterior_median"`
	InterceptMean   float64   `json:"intercept_mean"`

	// RMSE is the in-sample root mean squared error of the posterior mean fit on the
	// response scale
	RMSE float64 `json:"rmse"`
}

// Draws returns the number of posterior draws
func (r *Result) Draws() int {
	return len(r.Coef)
}

// CoefSamples returns the draws of a single coefficient
func (r *Result) CoefSamples(j int) []float64 {
	out := make([]float64, len(r.Coef))
	for i, draw := range r.Coef {
		out[i] = draw[j]
	}
	return out
}

// Summarize computes the posterior mean and median of every coefficient and the mean
// intercept from the samples
func (r *Result) Summarize() error {
	if len(r.Coef) == 0 {
		return ErrNoSamples
	}
	n := len(r.Features)
	r.PosteriorMean = make([]float64, n)
	r.PosteriorMedian = make([]float64, n)
	for j := range n {
		samples := r.CoefSamples(j)
		r.PosteriorMean[j] = stat.Mean(samples, nil)
		med, err := stats.Median(samples)
		if err != nil {
			return fmt.Errorf("coefficient %q, %w", r.Features[j], err)
		}
		r.PosteriorMedian[j] = med
	}
	r.InterceptMean = stat.Mean(r.Intercept, nil)
	return nil
}

// LinearPredictor returns the posterior mean linear predictor for each row of x
func (r *Result) LinearPredictor(x mat.Matrix) ([]float64, error) {
	_, n := x.Dims()
	if n != len(r.PosteriorMean) {
		return nil, fmt.Errorf("design has %d columns and fit has %d coefficients, %w", n, len(r.PosteriorMean), ErrInputMismatch)
	}
	var eta mat.VecDense
	eta.MulVec(x, mat.NewVecDense(n, r.PosteriorMean))
	out := eta.RawVector().Data
	for i := range out {
		out[i] += r.InterceptMean
	}
	return out, nil
}

// Mean maps a linear predictor to the response scale of the family
func (f Family) Mean(eta float64) float64 {
	switch f {
	case Logistic:
		if eta >= 0 {
			return 1.0 / (1.0 + math.Exp(-eta))
		}
		e := math.Exp(eta)
		return e / (1.0 + e)
	case Poisson:
		return math.Exp(eta)
	default:
		return eta
	}
}

// Formula renders the regression as a model formula string
func Formula(response string, features []string) string {
	if response == "" {
		response = "y"
	}
	if len(features) == 0 {
		return response + " ~ 1"
	}
	return response + " ~ " + strings.Join(features, " + ")
}

// rootMeanSquaredError of the posterior mean fit on the response scale
func rootMeanSquaredError(r *Result, x mat.Matrix, y []float64) (float64, error) {
	eta, err := r.LinearPredictor(x)
	if err != nil {
		return 0, err
	}
	for i, e := range eta {
		eta[i] = r.Family.Mean(e)
	}
	return metrics.RMSE(eta, y)
}
