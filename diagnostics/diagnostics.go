// Package diagnostics summarizes the posterior samples of shrinkage fits: the largest
// coefficients, their traces, autocorrelation, histograms and credible intervals.
package diagnostics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aouyang1/go-shrinkage/oracle"
	"github.com/aouyang1/go-shrinkage/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultTopK   = 10
	DefaultMaxLag = 30
	DefaultBins   = 30

	// CredibleMass is the posterior mass inside the reported interval
	CredibleMass = 0.95
)

var (
	ErrInvalidTopK = errors.New("top k must be positive")
	ErrNoResult    = errors.New("no fit result")
	ErrBadIndex    = errors.New("coefficient index out of range")
)

// Options configures the diagnostics
type Options struct {
	TopK   int `json:"top_k" yaml:"top_k"`
	MaxLag int `json:"max_lag" yaml:"max_lag"`
	Bins   int `json:"bins" yaml:"bins"`
}

// NewDefaultOptions returns the ten largest coefficients with 30 lags and 30 histogram bins
func NewDefaultOptions() *Options {
	return &Options{
		TopK:   DefaultTopK,
		MaxLag: DefaultMaxLag,
		Bins:   DefaultBins,
	}
}

// Validate runs basic validation on the diagnostics options
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.TopK <= 0 {
		return nil, ErrInvalidTopK
	}
	if o.MaxLag < 0 {
		return nil, stats.ErrNegativeLag
	}
	if o.Bins <= 0 {
		return nil, stats.ErrInvalidBins
	}
	return o, nil
}

// TopK returns the indices of the k coefficients with the largest absolute posterior median
// in decreasing order. Ties keep column order. Fewer than k indices are returned when the
// fit has fewer coefficients.
func TopK(res *oracle.Result, k int) ([]int, error) {
	if res == nil {
		return nil, ErrNoResult
	}
	if k <= 0 {
		return nil, ErrInvalidTopK
	}
	idx := make([]int, len(res.PosteriorMedian))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(res.PosteriorMedian[idx[a]]) > math.Abs(res.PosteriorMedian[idx[b]])
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx, nil
}

// Trace summarizes the draws of a coefficient
type Trace struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Interval is an equal tailed credible interval around the posterior median
type Interval struct {
	Lower  float64 `json:"lower"`
	Median float64 `json:"median"`
	Upper  float64 `json:"upper"`
}

// Contains reports whether v lies within the interval bounds
func (i Interval) Contains(v float64) bool {
	return v >= i.Lower && v <= i.Upper
}

// Histogram holds bin counts where bin i spans [Dividers[i], Dividers[i+1])
type Histogram struct {
	Dividers []float64 `json:"dividers"`
	Counts   []float64 `json:"counts"`
}

// Coefficient holds the diagnostics of a single coefficient
type Coefficient struct {
	Index   int    `json:"index"`
	Feature string `json:"feature"`

	Samples []float64 `json:"-"`

	Trace     Trace     `json:"trace"`
	ACF       []float64 `json:"acf"`
	ESS       float64   `json:"effective_sample_size"`
	Histogram Histogram `json:"histogram"`
	Interval  Interval  `json:"credible_interval"`
}

// Summary holds the diagnostics of the selected coefficients of one fit
type Summary struct {
	Prior        oracle.Prior  `json:"prior"`
	Coefficients []Coefficient `json:"coefficients"`
}

// Indices returns the coefficient indices in summary order
func (s *Summary) Indices() []int {
	idx := make([]int, len(s.Coefficients))
	for i, c := range s.Coefficients {
		idx[i] = c.Index
	}
	return idx
}

// Report summarizes the top k coefficients of a fit
func Report(res *oracle.Result, opt *Options) (*Summary, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	idx, err := TopK(res, opt.TopK)
	if err != nil {
		return nil, err
	}
	return Summarize(res, idx, opt)
}

// Summarize computes the diagnostics of the given coefficients. The result is not modified.
func Summarize(res *oracle.Result, indices []int, opt *Options) (*Summary, error) {
	if res == nil {
		return nil, ErrNoResult
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Prior:        res.Prior,
		Coefficients: make([]Coefficient, 0, len(indices)),
	}
	for _, j := range indices {
		if j < 0 || j >= len(res.Features) {
			return nil, fmt.Errorf("index %d of %d coefficients, %w", j, len(res.Features), ErrBadIndex)
		}
		c, err := summarizeCoefficient(res.CoefSamples(j), opt)
		if err != nil {
			return nil, fmt.Errorf("%s coefficient %q, %w", res.Prior.Label(), res.Features[j], err)
		}
		c.Index = j
		c.Feature = res.Features[j]
		s.Coefficients = append(s.Coefficients, c)
	}
	return s, nil
}

func summarizeCoefficient(samples []float64, opt *Options) (Coefficient, error) {
	c := Coefficient{Samples: samples}
	if len(samples) == 0 {
		return c, stats.ErrEmptySeries
	}

	mean, std := stat.MeanStdDev(samples, nil)
	if math.IsNaN(std) {
		std = 0
	}
	c.Trace = Trace{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(samples),
		Max:    floats.Max(samples),
	}

	acf, err := stats.ACF(samples, opt.MaxLag)
	if err != nil {
		return c, err
	}
	c.ESS = stats.EffectiveSampleSize(acf, len(samples))
	// constant chains carry no autocorrelation
	for i, v := range acf {
		if math.IsNaN(v) {
			acf[i] = 0
		}
	}
	c.ACF = acf

	dividers, counts, err := stats.Histogram(samples, opt.Bins)
	if err != nil {
		return c, err
	}
	c.Histogram = Histogram{Dividers: dividers, Counts: counts}

	tail := (1 - CredibleMass) / 2
	q, err := stats.Quantiles([]float64{tail, 0.5, 1 - tail}, samples)
	if err != nil {
		return c, err
	}
	c.Interval = Interval{Lower: q[0], Median: q[1], Upper: q[2]}
	return c, nil
}

// Compare summarizes every fit on the union of their top k coefficients so the priors can be
// compared on the same features. Indices are ordered by first appearance across the fits.
// Nil results are skipped and produce a nil summary.
func Compare(results []*oracle.Result, opt *Options) ([]*Summary, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	var union []int
	seen := make(map[int]struct{})
	for _, res := range results {
		if res == nil {
			continue
		}
		idx, err := TopK(res, opt.TopK)
		if err != nil {
			return nil, err
		}
		for _, j := range idx {
			if _, exists := seen[j]; exists {
				continue
			}
			seen[j] = struct{}{}
			union = append(union, j)
		}
	}

	summaries := make([]*Summary, len(results))
	for i, res := range results {
		if res == nil {
			continue
		}
		s, err := Summarize(res, union, opt)
		if err != nil {
			return nil, err
		}
		summaries[i] = s
	}
	return summaries, nil
}
