// Package preprocess turns an aligned feature matrix and response table into a standardized
// dataset ready for fitting, applying the response transform of the outcome type.
package preprocess

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-shrinkage/dataset"
	"github.com/aouyang1/go-shrinkage/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Outcome is the type of the response being modeled
type Outcome string

const (
	Continuous Outcome = "continuous"
	Binary     Outcome = "binary"
	Count      Outcome = "count"
	Survival   Outcome = "survival"
)

// Outcomes lists every supported outcome type in reporting order
var Outcomes = []Outcome{Continuous, Binary, Count, Survival}

const (
	DefaultTimeColumn  = "time"
	DefaultEventColumn = "status"
)

var (
	ErrEmptyDataset      = errors.New("no samples remain after filtering")
	ErrUnknownOutcome    = errors.New("unknown outcome type")
	ErrNoCandidates      = errors.New("no candidate response columns")
	ErrNoSurvivalColumns = errors.New("survival outcome requires time and event columns")
	ErrInvalidEvent      = errors.New("event indicator must be 0 or 1")
)

// Valid reports whether the outcome is supported
func (o Outcome) Valid() bool {
	switch o {
	case Continuous, Binary, Count, Survival:
		return true
	}
	return false
}

// Options configures preprocessing
type Options struct {
	Outcome Outcome

	// ResponseColumn forces the response column. When empty the candidate with the fewest
	// missing values is selected.
	ResponseColumn string

	// Candidates restricts the response columns considered during selection. Defaults to all
	// response columns except the survival time and event columns.
	Candidates []string

	// CenterResponse subtracts the mean of the continuous and binary responses before any
	// thresholding
	CenterResponse bool

	TimeColumn  string
	EventColumn string
}

// NewDefaultOptions returns options for a centered continuous outcome
func NewDefaultOptions() *Options {
	return &Options{
		Outcome:        Continuous,
		CenterResponse: true,
		TimeColumn:     DefaultTimeColumn,
		EventColumn:    DefaultEventColumn,
	}
}

// Validate runs basic validation on the preprocessing options
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if !o.Outcome.Valid() {
		return nil, fmt.Errorf("%q, %w", o.Outcome, ErrUnknownOutcome)
	}
	if o.TimeColumn == "" {
		o.TimeColumn = DefaultTimeColumn
	}
	if o.EventColumn == "" {
		o.EventColumn = DefaultEventColumn
	}
	return o, nil
}

// Prepare selects the response, drops samples with a missing response or predictor,
// standardizes the predictors and transforms the response for the outcome type.
func Prepare(features *dataset.FeatureMatrix, response *dataset.ResponseTable, opt *Options) (*StandardizedDataset, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if features == nil || response == nil {
		return nil, ErrEmptyDataset
	}
	if !dataset.SameIDs(features, response) {
		response, err = dataset.Align(features, response)
		if err != nil {
			return nil, err
		}
	}

	col := opt.ResponseColumn
	if col == "" {
		candidates := opt.Candidates
		if len(candidates) == 0 {
			candidates = defaultCandidates(response, opt)
		}
		col, err = SelectResponse(response, candidates)
		if err != nil {
			return nil, err
		}
	}
	y, err := response.Column(col)
	if err != nil {
		return nil, err
	}

	var times, events []float64
	if opt.Outcome == Survival {
		if !response.HasColumn(opt.TimeColumn) || !response.HasColumn(opt.EventColumn) {
			return nil, fmt.Errorf("%q and %q, %w", opt.TimeColumn, opt.EventColumn, ErrNoSurvivalColumns)
		}
		times, _ = response.Column(opt.TimeColumn)
		events, _ = response.Column(opt.EventColumn)
		for _, e := range events {
			if !math.IsNaN(e) && e != 0 && e != 1 {
				return nil, fmt.Errorf("%q has value %g, %w", opt.EventColumn, e, ErrInvalidEvent)
			}
		}
	}

	if opt.Outcome == Count {
		y = CountTransform(y)
	}

	keep := keepRows(features, y, times, events)
	total := len(features.IDs)
	if len(keep) == 0 {
		return nil, fmt.Errorf("response %q with %d samples, %w", col, total, ErrEmptyDataset)
	}
	if dropped := total - len(keep); dropped > 0 {
		slog.Info("dropped samples with missing values", "response", col, "dropped", dropped, "remaining", len(keep))
	}

	subset, err := features.SelectRows(keep)
	if err != nil {
		return nil, err
	}
	y = selectValues(y, keep)
	times = selectValues(times, keep)
	events = selectValues(events, keep)

	switch opt.Outcome {
	case Continuous:
		if opt.CenterResponse {
			y, _ = Center(y)
		}
	case Binary:
		if opt.CenterResponse {
			y, _ = Center(y)
		}
		y, err = ThresholdMedian(y)
		if err != nil {
			return nil, err
		}
	case Survival:
		y, _ = Center(y)
	}

	x, means, scales := Standardize(subset.X)

	return &StandardizedDataset{
		ids:      subset.IDs,
		features: subset.Columns,
		x:        x,
		y:        y,
		time:     times,
		event:    events,
		means:    means,
		scales:   scales,
		response: col,
		outcome:  opt.Outcome,
	}, nil
}

func defaultCandidates(response *dataset.ResponseTable, opt *Options) []string {
	candidates := make([]string, 0, len(response.Columns))
	for _, c := range response.Columns {
		if c == opt.TimeColumn || c == opt.EventColumn {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// keepRows returns the rows with a finite response, complete predictors and, when present,
// finite survival columns
func keepRows(features *dataset.FeatureMatrix, y, times, events []float64) []int {
	complete := features.CompleteRows()
	keep := make([]int, 0, len(complete))
	for _, i := range complete {
		if !isFinite(y[i]) {
			continue
		}
		if times != nil && (!isFinite(times[i]) || !isFinite(events[i])) {
			continue
		}
		keep = append(keep, i)
	}
	return keep
}

func selectValues(x []float64, rows []int) []float64 {
	if x == nil {
		return nil
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = x[r]
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SelectResponse returns the candidate column with the fewest missing values. Ties resolve
// to the earliest candidate.
func SelectResponse(response *dataset.ResponseTable, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	best := ""
	bestMissing := math.MaxInt
	for _, c := range candidates {
		missing, err := response.MissingCount(c)
		if err != nil {
			return "", err
		}
		if missing < bestMissing {
			best = c
			bestMissing = missing
		}
	}
	return best, nil
}

// Standardize scales each column to zero mean and unit sample variance. Columns without
// variance are only centered.
func Standardize(x mat.Matrix) (*mat.Dense, []float64, []float64) {
	m, n := x.Dims()
	z := mat.NewDense(m, n, nil)
	means := make([]float64, n)
	scales := make([]float64, n)

	col := make([]float64, m)
	for j := range n {
		mat.Col(col, j, x)
		mean, std := stat.MeanStdDev(col, nil)
		if math.IsNaN(std) || std == 0 {
			std = 1.0
		}
		means[j] = mean
		scales[j] = std
		for i := range m {
			z.Set(i, j, (col[i]-mean)/std)
		}
	}
	return z, means, scales
}

// Center subtracts the mean and returns the centered copy along with the mean
func Center(y []float64) ([]float64, float64) {
	mean := stat.Mean(y, nil)
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = v - mean
	}
	return out, mean
}

// ThresholdMedian maps values greater than or equal to the median to 1 and the rest to 0
func ThresholdMedian(y []float64) ([]float64, error) {
	med, err := stats.Median(y)
	if err != nil {
		return nil, fmt.Errorf("unable to compute median, %w", ErrEmptyDataset)
	}
	out := make([]float64, len(y))
	for i, v := range y {
		if v >= med {
			out[i] = 1
		}
	}
	return out, nil
}

// CountTransform maps log scale values to counts with round(exp(y)). Non finite results
// are returned as NaN.
func CountTransform(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		c := math.Round(math.Exp(v))
		if !isFinite(c) {
			c = math.NaN()
		}
		out[i] = c
	}
	return out
}
