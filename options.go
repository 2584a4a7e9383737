package shrinkage

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aouyang1/go-shrinkage/dataset"
	"github.com/aouyang1/go-shrinkage/diagnostics"
	"github.com/aouyang1/go-shrinkage/metrics"
	"github.com/aouyang1/go-shrinkage/oracle"
	"github.com/aouyang1/go-shrinkage/preprocess"
)

var ErrDuplicatePrior = errors.New("prior listed more than once")

// DefaultSeed is shared by every prior fit unless overridden
const DefaultSeed uint64 = 2024

// Options configures a single experiment
type Options struct {
	Name   string         `json:"name"`
	Source dataset.Source `json:"source"`

	Preprocess *preprocess.Options `json:"preprocess"`

	// Priors fit in the experiment. Priors left out are reported as NA.
	Priors  []oracle.Prior        `json:"priors"`
	Sampler *oracle.SamplerConfig `json:"sampler"`
	Seed    uint64                `json:"seed"`

	// Tau truncates the concordance of survival outcomes
	Tau float64 `json:"tau"`

	// AUCFromScores ranks binary outcomes by predicted probability instead of predicted label
	AUCFromScores bool `json:"auc_from_scores"`

	Diagnostics *diagnostics.Options `json:"diagnostics"`
}

// NewDefaultOptions returns a continuous outcome experiment fitting all four priors
func NewDefaultOptions() *Options {
	return &Options{
		Name:        "experiment",
		Preprocess:  preprocess.NewDefaultOptions(),
		Priors:      slices.Clone(oracle.Priors),
		Sampler:     oracle.NewDefaultSamplerConfig(),
		Seed:        DefaultSeed,
		Tau:         metrics.DefaultTau,
		Diagnostics: diagnostics.NewDefaultOptions(),
	}
}

// Validate runs basic validation on the experiment options, filling unset fields with
// defaults
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.Name == "" {
		o.Name = "experiment"
	}

	var err error
	if o.Preprocess, err = o.Preprocess.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocess options, %w", err)
	}
	if o.Sampler, err = o.Sampler.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sampler options, %w", err)
	}
	if o.Diagnostics, err = o.Diagnostics.Validate(); err != nil {
		return nil, fmt.Errorf("invalid diagnostics options, %w", err)
	}

	if len(o.Priors) == 0 {
		o.Priors = slices.Clone(oracle.Priors)
	}
	for i, p := range o.Priors {
		if !p.Valid() {
			return nil, fmt.Errorf("%q, %w", p, oracle.ErrUnknownPrior)
		}
		if slices.Contains(o.Priors[:i], p) {
			return nil, fmt.Errorf("%q, %w", p, ErrDuplicatePrior)
		}
	}
	if o.Tau <= 0 {
		o.Tau = metrics.DefaultTau
	}
	return o, nil
}

// Family returns the likelihood used to fit the outcome
func Family(outcome preprocess.Outcome) oracle.Family {
	switch outcome {
	case preprocess.Binary:
		return oracle.Logistic
	case preprocess.Count:
		return oracle.Poisson
	default:
		return oracle.Gaussian
	}
}

// Metric returns the performance metric reported for the outcome
func Metric(outcome preprocess.Outcome) metrics.Name {
	switch outcome {
	case preprocess.Binary:
		return metrics.NameAUC
	case preprocess.Survival:
		return metrics.NameCIndex
	default:
		return metrics.NameRMSE
	}
}
