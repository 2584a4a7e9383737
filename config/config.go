// Package config reads the YAML experiment suite run by the shrinkage command
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/aouyang1/go-shrinkage/dataset"
	"github.com/aouyang1/go-shrinkage/diagnostics"
	"github.com/aouyang1/go-shrinkage/metrics"
	"github.com/aouyang1/go-shrinkage/oracle"
	"github.com/aouyang1/go-shrinkage/preprocess"
	"gopkg.in/yaml.v3"
)

// Oracle names accepted by the suite
const (
	OracleLaplace = "laplace"
	OracleRscript = "rscript"
)

const DefaultSeed uint64 = 2024

var (
	ErrNoExperiments   = errors.New("suite has no experiments")
	ErrDuplicateName   = errors.New("duplicate experiment name")
	ErrNoName          = errors.New("experiment has no name")
	ErrNoSource        = errors.New("experiment has no feature or response locator")
	ErrUnknownOracle   = errors.New("unknown oracle")
	ErrInvalidParallel = errors.New("parallelism must be positive")
	ErrDuplicatePrior  = errors.New("prior listed more than once")
)

// Suite is a set of independent experiments sharing sampler, diagnostics and fetch settings
type Suite struct {
	Output   string `yaml:"output"`
	Parallel int    `yaml:"parallel"`
	Seed     uint64 `yaml:"seed"`
	Oracle   string `yaml:"oracle"`

	Sampler     *oracle.SamplerConfig `yaml:"sampler"`
	Diagnostics *diagnostics.Options  `yaml:"diagnostics"`
	Fetch       Fetch                 `yaml:"fetch"`

	Experiments []Experiment `yaml:"experiments"`
}

// Fetch configures remote dataset access
type Fetch struct {
	GCSCredentialsFile string            `yaml:"gcs_credentials_file"`
	S3                 dataset.S3Options `yaml:"s3"`
}

// Experiment describes one outcome pipeline
type Experiment struct {
	Name    string             `yaml:"name"`
	Outcome preprocess.Outcome `yaml:"outcome"`
	Source  dataset.Source     `yaml:"source"`

	ResponseColumn string   `yaml:"response_column"`
	Candidates     []string `yaml:"candidates"`

	// CenterResponse defaults to true when omitted
	CenterResponse *bool `yaml:"center_response"`

	TimeColumn  string  `yaml:"time_column"`
	EventColumn string  `yaml:"event_column"`
	Tau         float64 `yaml:"tau"`

	Priors        []oracle.Prior `yaml:"priors"`
	Seed          *uint64        `yaml:"seed"`
	AUCFromScores bool           `yaml:"auc_from_scores"`
}

// Load reads and validates a suite file
func Load(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a suite. Unknown fields are rejected.
func Parse(r io.Reader) (*Suite, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Suite
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoExperiments
		}
		return nil, fmt.Errorf("unable to decode suite, %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate fills defaults and checks every experiment
func (s *Suite) Validate() error {
	if s.Parallel == 0 {
		s.Parallel = 1
	}
	if s.Parallel < 0 {
		return ErrInvalidParallel
	}
	if s.Seed == 0 {
		s.Seed = DefaultSeed
	}
	switch s.Oracle {
	case "":
		s.Oracle = OracleLaplace
	case OracleLaplace, OracleRscript:
	default:
		return fmt.Errorf("%q, %w", s.Oracle, ErrUnknownOracle)
	}

	sampler, err := s.Sampler.Validate()
	if err != nil {
		return err
	}
	s.Sampler = sampler

	diag, err := s.Diagnostics.Validate()
	if err != nil {
		return err
	}
	s.Diagnostics = diag

	if len(s.Experiments) == 0 {
		return ErrNoExperiments
	}
	names := make(map[string]struct{}, len(s.Experiments))
	for i := range s.Experiments {
		e := &s.Experiments[i]
		if err := e.Validate(); err != nil {
			return fmt.Errorf("experiment %d, %w", i, err)
		}
		if _, exists := names[e.Name]; exists {
			return fmt.Errorf("%q, %w", e.Name, ErrDuplicateName)
		}
		names[e.Name] = struct{}{}
	}
	return nil
}

// Validate fills defaults and checks the experiment
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return ErrNoName
	}
	if !e.Outcome.Valid() {
		return fmt.Errorf("%q, %w", e.Outcome, preprocess.ErrUnknownOutcome)
	}
	if e.Source.Features == "" || e.Source.Response == "" {
		return fmt.Errorf("%q, %w", e.Name, ErrNoSource)
	}
	if e.CenterResponse == nil {
		center := true
		e.CenterResponse = &center
	}
	if e.TimeColumn == "" {
		e.TimeColumn = preprocess.DefaultTimeColumn
	}
	if e.EventColumn == "" {
		e.EventColumn = preprocess.DefaultEventColumn
	}
	if e.Tau <= 0 {
		e.Tau = metrics.DefaultTau
	}
	if len(e.Priors) == 0 {
		e.Priors = slices.Clone(oracle.Priors)
	}
	for i, p := range e.Priors {
		if !p.Valid() {
			return fmt.Errorf("%q, %w", p, oracle.ErrUnknownPrior)
		}
		if slices.Contains(e.Priors[:i], p) {
			return fmt.Errorf("%q, %w", p, ErrDuplicatePrior)
		}
	}
	return nil
}

// SeedFor returns the experiment seed, falling back to the suite seed
func (s *Suite) SeedFor(e Experiment) uint64 {
	if e.Seed != nil {
		return *e.Seed
	}
	return s.Seed
}

// PreprocessOptions returns the preprocessing options of the experiment
func (e Experiment) PreprocessOptions() *preprocess.Options {
	center := true
	if e.CenterResponse != nil {
		center = *e.CenterResponse
	}
	return &preprocess.Options{
		Outcome:        e.Outcome,
		ResponseColumn: e.ResponseColumn,
		Candidates:     slices.Clone(e.Candidates),
		CenterResponse: center,
		TimeColumn:     e.TimeColumn,
		EventColumn:    e.EventColumn,
	}
}

// FetchOptions returns the dataset fetch options of the suite
func (s *Suite) FetchOptions() *dataset.FetchOptions {
	opt := dataset.NewDefaultFetchOptions()
	opt.GCSCredentialsFile = s.Fetch.GCSCredentialsFile
	opt.S3 = s.Fetch.S3
	return opt
}
