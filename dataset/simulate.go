package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// Response column names produced by Simulate
const (
	SimulatedResponse    = "y"
	SimulatedAltResponse = "y_alt"
	SimulatedTime        = "time"
	SimulatedStatus      = "status"
)

var ErrInvalidSimulation = errors.New("invalid simulation options")

// SimulateOptions controls the synthetic dataset generator
type SimulateOptions struct {
	Samples     int
	Features    int
	Informative int
	Noise       float64

	// AltMissingFraction is the fraction of samples missing from the alternative response column
	AltMissingFraction float64

	// CensorFraction is the fraction of survival times that are right censored
	CensorFraction float64

	Seed uint64
}

// NewDefaultSimulateOptions returns a small continuous regression problem
func NewDefaultSimulateOptions() *SimulateOptions {
	return &SimulateOptions{
		Samples:            20,
		Features:           5,
		Informative:        2,
		Noise:              0.5,
		AltMissingFraction: 0.25,
		CensorFraction:     0.3,
		Seed:               1,
	}
}

// Validate checks the simulation bounds
func (s *SimulateOptions) Validate() (*SimulateOptions, error) {
	if s == nil {
		s = NewDefaultSimulateOptions()
	}
	if s.Samples <= 0 || s.Features <= 0 {
		return nil, fmt.Errorf("samples and features must be positive, %w", ErrInvalidSimulation)
	}
	if s.Informative < 0 || s.Informative > s.Features {
		return nil, fmt.Errorf("informative features must be within [0, %d], %w", s.Features, ErrInvalidSimulation)
	}
	if s.Noise < 0 {
		return nil, fmt.Errorf("negative noise, %w", ErrInvalidSimulation)
	}
	if s.AltMissingFraction < 0 || s.AltMissingFraction >= 1 || s.CensorFraction < 0 || s.CensorFraction >= 1 {
		return nil, fmt.Errorf("fractions must be within [0, 1), %w", ErrInvalidSimulation)
	}
	return s, nil
}

// Series is a vector of per sample values that can be composed by chaining
type Series []float64

func (s Series) Add(src Series) Series {
	for i := range s {
		s[i] += src[i]
	}
	return s
}

func (s Series) Scale(c float64) Series {
	for i := range s {
		s[i] *= c
	}
	return s
}

// GenerateNoise draws gaussian noise with the given scale
func GenerateNoise(rng *rand.Rand, n int, scale float64) Series {
	y := make(Series, n)
	for i := range n {
		y[i] = rng.NormFloat64() * scale
	}
	return y
}

// Simulate generates a gaussian design with a sparse linear signal. The response table holds
// a complete continuous response, a noisier alternative response with missing values, and
// right censored survival times whose hazard increases with the linear predictor. The true
// coefficients are returned alongside.
func Simulate(opt *SimulateOptions) (*FeatureMatrix, *ResponseTable, []float64, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, nil, nil, err
	}
	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed^0x9e3779b97f4a7c15))

	ids := make([]string, opt.Samples)
	columns := make([]string, opt.Features)
	rows := make([][]float64, opt.Samples)
	for j := range opt.Features {
		columns[j] = fmt.Sprintf("x%d", j+1)
	}
	for i := range opt.Samples {
		ids[i] = fmt.Sprintf("s%03d", i+1)
		rows[i] = make([]float64, opt.Features)
		for j := range opt.Features {
			rows[i][j] = rng.NormFloat64()
		}
	}

	beta := make([]float64, opt.Features)
	for j := range opt.Informative {
		sign := 1.0
		if j%2 == 1 {
			sign = -1.0
		}
		beta[j] = sign * (2.0 - float64(j)/float64(opt.Informative))
	}

	signal := make(Series, opt.Samples)
	for i := range opt.Samples {
		for j := range opt.Features {
			signal[i] += rows[i][j] * beta[j]
		}
	}

	y := make(Series, opt.Samples).Add(signal).Add(GenerateNoise(rng, opt.Samples, opt.Noise))
	yAlt := make(Series, opt.Samples).Add(signal).Add(GenerateNoise(rng, opt.Samples, 2*opt.Noise))
	for i := range yAlt {
		if rng.Float64() < opt.AltMissingFraction {
			yAlt[i] = math.NaN()
		}
	}

	times := make(Series, opt.Samples)
	status := make(Series, opt.Samples)
	for i := range opt.Samples {
		eventTime := 1000.0 * math.Exp(-0.5*signal[i]) * rng.ExpFloat64()
		if rng.Float64() < opt.CensorFraction {
			times[i] = eventTime * rng.Float64()
			continue
		}
		times[i] = eventTime
		status[i] = 1
	}

	respRows := make([][]float64, opt.Samples)
	for i := range opt.Samples {
		respRows[i] = []float64{y[i], yAlt[i], times[i], status[i]}
	}

	features, err := NewFeatureMatrix(ids, columns, rows)
	if err != nil {
		return nil, nil, nil, err
	}
	response, err := NewResponseTable(ids, []string{SimulatedResponse, SimulatedAltResponse, SimulatedTime, SimulatedStatus}, respRows)
	if err != nil {
		return nil, nil, nil, err
	}
	return features, response, beta, nil
}
