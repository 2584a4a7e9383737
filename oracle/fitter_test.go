package oracle

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// stubOracle returns a fixed set of samples regardless of the input
type stubOracle struct {
	coef      [][]float64
	intercept []float64
	rmse      float64
	err       error

	seen Input
}

func (s *stubOracle) Fit(ctx context.Context, in Input) (*Result, error) {
	s.seen = in
	if s.err != nil {
		return nil, s.err
	}
	return &Result{
		Prior:     in.Prior,
		Family:    in.Family,
		Seed:      in.Seed,
		Features:  in.Features,
		Coef:      s.coef,
		Intercept: s.intercept,
		RMSE:      s.rmse,
	}, nil
}

func testInput() Input {
	return Input{
		X:      mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1}),
		Y:      []float64{1, 2, 3},
		Family: Gaussian,
		Prior:  Horseshoe,
		Seed:   7,
	}
}

func TestNewFitter(t *testing.T) {
	_, err := NewFitter(nil, nil)
	assert.ErrorIs(t, err, ErrNoOracle)

	_, err = NewFitter(&stubOracle{}, &SamplerConfig{Draws: 0, Thin: 1})
	assert.ErrorIs(t, err, ErrInvalidSampler)
}

func TestFitter(t *testing.T) {
	nan := math.NaN()
	errOracle := errors.New("oracle failed")

	testData := map[string]struct {
		oracle *stubOracle
		mutate func(in *Input)
		err    error
	}{
		"valid": {
			oracle: &stubOracle{coef: [][]float64{{1, 2}, {1, 2}}, intercept: []float64{0, 0}, rmse: 0.5},
		},
		"nan coefficient": {
			oracle: &stubOracle{coef: [][]float64{{1, nan}}, intercept: []float64{0}, rmse: 0.5},
			err:    ErrFitDivergence,
		},
		"infinite intercept": {
			oracle: &stubOracle{coef: [][]float64{{1, 2}}, intercept: []float64{math.Inf(1)}, rmse: 0.5},
			err:    ErrFitDivergence,
		},
		"nan rmse": {
			oracle: &stubOracle{coef: [][]float64{{1, 2}}, intercept: []float64{0}, rmse: nan},
			err:    ErrFitDivergence,
		},
		"no samples": {
			oracle: &stubOracle{rmse: 0.5},
			err:    ErrFitDivergence,
		},
		"short draw": {
			oracle: &stubOracle{coef: [][]float64{{1}}, intercept: []float64{0}, rmse: 0.5},
			err:    ErrFitDivergence,
		},
		"oracle error": {
			oracle: &stubOracle{err: errOracle},
			err:    errOracle,
		},
		"unknown prior": {
			oracle: &stubOracle{},
			mutate: func(in *Input) { in.Prior = "spike" },
			err:    ErrUnknownPrior,
		},
		"unknown family": {
			oracle: &stubOracle{},
			mutate: func(in *Input) { in.Family = "gamma" },
			err:    ErrUnknownFamily,
		},
		"response length": {
			oracle: &stubOracle{},
			mutate: func(in *Input) { in.Y = in.Y[:2] },
			err:    ErrInputMismatch,
		},
		"feature names": {
			oracle: &stubOracle{},
			mutate: func(in *Input) { in.Features = []string{"a"} },
			err:    ErrInputMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			fitter, err := NewFitter(td.oracle, &SamplerConfig{Draws: 2, Thin: 1})
			require.Nil(t, err)

			in := testInput()
			if td.mutate != nil {
				td.mutate(&in)
			}
			res, err := fitter.Fit(context.Background(), in)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, uint64(7), td.oracle.seen.Seed)
			assert.Equal(t, []string{"x1", "x2"}, td.oracle.seen.Features)
			assert.Equal(t, 2, td.oracle.seen.Sampler.Draws)
			assert.Equal(t, 2, res.Draws())
		})
	}
}

func TestFitterSummarizesRawDraws(t *testing.T) {
	o := &stubOracle{
		coef:      [][]float64{{1, -2}, {3, -4}, {2, -3}},
		intercept: []float64{0.5, 1.5, 1},
	}
	fitter, err := NewFitter(o, &SamplerConfig{Draws: 3, Thin: 1})
	require.Nil(t, err)

	res, err := fitter.Fit(context.Background(), testInput())
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{2, -3}, res.PosteriorMean, 1e-12)
	assert.InDeltaSlice(t, []float64{2, -3}, res.PosteriorMedian, 1e-12)
	assert.InDelta(t, 1.0, res.InterceptMean, 1e-12)

	eta, err := res.LinearPredictor(testInput().X)
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{3, -2, 0}, eta, 1e-12)
}
