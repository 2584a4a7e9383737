package shrinkage

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/aouyang1/go-shrinkage/dataset"
	"github.com/aouyang1/go-shrinkage/metrics"
	"github.com/aouyang1/go-shrinkage/oracle"
	"github.com/aouyang1/go-shrinkage/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func simulatedTables(t *testing.T, samples int) (*dataset.FeatureMatrix, *dataset.ResponseTable) {
	t.Helper()
	opt := dataset.NewDefaultSimulateOptions()
	opt.Samples = samples
	features, response, _, err := dataset.Simulate(opt)
	require.Nil(t, err)
	return features, response
}

// scaledResponse keeps the identifiers and survival columns and shrinks the continuous
// response so count transforms stay small
func scaledResponse(t *testing.T, response *dataset.ResponseTable, scale float64) *dataset.ResponseTable {
	t.Helper()
	y, err := response.Column(dataset.SimulatedResponse)
	require.Nil(t, err)
	rows := make([][]float64, len(y))
	for i, v := range y {
		rows[i] = []float64{scale * v}
	}
	scaled, err := dataset.NewResponseTable(response.IDs, []string{dataset.SimulatedResponse}, rows)
	require.Nil(t, err)
	return scaled
}

func testOptions(outcome preprocess.Outcome) *Options {
	opt := NewDefaultOptions()
	opt.Name = string(outcome)
	opt.Preprocess.Outcome = outcome
	opt.Sampler = &oracle.SamplerConfig{BurnIn: 10, Draws: 200, Thin: 1}
	return opt
}

// divergingOracle returns non-finite samples for one prior and delegates the rest
type divergingOracle struct {
	prior oracle.Prior
	next  oracle.Oracle
}

func (d *divergingOracle) Fit(ctx context.Context, in oracle.Input) (*oracle.Result, error) {
	if in.Prior != d.prior {
		return d.next.Fit(ctx, in)
	}
	_, n := in.X.Dims()
	coef := make([]float64, n)
	coef[0] = math.Inf(1)
	return &oracle.Result{
		Prior:     in.Prior,
		Family:    in.Family,
		Features:  in.Features,
		Coef:      [][]float64{coef},
		Intercept: []float64{0},
	}, nil
}

func TestExperimentContinuous(t *testing.T) {
	features, response := simulatedTables(t, 20)

	e, err := New(testOptions(preprocess.Continuous), nil, nil)
	require.Nil(t, err)

	report, err := e.RunDataset(context.Background(), features, response)
	require.Nil(t, err)

	assert.Equal(t, 20, report.Samples)
	assert.Len(t, report.Features, 5)
	assert.Equal(t, dataset.SimulatedResponse, report.Response)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, report.Summary.Rows, 4)
	for i, row := range report.Summary.Rows {
		assert.Equal(t, oracle.Priors[i], row.Prior)
		assert.Equal(t, metrics.NameRMSE, row.Metric)
		assert.False(t, row.NA(), row.Err)
		assert.GreaterOrEqual(t, row.Value, 0.0)
		assert.Empty(t, row.Err)
	}
	assert.Len(t, report.Fits, 4)
	for _, s := range report.Diagnostics {
		assert.Equal(t, report.Diagnostics[0].Indices(), s.Indices())
	}
}

func TestExperimentOutcomes(t *testing.T) {
	features, response := simulatedTables(t, 60)

	testData := map[string]struct {
		outcome  preprocess.Outcome
		response *dataset.ResponseTable
		metric   metrics.Name
		lower    float64
		upper    float64
	}{
		"binary": {
			outcome:  preprocess.Binary,
			response: response,
			metric:   metrics.NameAUC,
			lower:    0,
			upper:    1,
		},
		"count": {
			outcome:  preprocess.Count,
			response: scaledResponse(t, response, 0.3),
			metric:   metrics.NameRMSE,
			lower:    0,
			upper:    math.Inf(1),
		},
		"survival": {
			outcome:  preprocess.Survival,
			response: response,
			metric:   metrics.NameCIndex,
			lower:    0,
			upper:    1,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := testOptions(td.outcome)
			opt.Preprocess.ResponseColumn = dataset.SimulatedResponse
			opt.Tau = math.Inf(1)

			e, err := New(opt, nil, nil)
			require.Nil(t, err)

			report, err := e.RunDataset(context.Background(), features, td.response)
			require.Nil(t, err)
			assert.Equal(t, td.outcome, report.Outcome)

			ridge, exists := report.Summary.Row(oracle.Ridge)
			require.True(t, exists)
			assert.False(t, ridge.NA(), ridge.Err)

			for _, row := range report.Summary.Rows {
				assert.Equal(t, td.metric, row.Metric)
				if row.NA() {
					assert.NotEmpty(t, row.Err)
					continue
				}
				assert.GreaterOrEqual(t, row.Value, td.lower)
				assert.LessOrEqual(t, row.Value, td.upper)
			}
		})
	}
}

func TestExperimentSurvivalDiscrimination(t *testing.T) {
	features, response := simulatedTables(t, 200)

	opt := testOptions(preprocess.Survival)
	opt.Preprocess.ResponseColumn = dataset.SimulatedResponse
	opt.Priors = []oracle.Prior{oracle.Ridge}
	opt.Tau = math.Inf(1)

	e, err := New(opt, nil, nil)
	require.Nil(t, err)
	report, err := e.RunDataset(context.Background(), features, response)
	require.Nil(t, err)

	// hazard grows with the signal so the fitted response orders the failures
	row, _ := report.Summary.Row(oracle.Ridge)
	assert.Greater(t, row.Value, 0.5)
}

func TestExperimentPriorSubset(t *testing.T) {
	features, response := simulatedTables(t, 20)

	opt := testOptions(preprocess.Continuous)
	opt.Priors = []oracle.Prior{oracle.Lasso, oracle.Ridge}

	e, err := New(opt, nil, nil)
	require.Nil(t, err)
	report, err := e.RunDataset(context.Background(), features, response)
	require.Nil(t, err)

	require.Len(t, report.Summary.Rows, 4)
	for _, p := range []oracle.Prior{oracle.Horseshoe, oracle.HorseshoePlus} {
		row, _ := report.Summary.Row(p)
		assert.True(t, row.NA())
		assert.Equal(t, "not run", row.Err)
		_, exists := report.Fit(p)
		assert.False(t, exists)
	}
	for _, p := range opt.Priors {
		row, _ := report.Summary.Row(p)
		assert.False(t, row.NA())
	}
	assert.Len(t, report.Diagnostics, 2)
}

func TestExperimentDivergence(t *testing.T) {
	features, response := simulatedTables(t, 20)

	laplace, err := oracle.NewLaplaceOracle(nil)
	require.Nil(t, err)
	e, err := New(testOptions(preprocess.Continuous), nil, &divergingOracle{prior: oracle.HorseshoePlus, next: laplace})
	require.Nil(t, err)

	report, err := e.RunDataset(context.Background(), features, response)
	require.Nil(t, err)

	row, _ := report.Summary.Row(oracle.HorseshoePlus)
	assert.True(t, row.NA())
	assert.Contains(t, row.Err, oracle.ErrFitDivergence.Error())

	for _, p := range []oracle.Prior{oracle.Horseshoe, oracle.Ridge, oracle.Lasso} {
		row, _ := report.Summary.Row(p)
		assert.False(t, row.NA(), row.Err)
	}
	assert.Len(t, report.Fits, 3)
}

type failingOracle struct {
	err error
}

func (f *failingOracle) Fit(ctx context.Context, in oracle.Input) (*oracle.Result, error) {
	return nil, f.err
}

func TestExperimentOracleFailure(t *testing.T) {
	features, response := simulatedTables(t, 20)

	testData := map[string]struct {
		err     error
		aborted bool
	}{
		"divergence": {oracle.ErrFitDivergence, false},
		"failure":    {oracle.ErrRscriptFailed, true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			e, err := New(testOptions(preprocess.Continuous), nil, &failingOracle{err: td.err})
			require.Nil(t, err)

			report, err := e.RunDataset(context.Background(), features, response)
			if td.aborted {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			for _, row := range report.Summary.Rows {
				assert.True(t, row.NA())
			}
			assert.Empty(t, report.Fits)
			assert.Empty(t, report.Diagnostics)
		})
	}
}

// rawOracle returns draws without posterior summaries
type rawOracle struct{}

func (rawOracle) Fit(ctx context.Context, in oracle.Input) (*oracle.Result, error) {
	_, n := in.X.Dims()
	coef := make([][]float64, 4)
	for i := range coef {
		coef[i] = make([]float64, n)
		coef[i][0] = float64(i)
	}
	return &oracle.Result{
		Prior:     in.Prior,
		Family:    in.Family,
		Coef:      coef,
		Intercept: make([]float64, len(coef)),
	}, nil
}

func TestExperimentRawDraws(t *testing.T) {
	features, response := simulatedTables(t, 20)

	e, err := New(testOptions(preprocess.Continuous), nil, rawOracle{})
	require.Nil(t, err)

	report, err := e.RunDataset(context.Background(), features, response)
	require.Nil(t, err)
	for _, row := range report.Summary.Rows {
		assert.False(t, row.NA(), row.Err)
	}
	require.Len(t, report.Fits, 4)
	res, _ := report.Fit(oracle.Ridge)
	assert.InDelta(t, 1.5, res.PosteriorMean[0], 1e-12)
}

func TestExperimentDeterministic(t *testing.T) {
	features, response := simulatedTables(t, 20)

	run := func() []float64 {
		e, err := New(testOptions(preprocess.Continuous), nil, nil)
		require.Nil(t, err)
		report, err := e.RunDataset(context.Background(), features, response)
		require.Nil(t, err)
		return report.Summary.Values()
	}
	assert.Equal(t, run(), run())
}

func TestExperimentCancelled(t *testing.T) {
	features, response := simulatedTables(t, 20)

	e, err := New(testOptions(preprocess.Continuous), nil, nil)
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.RunDataset(ctx, features, response)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExperimentRun(t *testing.T) {
	dir := t.TempDir()
	features, response := simulatedTables(t, 20)

	featPath := filepath.Join(dir, "features.csv")
	respPath := filepath.Join(dir, "response.csv")
	f, err := os.Create(featPath)
	require.Nil(t, err)
	require.Nil(t, features.WriteCSV(f, "sample"))
	require.Nil(t, f.Close())
	r, err := os.Create(respPath)
	require.Nil(t, err)
	require.Nil(t, response.WriteCSV(r, "sample"))
	require.Nil(t, r.Close())

	testData := map[string]struct {
		source dataset.Source
		err    error
	}{
		"valid": {
			source: dataset.Source{Features: featPath, Response: respPath, IDColumn: "sample"},
		},
		"missing response": {
			source: dataset.Source{Features: featPath, Response: filepath.Join(dir, "missing.csv")},
			err:    dataset.ErrDataUnavailable,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := testOptions(preprocess.Continuous)
			opt.Source = td.source

			e, err := New(opt, nil, nil)
			require.Nil(t, err)

			report, err := e.Run(context.Background())
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, 20, report.Samples)
		})
	}
}

func TestNewExperiment(t *testing.T) {
	testData := map[string]struct {
		opt *Options
		err error
	}{
		"nil options":     {nil, nil},
		"unknown prior":   {&Options{Priors: []oracle.Prior{"spike"}}, oracle.ErrUnknownPrior},
		"duplicate prior": {&Options{Priors: []oracle.Prior{oracle.Ridge, oracle.Ridge}}, ErrDuplicatePrior},
		"unknown outcome": {&Options{Preprocess: &preprocess.Options{Outcome: "ordinal"}}, preprocess.ErrUnknownOutcome},
		"bad sampler":     {&Options{Sampler: &oracle.SamplerConfig{Draws: 0, Thin: 1}}, oracle.ErrInvalidSampler},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			e, err := New(td.opt, nil, nil)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, oracle.Priors, e.Options().Priors)
			assert.Equal(t, DefaultSeed, e.Options().Seed)
		})
	}
}
