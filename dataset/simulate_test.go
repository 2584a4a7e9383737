package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate(t *testing.T) {
	opt := NewDefaultSimulateOptions()
	features, response, beta, err := Simulate(opt)
	require.Nil(t, err)

	m, n := features.Dims()
	assert.Equal(t, opt.Samples, m)
	assert.Equal(t, opt.Features, n)
	assert.Len(t, beta, opt.Features)
	assert.True(t, SameIDs(features, response))

	for _, col := range []string{SimulatedResponse, SimulatedAltResponse, SimulatedTime, SimulatedStatus} {
		assert.True(t, response.HasColumn(col), col)
	}

	missing, err := response.MissingCount(SimulatedResponse)
	require.Nil(t, err)
	assert.Equal(t, 0, missing)

	status, err := response.Column(SimulatedStatus)
	require.Nil(t, err)
	times, err := response.Column(SimulatedTime)
	require.Nil(t, err)
	for i := range status {
		assert.True(t, status[i] == 0 || status[i] == 1)
		assert.False(t, math.IsNaN(times[i]))
		assert.GreaterOrEqual(t, times[i], 0.0)
	}

	_, again, _, err := Simulate(opt)
	require.Nil(t, err)
	y1, _ := response.Column(SimulatedResponse)
	y2, _ := again.Column(SimulatedResponse)
	assert.Equal(t, y1, y2, "same seed must reproduce the dataset")
}

func TestSimulateOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt *SimulateOptions
		err error
	}{
		"nil":             {nil, nil},
		"no samples":      {&SimulateOptions{Features: 2}, ErrInvalidSimulation},
		"too informative": {&SimulateOptions{Samples: 5, Features: 2, Informative: 3}, ErrInvalidSimulation},
		"negative noise":  {&SimulateOptions{Samples: 5, Features: 2, Noise: -1}, ErrInvalidSimulation},
		"all censored":    {&SimulateOptions{Samples: 5, Features: 2, CensorFraction: 1}, ErrInvalidSimulation},
		"valid":           {&SimulateOptions{Samples: 5, Features: 2, Informative: 1}, nil},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.Nil(t, err)
		})
	}
}
