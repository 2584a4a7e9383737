package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKaplanMeier(t *testing.T) {
	time := []float64{1, 2, 2, 3, 4}
	event := []float64{1, 0, 1, 1, 0}

	surv := KaplanMeier(time, event, false)
	assert.Equal(t, []float64{1, 2, 3}, surv.Times)
	assert.InDeltaSlice(t, []float64{0.8, 0.6, 0.3}, surv.Survival, 1e-12)

	assert.Equal(t, 1.0, surv.At(0.5))
	assert.InDelta(t, 0.8, surv.At(1), 1e-12)
	assert.Equal(t, 1.0, surv.Before(1))
	assert.InDelta(t, 0.8, surv.Before(2), 1e-12)
	assert.InDelta(t, 0.3, surv.At(10), 1e-12)

	censoring := KaplanMeier(time, event, true)
	assert.Equal(t, []float64{2, 4}, censoring.Times)
	assert.InDeltaSlice(t, []float64{0.75, 0}, censoring.Survival, 1e-12)
}

func TestUnoConcordance(t *testing.T) {
	testData := map[string]struct {
		time     []float64
		event    []float64
		risk     []float64
		tau      float64
		expected float64
		err      error
	}{
		"perfect ordering": {
			time:     []float64{1, 2, 3, 4},
			event:    []float64{1, 1, 1, 1},
			risk:     []float64{4, 3, 2, 1},
			expected: 1.0,
		},
		"reversed ordering": {
			time:     []float64{1, 2, 3, 4},
			event:    []float64{1, 1, 1, 1},
			risk:     []float64{1, 2, 3, 4},
			expected: 0.0,
		},
		"tied risk": {
			time:     []float64{1, 2, 3},
			event:    []float64{1, 1, 1},
			risk:     []float64{1, 1, 1},
			expected: 0.5,
		},
		"censoring weights": {
			// pairs of the first subject weigh 1 and the third subject 1/(2/3)^2
			time:     []float64{1, 2, 3, 4},
			event:    []float64{1, 0, 1, 1},
			risk:     []float64{1, 5, 2, 0},
			expected: (1 + 2.25) / (3 + 2.25),
		},
		"truncated": {
			time:     []float64{1, 2, 3, 4},
			event:    []float64{1, 1, 1, 1},
			risk:     []float64{4, 1, 2, 3},
			tau:      1.5,
			expected: 1.0,
		},
		"all censored": {
			time:  []float64{1, 2, 3},
			event: []float64{0, 0, 0},
			risk:  []float64{1, 2, 3},
			err:   ErrMetricUndefined,
		},
		"no comparable pairs": {
			time:  []float64{5, 5},
			event: []float64{1, 1},
			risk:  []float64{1, 2},
			err:   ErrMetricUndefined,
		},
		"length": {
			time:  []float64{1, 2},
			event: []float64{1},
			risk:  []float64{1, 2},
			err:   ErrResLenMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var c Concordance = NewUnoConcordance(td.tau)
			res, err := c.Concordance(td.time, td.event, td.risk)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.True(t, math.IsNaN(res))
				return
			}
			require.Nil(t, err)
			assert.InDelta(t, td.expected, res, 1e-12)
		})
	}
}

func TestNewUnoConcordanceDefault(t *testing.T) {
	assert.Equal(t, DefaultTau, NewUnoConcordance(0).Tau)
	assert.Equal(t, 10.0, NewUnoConcordance(10).Tau)
}
