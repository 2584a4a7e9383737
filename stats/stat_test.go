package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	testData := map[string]struct {
		x        []float64
		expected float64
		err      error
	}{
		"empty":    {nil, math.NaN(), ErrEmptySeries},
		"odd":      {[]float64{3, 1, 2}, 2.0, nil},
		"even":     {[]float64{4, 1, 3, 2}, 2.5, nil},
		"with nan": {[]float64{math.NaN(), 5, 1}, 3.0, nil},
		"all nan":  {[]float64{math.NaN()}, math.NaN(), ErrEmptySeries},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Median(td.x)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.InDelta(t, td.expected, res, 1e-12)
		})
	}
}

func TestQuantile(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	testData := map[string]struct {
		p        float64
		expected float64
		err      error
	}{
		"min":           {0.0, 1.0, nil},
		"max":           {1.0, 10.0, nil},
		"median":        {0.5, 5.5, nil},
		"2.5 percent":   {0.025, 1.225, nil},
		"97.5 percent":  {0.975, 9.775, nil},
		"negative":      {-0.1, 0, ErrInvalidPercentile},
		"more than one": {1.1, 0, ErrInvalidPercentile},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Quantile(td.p, x)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.InDelta(t, td.expected, res, 1e-9)
		})
	}
}

func TestQuantiles(t *testing.T) {
	res, err := Quantiles([]float64{0.025, 0.5, 0.975}, []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1})
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{1.225, 5.5, 9.775}, res, 1e-9)

	_, err = Quantiles([]float64{0.5}, nil)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestACF(t *testing.T) {
	testData := map[string]struct {
		x        []float64
		maxLag   int
		expected []float64
		err      error
	}{
		"negative lag": {
			x:      []float64{1, 2},
			maxLag: -1,
			err:    ErrNegativeLag,
		},
		"empty": {
			maxLag: 1,
			err:    ErrEmptySeries,
		},
		"alternating": {
			x:        []float64{1, -1, 1, -1},
			maxLag:   2,
			expected: []float64{1.0, -0.75, 0.5},
		},
		"lag capped at length": {
			x:        []float64{1, -1},
			maxLag:   5,
			expected: []float64{1.0, -0.5},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := ACF(td.x, td.maxLag)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.InDeltaSlice(t, td.expected, res, 1e-12)
		})
	}
}

func TestACFConstant(t *testing.T) {
	res, err := ACF([]float64{2, 2, 2}, 1)
	require.Nil(t, err)
	assert.Equal(t, 1.0, res[0])
	assert.True(t, math.IsNaN(res[1]))
}

func TestEffectiveSampleSize(t *testing.T) {
	testData := map[string]struct {
		acf      []float64
		n        int
		expected float64
	}{
		"independent":       {[]float64{1, 0, 0, 0, 0}, 100, 100},
		"positively linked": {[]float64{1, 0.5, 0.25, 0, 0}, 100, 100.0 / 2.5},
		"pairs from lag 0":  {[]float64{1, 0.5, 0.3, 0.1}, 100, 100.0 / 2.8},
		"truncated pair":    {[]float64{1, 0.6, -0.3, -0.2, 0.4, 0.4}, 100, 100.0 / 2.2},
		"negative pair":     {[]float64{1, -0.5, -0.1}, 100, 100},
		"constant chain":    {[]float64{math.NaN(), math.NaN(), math.NaN()}, 50, 50},
		"no draws":          {[]float64{1}, 0, 0},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, td.expected, EffectiveSampleSize(td.acf, td.n), 1e-9)
		})
	}
}

func TestHistogram(t *testing.T) {
	dividers, counts, err := Histogram([]float64{0, 1, 2, 3, 4}, 2)
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{0, 2, 4}, dividers, 1e-12)
	assert.Equal(t, []float64{2, 3}, counts)

	dividers, counts, err = Histogram([]float64{1, 1}, 1)
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 1.5}, dividers, 1e-12)
	assert.Equal(t, []float64{2}, counts)

	_, _, err = Histogram([]float64{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidBins)
}
