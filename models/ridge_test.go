package models

import (
	"testing"

	mat_ "github.com/aouyang1/go-shrinkage/mat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRidgeOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *RidgeOptions
		err      error
		expected *RidgeOptions
	}{
		"nil": {nil, nil, NewDefaultRidgeOptions()},
		"valid": {
			&RidgeOptions{Lambda: 2.0}, nil,
			&RidgeOptions{Lambda: 2.0},
		},
		"invalid lambda": {
			&RidgeOptions{Lambda: -1.0},
			ErrNegativeLambda, nil,
		},
		"invalid penalty factor": {
			&RidgeOptions{PenaltyFactor: []float64{1, -1}},
			ErrNegativePenalty, nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestRidgeRegression(t *testing.T) {
	// y = 2 + 3*x0 + 4*x1
	tol := 1e-6
	testData := map[string]struct {
		x         [][]float64
		y         []float64
		opt       *RidgeOptions
		intercept float64
		coef      []float64
	}{
		"no penalty intercept": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y:         []float64{2, 31, 109, 62, 87},
			opt:       &RidgeOptions{Lambda: 0, FitIntercept: true},
			intercept: 2.0,
			coef:      []float64{3.0, 4.0},
		},
		"zero penalty factor": {
			x: [][]float64{
				{1, 0, 0},
				{1, 3, 5},
				{1, 9, 20},
				{1, 12, 6},
				{1, 15, 10},
			},
			y:         []float64{2, 31, 109, 62, 87},
			opt:       &RidgeOptions{Lambda: 10, PenaltyFactor: []float64{0, 0, 0}},
			intercept: 0.0,
			coef:      []float64{2.0, 3.0, 4.0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := mat_.NewDenseFromArray(td.x)
			require.Nil(t, err)

			y := mat.NewDense(len(td.y), 1, td.y)

			model, err := NewRidgeRegression(td.opt)
			require.Nil(t, err)

			testModel(t, model, x, y, td.intercept, td.coef, tol)
		})
	}
}

func TestRidgeShrinks(t *testing.T) {
	// single standardized feature so the ridge solution is xy / (xx + lambda)
	x := mat.NewDense(4, 1, []float64{-1.5, -0.5, 0.5, 1.5})
	y := mat.NewDense(4, 1, []float64{-3, -1, 1, 3})

	model, err := NewRidgeRegression(&RidgeOptions{Lambda: 5, FitIntercept: false})
	require.Nil(t, err)
	require.Nil(t, model.Fit(x, y))

	// xy = 10, xx = 5
	assert.InDelta(t, 1.0, model.Coef()[0], 1e-12)
}

func TestSolvePenalizedMoreFeaturesThanRows(t *testing.T) {
	x := mat.NewDense(2, 3, []float64{
		1, 0, 1,
		0, 1, 1,
	})
	beta, err := SolvePenalized(x, []float64{1, 2}, []float64{1, 1, 1})
	require.Nil(t, err)
	require.Len(t, beta, 3)

	fitted := mat_.MulVec(x, beta, 0)
	assert.Less(t, fitted[0], 1.0)
	assert.Less(t, fitted[1], 2.0)

	_, err = SolvePenalized(x, []float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrPenaltyFactorSize)
}
