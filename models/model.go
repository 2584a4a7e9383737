// Package models is a collection of penalized linear regression solvers used to find
// posterior modes for the shrinkage priors
package models

import (
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-shrinkage/mat"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Model is a fitted linear predictor. The intercept is reported apart from the feature
// coefficients.
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

func predictLinear(x mat.Matrix, coef []float64, intercept float64) ([]float64, error) {
	_, xn := x.Dims()
	if xn != len(coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", xn, len(coef), ErrFeatureLenMismatch)
	}
	return mat_.MulVec(x, coef, intercept), nil
}

// scoreModel computes the coefficient of determination of the model prediction
func scoreModel(model Model, x, y mat.Matrix) (float64, error) {
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := model.Predict(x)
	if err != nil {
		return 0.0, err
	}

	score := stat.RSquaredFrom(res, mat.Col(nil, 0, y), nil)
	// a constant target is fit perfectly by the intercept
	if math.IsNaN(score) {
		score = 1.0
	}
	return score, nil
}
