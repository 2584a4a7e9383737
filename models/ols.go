package models

import (
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-shrinkage/mat"
	"gonum.org/v1/gonum/mat"
)

// OLSOptions configures the unpenalized least squares fit
type OLSOptions struct {
	// FitIntercept adds a constant 1.0 feature as the first column if set to true
	FitIntercept bool
}

// Validate returns the default options if none are provided
func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		o = NewDefaultOLSOptions()
	}
	return o, nil
}

// NewDefaultOLSOptions fits an intercept
func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{FitIntercept: true}
}

// OLSRegression solves the least squares problem with a QR factorization of the design.
// It requires at least as many rows as coefficients and a well conditioned design.
type OLSRegression struct {
	opt *OLSOptions

	coef      []float64
	intercept float64
}

// NewOLSRegression initializes an OLS model ready for fitting
func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{opt: opt}, nil
}

// Fit the model according to the given training data
func (o *OLSRegression) Fit(x, y mat.Matrix) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, n := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	design := x
	if o.opt.FitIntercept {
		design = mat_.WithIntercept(x)
		n++
	}
	if m < n {
		return fmt.Errorf("%d rows for %d coefficients, %w", m, n, ErrSingularSystem)
	}

	var qr mat.QR
	qr.Factorize(design)

	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, y); err != nil {
		return fmt.Errorf("%w, %w", ErrSingularSystem, err)
	}
	c := mat.Col(nil, 0, &sol)
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrSingularSystem
		}
	}

	o.intercept = 0
	if o.opt.FitIntercept {
		o.intercept, c = c[0], c[1:]
	}
	o.coef = c
	return nil
}

// Predict returns the linear predictor for each row of x
func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	return predictLinear(x, o.coef, o.intercept)
}

// Score returns the coefficient of determination of the fit on x and y
func (o *OLSRegression) Score(x, y mat.Matrix) (float64, error) {
	if o.opt == nil {
		return 0.0, ErrNoOptions
	}
	return scoreModel(o, x, y)
}

func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

func (o *OLSRegression) Coef() []float64 {
	return append([]float64(nil), o.coef...)
}
