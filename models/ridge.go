package models

import (
	"fmt"

	mat_ "github.com/aouyang1/go-shrinkage/mat"
	"gonum.org/v1/gonum/mat"
)

// RidgeOptions represents input options to run the Ridge Regression
type RidgeOptions struct {
	// Lambda represents the L2 multiplier. 0.0 results in Ordinary Least Squares when the normal
	// equations are not singular.
	Lambda float64

	// PenaltyFactor scales lambda per feature column of the input design matrix. Nil applies
	// lambda uniformly. The intercept added with FitIntercept is never penalized.
	PenaltyFactor []float64

	// FitIntercept adds a constant 1.0 feature as the first column if set to true
	FitIntercept bool
}

// Validate runs basic validation on Ridge options
func (r *RidgeOptions) Validate() (*RidgeOptions, error) {
	if r == nil {
		r = NewDefaultRidgeOptions()
	}
	if r.Lambda < 0 {
		return nil, ErrNegativeLambda
	}
	for _, pf := range r.PenaltyFactor {
		if pf < 0 {
			return nil, ErrNegativePenalty
		}
	}
	return r, nil
}

// NewDefaultRidgeOptions returns a default set of Ridge Regression options
func NewDefaultRidgeOptions() *RidgeOptions {
	return &RidgeOptions{
		Lambda:       DefaultLambda,
		FitIntercept: true,
	}
}

// RidgeRegression solves the penalized normal equations (X'X + lambda*P)b = X'y with a
// Cholesky factorization, falling back to a general solve when the system is not
// positive definite.
type RidgeRegression struct {
	opt *RidgeOptions

	coef      []float64
	intercept float64
}

// NewRidgeRegression initializes a Ridge model ready for fitting
func NewRidgeRegression(opt *RidgeOptions) (*RidgeRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RidgeRegression{opt: opt}, nil
}

// Fit the model according to the given training data
func (r *RidgeRegression) Fit(x, y mat.Matrix) error {
	if r.opt == nil {
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
	if r.opt.PenaltyFactor != nil && len(r.opt.PenaltyFactor) != n {
		return fmt.Errorf("penalty factor has %d entries instead of %d, %w", len(r.opt.PenaltyFactor), n, ErrPenaltyFactorSize)
	}

	penalty := make([]float64, n)
	for j := range n {
		penalty[j] = r.opt.Lambda
		if r.opt.PenaltyFactor != nil {
			penalty[j] *= r.opt.PenaltyFactor[j]
		}
	}
	if r.opt.FitIntercept {
		x = mat_.WithIntercept(x)
		penalty = append([]float64{0}, penalty...)
	}

	c, err := SolvePenalized(x, mat.Col(nil, 0, y), penalty)
	if err != nil {
		return err
	}

	if r.opt.FitIntercept {
		r.intercept = c[0]
		r.coef = c[1:]
		return nil
	}
	r.coef = c
	return nil
}

// SolvePenalized returns b minimizing ||y - Xb||^2 + sum_j penalty_j * b_j^2
func SolvePenalized(x mat.Matrix, y []float64, penalty []float64) ([]float64, error) {
	_, n := x.Dims()
	if len(penalty) != n {
		return nil, fmt.Errorf("penalty has %d entries instead of %d, %w", len(penalty), n, ErrPenaltyFactorSize)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for j := range n {
		xtx.SetSym(j, j, xtx.At(j, j)+penalty[j])
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(len(y), y))

	var beta mat.VecDense
	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); ok {
		if err := chol.SolveVecTo(&beta, &xty); err == nil {
			return beta.RawVector().Data, nil
		}
	}

	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrSingularSystem, err)
	}
	return beta.RawVector().Data, nil
}

// Predict using the Ridge model
func (r *RidgeRegression) Predict(x mat.Matrix) ([]float64, error) {
	if r.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	return predictLinear(x, r.coef, r.intercept)
}

// Score computes the coefficient of determination of the prediction
func (r *RidgeRegression) Score(x, y mat.Matrix) (float64, error) {
	if r.opt == nil {
		return 0.0, ErrNoOptions
	}
	return scoreModel(r, x, y)
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (r *RidgeRegression) Intercept() float64 {
	return r.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (r *RidgeRegression) Coef() []float64 {
	c := make([]float64, len(r.coef))
	copy(c, r.coef)
	return c
}
