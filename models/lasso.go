package models

import (
	"errors"
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-shrinkage/mat"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultLambda     = 1.0
	DefaultIterations = 1000
	DefaultTolerance  = 1e-4
)

var (
	ErrNegativeLambda     = errors.New("negative lambda")
	ErrNegativeIterations = errors.New("negative iterations")
	ErrNegativeTolerance  = errors.New("negative tolerance")
	ErrWarmStartBetaSize  = errors.New("warm start beta does not have the same number of coefficients as training features")
)

// LassoOptions represents input options to run the Lasso Regression
type LassoOptions struct {
	// WarmStartBeta is used to prime the coordinate descent to reduce the training time if a previous
	// fit has been performed.
	WarmStartBeta []float64

	// Lambda represents the L1 multiplier, controlling the regularization. Must be a non-negative. 0.0 results in converging
	// to Ordinary Least Squares (OLS).
	Lambda float64

	// PenaltyFactor scales lambda per feature column of the input design matrix. A zero entry leaves the
	// feature unpenalized. Nil applies lambda uniformly. The intercept added with FitIntercept is never
	// penalized.
	PenaltyFactor []float64

	// Iterations is the maximum number of times the fit loops through training all coefficients.
	Iterations int

	// Tolerance is the smallest coefficient channge on each iteration to determine when to stop iterating.
	Tolerance float64

	// FitIntercept adds a constant 1.0 feature as the first column if set to true
	FitIntercept bool
}

// Validate runs basic validation on Lasso options
func (l *LassoOptions) Validate() (*LassoOptions, error) {
	if l == nil {
		l = NewDefaultLassoOptions()
	}

	if l.Lambda < 0 {
		return nil, ErrNegativeLambda
	}
	if l.Iterations < 0 {
		return nil, ErrNegativeIterations
	}
	if l.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	for _, pf := range l.PenaltyFactor {
		if pf < 0 {
			return nil, ErrNegativePenalty
		}
	}
	return l, nil
}

// NewDefaultLassoOptions returns a default set of Lasso Regression options
func NewDefaultLassoOptions() *LassoOptions {
	return &LassoOptions{
		Lambda:        DefaultLambda,
		Iterations:    DefaultIterations,
		Tolerance:     DefaultTolerance,
		WarmStartBeta: nil,
		FitIntercept:  true,
	}
}

// LassoRegression computes the lasso regression using coordinate descent. lambda = 0 converges to OLS
type LassoRegression struct {
	opt *LassoOptions

	// serve as precomputed data structures to reduce memory allocations
	xcols [][]float64
	xdot  []float64
	gamma []float64
	yArr  []float64

	coef      []float64
	intercept float64
}

// NewLassoRegression initializes a Lasso model ready for fitting
func NewLassoRegression(opt *LassoOptions) (*LassoRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LassoRegression{
		opt: opt,
	}, nil
}

// Fit the model according to the given training data
func (l *LassoRegression) Fit(x, y mat.Matrix) error {
	x, y, err := l.fitValidate(x, y)
	if err != nil {
		return err
	}
	m, n := x.Dims()

	// tracks current betas
	beta := make([]float64, n)
	if l.opt.WarmStartBeta != nil {
		copy(beta, l.opt.WarmStartBeta)
	}

	l.precompute(n, m, x, y)

	// tracks the per coordinate residual
	residual := make([]float64, m)

	// tracks the current beta * x by adding the deltas on each beta iteration
	betaX := mat_.MulVec(x, beta, 0)

	// tracks the delta of the beta * x of each iteration by computing the next beta
	// multiplied by the feature observations of that beta. will be added to betaX on
	// the next beta iteration
	betaXDelta := make([]float64, m)

	for i := 0; i < l.opt.Iterations; i++ {
		maxCoef := 0.0
		maxUpdate := 0.0
		betaDiff := 0.0

		// loop through all features and minimize loss function
		for j := 0; j < n; j++ {
			betaCurr := beta[j]
			if i != 0 && betaCurr == 0 {
				continue
			}
			// constant zero column carries no information
			if l.xdot[j] == 0 {
				continue
			}

			floats.Add(betaX, betaXDelta)
			floats.SubTo(residual, l.yArr, betaX)

			obsCol := l.xcols[j]
			num := floats.Dot(obsCol, residual)
			betaNext := num/l.xdot[j] + betaCurr

			betaNext = SoftThreshold(betaNext, l.gamma[j])

			maxCoef = math.Max(maxCoef, math.Abs(betaNext))
			maxUpdate = math.Max(maxUpdate, math.Abs(betaNext-betaCurr))
			betaDiff = betaNext - betaCurr
			floats.ScaleTo(betaXDelta, betaDiff, obsCol)
			beta[j] = betaNext
		}

		// break early if we've achieved the desired tolerance
		if maxUpdate <= l.opt.Tolerance*maxCoef {
			break
		}
	}

	if l.opt.FitIntercept {
		l.intercept = beta[0]
		l.coef = beta[1:]
		return nil
	}
	l.coef = beta
	return nil
}

func (l *LassoRegression) fitValidate(x, y mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	if l.opt == nil {
		return nil, nil, ErrNoOptions
	}
	if x == nil {
		return nil, nil, ErrNoTrainingMatrix
	}
	if y == nil {
		return nil, nil, ErrNoTargetMatrix
	}

	m, n := x.Dims()

	ym, _ := y.Dims()
	if ym != m {
		return nil, nil, fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	if l.opt.PenaltyFactor != nil && len(l.opt.PenaltyFactor) != n {
		return nil, nil, fmt.Errorf("penalty factor has %d entries instead of %d, %w", len(l.opt.PenaltyFactor), n, ErrPenaltyFactorSize)
	}

	if l.opt.FitIntercept {
		x = mat_.WithIntercept(x)
		_, n = x.Dims()
	}

	if l.opt.WarmStartBeta != nil && len(l.opt.WarmStartBeta) != n {
		return nil, nil, fmt.Errorf("warm start beta has %d features instead of %d, %w", len(l.opt.WarmStartBeta), n, ErrWarmStartBetaSize)
	}
	return x, y, nil
}

func (l *LassoRegression) penaltyFactor(n int) []float64 {
	pf := make([]float64, n)
	offset := 0
	if l.opt.FitIntercept {
		offset = 1
	}
	for j := offset; j < n; j++ {
		pf[j] = 1.0
		if l.opt.PenaltyFactor != nil {
			pf[j] = l.opt.PenaltyFactor[j-offset]
		}
	}
	return pf
}

func (l *LassoRegression) precompute(n, m int, x, y mat.Matrix) {
	l.xcols = make([][]float64, n)

	// precompute the per feature dot product
	l.xdot = make([]float64, n)
	l.gamma = make([]float64, n)
	pf := l.penaltyFactor(n)
	for i := 0; i < n; i++ {
		xi := mat.Col(nil, i, x)
		l.xcols[i] = xi
		l.xdot[i] = floats.Dot(xi, xi)
		if l.xdot[i] > 0 {
			l.gamma[i] = l.opt.Lambda * pf[i] / l.xdot[i]
		}
	}

	l.yArr = mat.Col(nil, 0, y)
}

// Predict using the Lasso model
func (l *LassoRegression) Predict(x mat.Matrix) ([]float64, error) {
	if l.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	return predictLinear(x, l.coef, l.intercept)
}

// Score computes the coefficient of determination of the prediction
func (l *LassoRegression) Score(x, y mat.Matrix) (float64, error) {
	if l.opt == nil {
		return 0.0, ErrNoOptions
	}
	return scoreModel(l, x, y)
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (l *LassoRegression) Intercept() float64 {
	return l.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (l *LassoRegression) Coef() []float64 {
	c := make([]float64, len(l.coef))
	copy(c, l.coef)
	return c
}

// SoftThreshold returns 0.0 if the value is less than or equal to the gamma input
func SoftThreshold(x, gamma float64) float64 {
	res := math.Max(0, math.Abs(x)-gamma)
	if math.Signbit(x) {
		return -res
	}
	return res
}
