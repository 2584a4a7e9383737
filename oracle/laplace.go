package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	mat_ "github.com/aouyang1/go-shrinkage/mat"
	"github.com/aouyang1/go-shrinkage/models"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

const (
	DefaultPenalty = 1.0

	// coefficients closer to zero than this are treated as zero when forming adaptive
	// weights and local curvature
	minCoefMagnitude = 1e-3
	minVariance      = 1e-10
)

// LaplaceOptions configures the LaplaceOracle
type LaplaceOptions struct {
	// Penalty is the global shrinkage strength shared by every prior
	Penalty float64

	// Iterations bounds the coordinate descent and reweighted least squares solvers
	Iterations int
	Tolerance  float64
}

// NewDefaultLaplaceOptions returns a unit penalty with the solver defaults
func NewDefaultLaplaceOptions() *LaplaceOptions {
	return &LaplaceOptions{
		Penalty:    DefaultPenalty,
		Iterations: models.DefaultIterations * 10,
		Tolerance:  1e-8,
	}
}

// Validate runs basic validation on the Laplace options
func (l *LaplaceOptions) Validate() (*LaplaceOptions, error) {
	if l == nil {
		l = NewDefaultLaplaceOptions()
	}
	if l.Penalty <= 0 {
		return nil, fmt.Errorf("penalty must be positive, %w", models.ErrNegativeLambda)
	}
	if l.Iterations < 0 {
		return nil, models.ErrNegativeIterations
	}
	if l.Tolerance < 0 {
		return nil, models.ErrNegativeTolerance
	}
	return l, nil
}

// LaplaceOracle approximates the posterior by a multivariate normal centered at the
// posterior mode. The mode is the penalized likelihood estimate under the penalty implied
// by the prior: ridge uses an L2 penalty, LASSO an L1 penalty, and the horseshoe variants
// adaptive L1 penalties weighted by the inverse pilot estimate (squared for Horseshoe+),
// reproducing their stronger shrinkage of small effects. The covariance is the inverse of
// the penalized observed information. There is no Markov chain so the burn-in is unused.
type LaplaceOracle struct {
	opt *LaplaceOptions
}

// NewLaplaceOracle creates a LaplaceOracle. Default options are used if none are provided.
func NewLaplaceOracle(opt *LaplaceOptions) (*LaplaceOracle, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LaplaceOracle{opt: opt}, nil
}

// Fit draws Sampler.Draws samples from the normal approximation of the posterior
func (l *LaplaceOracle) Fit(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sampler, err := in.Sampler.Validate()
	if err != nil {
		return nil, err
	}
	_, n := in.X.Dims()

	pilot, err := l.pilot(in)
	if err != nil {
		return nil, fmt.Errorf("%s pilot fit, %w, %w", in.Prior.Label(), ErrFitDivergence, err)
	}
	weights := l.adaptiveWeights(in.Prior, pilot[1:])

	var mode []float64
	if in.Family == Gaussian {
		mode, err = l.gaussianMode(in, weights)
	} else {
		mode, err = l.glmMode(in, l.quadraticPenalty(in.Prior, weights, pilot[1:]))
	}
	if err != nil {
		return nil, fmt.Errorf("%s mode, %w, %w", in.Prior.Label(), ErrFitDivergence, err)
	}

	design := mat_.WithIntercept(in.X)
	precision, dispersion := l.information(in.Family, design, in.Y, mode)
	penalty := l.quadraticPenalty(in.Prior, weights, mode[1:])
	for j := 1; j <= n; j++ {
		precision.SetSym(j, j, precision.At(j, j)+penalty[j])
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(precision); !ok {
		return nil, fmt.Errorf("%s posterior precision is not positive definite, %w", in.Prior.Label(), ErrFitDivergence)
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, fmt.Errorf("%s posterior covariance, %w, %w", in.Prior.Label(), ErrFitDivergence, err)
	}
	cov.ScaleSym(dispersion, &cov)

	normal, ok := distmv.NewNormal(mode, &cov, rand.NewSource(in.Seed))
	if !ok {
		return nil, fmt.Errorf("%s posterior covariance is not positive definite, %w", in.Prior.Label(), ErrFitDivergence)
	}

	res := &Result{
		Prior:     in.Prior,
		Family:    in.Family,
		Seed:      in.Seed,
		Sampler:   *sampler,
		Formula:   Formula(in.Response, in.Features),
		Features:  append([]string(nil), in.Features...),
		Coef:      make([][]float64, sampler.Draws),
		Intercept: make([]float64, sampler.Draws),
	}
	draw := make([]float64, n+1)
	for i := range sampler.Draws {
		// thinning keeps every Thin-th draw of the stream
		for range sampler.Thin {
			normal.Rand(draw)
		}
		res.Intercept[i] = draw[0]
		res.Coef[i] = append([]float64(nil), draw[1:]...)
	}
	if err := res.Summarize(); err != nil {
		return nil, err
	}
	res.RMSE, err = rootMeanSquaredError(res, in.X, in.Y)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// pilot returns the estimate, intercept first, used to form adaptive weights.
// Gaussian fits use OLS when the design has more rows than coefficients and fall back to
// ridge when OLS is singular or underdetermined. GLM families use a ridge penalized fit.
func (l *LaplaceOracle) pilot(in Input) ([]float64, error) {
	m, n := in.X.Dims()
	if in.Family != Gaussian {
		penalty := make([]float64, n+1)
		for j := 1; j <= n; j++ {
			penalty[j] = l.opt.Penalty
		}
		return l.glmMode(in, penalty)
	}

	y := mat.NewVecDense(m, in.Y)
	model, err := l.pilotModel(in.X, y)
	if err != nil {
		return nil, err
	}
	r2, err := model.Score(in.X, y)
	if err != nil {
		return nil, err
	}
	slog.Debug("pilot fit", "prior", in.Prior.Label(), "model", fmt.Sprintf("%T", model), "r2", r2)
	return append([]float64{model.Intercept()}, model.Coef()...), nil
}

func (l *LaplaceOracle) pilotModel(x, y mat.Matrix) (models.Model, error) {
	m, n := x.Dims()
	if m > n+1 {
		ols, err := models.NewOLSRegression(nil)
		if err != nil {
			return nil, err
		}
		err = ols.Fit(x, y)
		if err == nil {
			return ols, nil
		}
		if !errors.Is(err, models.ErrSingularSystem) {
			return nil, err
		}
	}
	rr, err := models.NewRidgeRegression(&models.RidgeOptions{
		Lambda:       l.opt.Penalty,
		FitIntercept: true,
	})
	if err != nil {
		return nil, err
	}
	if err := rr.Fit(x, y); err != nil {
		return nil, err
	}
	return rr, nil
}

// adaptiveWeights scales the L1 penalty of each coefficient
func (l *LaplaceOracle) adaptiveWeights(prior Prior, pilot []float64) []float64 {
	w := make([]float64, len(pilot))
	for j, b := range pilot {
		mag := math.Max(math.Abs(b), minCoefMagnitude)
		switch prior {
		case Horseshoe:
			w[j] = 1.0 / mag
		case HorseshoePlus:
			w[j] = 1.0 / (mag * mag)
		default:
			w[j] = 1.0
		}
	}
	// keep the average penalty comparable across priors
	if mean := floats.Sum(w) / float64(len(w)); mean > 0 {
		floats.Scale(1.0/mean, w)
	}
	return w
}

// quadraticPenalty returns the diagonal penalty, intercept first, of the local quadratic
// approximation of the prior around beta
func (l *LaplaceOracle) quadraticPenalty(prior Prior, weights, beta []float64) []float64 {
	penalty := make([]float64, len(beta)+1)
	for j, b := range beta {
		if prior == Ridge {
			penalty[j+1] = l.opt.Penalty
			continue
		}
		penalty[j+1] = l.opt.Penalty * weights[j] / math.Max(math.Abs(b), minCoefMagnitude)
	}
	return penalty
}

// gaussianMode solves the penalized least squares problem, intercept first
func (l *LaplaceOracle) gaussianMode(in Input, weights []float64) ([]float64, error) {
	m, n := in.X.Dims()
	y := mat.NewVecDense(m, in.Y)
	if in.Prior == Ridge {
		rr, err := models.NewRidgeRegression(&models.RidgeOptions{
			Lambda:       l.opt.Penalty,
			FitIntercept: true,
		})
		if err != nil {
			return nil, err
		}
		if err := rr.Fit(in.X, y); err != nil {
			return nil, err
		}
		return append([]float64{rr.Intercept()}, rr.Coef()...), nil
	}

	lasso, err := models.NewLassoRegression(&models.LassoOptions{
		Lambda:        l.opt.Penalty,
		PenaltyFactor: weights,
		Iterations:    l.opt.Iterations,
		Tolerance:     l.opt.Tolerance,
		FitIntercept:  true,
	})
	if err != nil {
		return nil, err
	}
	if err := lasso.Fit(in.X, y); err != nil {
		return nil, err
	}
	mode := append([]float64{lasso.Intercept()}, lasso.Coef()...)
	if len(mode) != n+1 {
		return nil, fmt.Errorf("expected %d coefficients, got %d, %w", n+1, len(mode), models.ErrFeatureLenMismatch)
	}
	return mode, nil
}

// glmMode runs reweighted least squares with a fixed diagonal penalty, intercept first
func (l *LaplaceOracle) glmMode(in Input, penalty []float64) ([]float64, error) {
	m, _ := in.X.Dims()
	link := models.LinkLogit
	if in.Family == Poisson {
		link = models.LinkLog
	}
	glm, err := models.NewGLMRegression(&models.GLMOptions{
		Link:       link,
		Iterations: models.DefaultIRLSIterations,
		Tolerance:  models.DefaultIRLSTolerance,
		Solver: func(x mat.Matrix, y []float64) ([]float64, error) {
			return models.SolvePenalized(x, y, penalty)
		},
	})
	if err != nil {
		return nil, err
	}
	if err := glm.Fit(in.X, mat.NewVecDense(m, in.Y)); err != nil {
		return nil, err
	}
	return append([]float64{glm.Intercept()}, glm.Coef()...), nil
}

// information returns the observed information X'WX at beta and the dispersion
func (l *LaplaceOracle) information(family Family, design *mat.Dense, y, beta []float64) (*mat.SymDense, float64) {
	m, n := design.Dims()
	eta := mat_.MulVec(design, beta, 0)

	w := make([]float64, m)
	var sse float64
	for i, e := range eta {
		mu := family.Mean(e)
		switch family {
		case Logistic:
			w[i] = mu * (1 - mu)
		case Poisson:
			w[i] = mu
		default:
			w[i] = 1.0
			sse += (y[i] - mu) * (y[i] - mu)
		}
	}

	scaled := mat.NewDense(m, n, nil)
	for i := range m {
		sw := math.Sqrt(w[i])
		for j := range n {
			scaled.Set(i, j, design.At(i, j)*sw)
		}
	}
	precision := mat.NewSymDense(n, nil)
	precision.SymOuterK(1, scaled.T())

	dispersion := 1.0
	if family == Gaussian {
		dispersion = math.Max(sse/float64(m), minVariance)
	}
	return precision, dispersion
}
