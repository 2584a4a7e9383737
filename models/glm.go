package models

import (
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-shrinkage/mat"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Link is the link function relating the linear predictor to the mean response
type Link string

const (
	LinkIdentity Link = "identity"
	LinkLogit    Link = "logit"
	LinkLog      Link = "log"
)

const (
	DefaultIRLSIterations = 50
	DefaultIRLSTolerance  = 1e-8

	// bounds on the mean to keep the working weights finite
	minProbability = 1e-10
	minRate        = 1e-10
	maxLinear      = 30.0
)

// Solver fits coefficients for a weighted working response. The design matrix always
// carries the intercept as column 0 so solvers must leave it unpenalized.
type Solver func(x mat.Matrix, y []float64) ([]float64, error)

// GLMOptions configures iteratively reweighted least squares
type GLMOptions struct {
	Link       Link
	Iterations int
	Tolerance  float64

	// Solver computes each weighted least squares step. Defaults to unpenalized least squares
	// with a tiny ridge for numerical stability.
	Solver Solver
}

// Validate runs basic validation on GLM options
func (g *GLMOptions) Validate() (*GLMOptions, error) {
	if g == nil {
		g = NewDefaultGLMOptions()
	}
	switch g.Link {
	case LinkIdentity, LinkLogit, LinkLog:
	default:
		return nil, fmt.Errorf("%q, %w", g.Link, ErrUnknownLink)
	}
	if g.Iterations < 0 {
		return nil, ErrNegativeIterations
	}
	if g.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	if g.Solver == nil {
		g.Solver = func(x mat.Matrix, y []float64) ([]float64, error) {
			_, n := x.Dims()
			penalty := make([]float64, n)
			for j := 1; j < n; j++ {
				penalty[j] = 1e-8
			}
			return SolvePenalized(x, y, penalty)
		}
	}
	return g, nil
}

// NewDefaultGLMOptions returns an identity link IRLS which reduces to least squares
func NewDefaultGLMOptions() *GLMOptions {
	return &GLMOptions{
		Link:       LinkIdentity,
		Iterations: DefaultIRLSIterations,
		Tolerance:  DefaultIRLSTolerance,
	}
}

// GLMRegression fits a generalized linear model with a canonical link by iteratively
// reweighted least squares. Predict returns values on the response scale.
type GLMRegression struct {
	opt *GLMOptions

	coef      []float64
	intercept float64
	iters     int
}

// NewGLMRegression initializes a GLM ready for fitting
func NewGLMRegression(opt *GLMOptions) (*GLMRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &GLMRegression{opt: opt}, nil
}

// Fit the model according to the given training data. An intercept is always fit.
func (g *GLMRegression) Fit(x, y mat.Matrix) error {
	if g.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	design := mat_.WithIntercept(x)
	_, n := design.Dims()
	yArr := mat.Col(nil, 0, y)

	beta := make([]float64, n)
	beta[0] = g.linkFn(stat.Mean(yArr, nil))

	z := make([]float64, m)
	w := make([]float64, m)
	scaled := mat.NewDense(m, n, nil)
	scaledZ := make([]float64, m)

	converged := false
	for iter := 0; iter < g.opt.Iterations; iter++ {
		g.iters = iter + 1
		eta := mat_.MulVec(design, beta, 0)
		for i := range m {
			mu, dmu := g.inverseLink(eta[i])
			variance := g.variance(mu)
			w[i] = dmu * dmu / variance
			z[i] = eta[i] + (yArr[i]-mu)/dmu
		}

		for i := range m {
			sw := math.Sqrt(w[i])
			row := design.RawRowView(i)
			for j := range n {
				scaled.Set(i, j, row[j]*sw)
			}
			scaledZ[i] = z[i] * sw
		}

		next, err := g.opt.Solver(scaled, scaledZ)
		if err != nil {
			return err
		}
		if len(next) != n {
			return fmt.Errorf("solver returned %d coefficients instead of %d, %w", len(next), n, ErrFeatureLenMismatch)
		}

		diff := make([]float64, n)
		floats.SubTo(diff, next, beta)
		change := floats.Norm(diff, math.Inf(1))
		beta = next
		if g.opt.Link == LinkIdentity || change <= g.opt.Tolerance*(1+floats.Norm(beta, math.Inf(1))) {
			converged = true
			break
		}
	}
	for _, b := range beta {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return ErrNotConverged
		}
	}
	if !converged {
		return fmt.Errorf("after %d iterations, %w", g.opt.Iterations, ErrNotConverged)
	}

	g.intercept = beta[0]
	g.coef = beta[1:]
	return nil
}

func (g *GLMRegression) linkFn(mu float64) float64 {
	switch g.opt.Link {
	case LinkLogit:
		mu = math.Min(math.Max(mu, minProbability), 1-minProbability)
		return math.Log(mu / (1 - mu))
	case LinkLog:
		return math.Log(math.Max(mu, minRate))
	default:
		return mu
	}
}

// inverseLink returns the mean and the derivative of the mean with respect to eta
func (g *GLMRegression) inverseLink(eta float64) (float64, float64) {
	switch g.opt.Link {
	case LinkLogit:
		mu := Sigmoid(eta)
		mu = math.Min(math.Max(mu, minProbability), 1-minProbability)
		return mu, mu * (1 - mu)
	case LinkLog:
		mu := math.Exp(math.Min(eta, maxLinear))
		mu = math.Max(mu, minRate)
		return mu, mu
	default:
		return eta, 1.0
	}
}

func (g *GLMRegression) variance(mu float64) float64 {
	switch g.opt.Link {
	case LinkLogit:
		return mu * (1 - mu)
	case LinkLog:
		return mu
	default:
		return 1.0
	}
}

// Predict returns the mean response for each row of x
func (g *GLMRegression) Predict(x mat.Matrix) ([]float64, error) {
	if g.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	eta, err := predictLinear(x, g.coef, g.intercept)
	if err != nil {
		return nil, err
	}
	for i, e := range eta {
		eta[i], _ = g.inverseLink(e)
	}
	return eta, nil
}

// Score computes the coefficient of determination of the mean response
func (g *GLMRegression) Score(x, y mat.Matrix) (float64, error) {
	if g.opt == nil {
		return 0.0, ErrNoOptions
	}
	return scoreModel(g, x, y)
}

func (g *GLMRegression) Intercept() float64 {
	return g.intercept
}

func (g *GLMRegression) Coef() []float64 {
	c := make([]float64, len(g.coef))
	copy(c, g.coef)
	return c
}

// Iterations returns the number of IRLS iterations used by the last fit
func (g *GLMRegression) Iterations() int {
	return g.iters
}

// Sigmoid is the inverse of the logit link
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}
