package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrColMismatch    = errors.New("column size mismatch")
	ErrRowOutOfBounds = errors.New("row is out of bounds")
)

// NewDenseFromArray builds a dense matrix from row slices. All rows must have the same
// number of columns.
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)

	n := -1
	for i, row := range x {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if m == 0 || n <= 0 {
		return nil, mat.ErrZeroLength
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// SelectRows copies the requested rows of x, in the order given, into a new matrix
func SelectRows(x mat.Matrix, rows []int) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, mat.ErrZeroLength
	}
	m, n := x.Dims()
	if n == 0 {
		return nil, mat.ErrZeroLength
	}
	out := mat.NewDense(len(rows), n, nil)
	for i, r := range rows {
		if r < 0 || r >= m {
			return nil, fmt.Errorf("row %d of %d, %w", r, m, ErrRowOutOfBounds)
		}
		out.SetRow(i, mat.Row(nil, r, x))
	}
	return out, nil
}

// WithIntercept prepends a constant 1.0 column to x
func WithIntercept(x mat.Matrix) *mat.Dense {
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)
	onesMx := mat.NewDense(1, m, ones)

	var xWithOnes mat.Dense
	xWithOnes.Stack(onesMx, x.T())

	var out mat.Dense
	out.CloneFrom(xWithOnes.T())
	return &out
}

// MulVec returns x*beta + intercept as a slice
func MulVec(x mat.Matrix, beta []float64, intercept float64) []float64 {
	m, _ := x.Dims()
	var res mat.VecDense
	res.MulVec(x, mat.NewVecDense(len(beta), beta))
	out := make([]float64, m)
	for i := range m {
		out[i] = res.AtVec(i) + intercept
	}
	return out
}
