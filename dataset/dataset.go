// Package dataset loads tabular feature and response data keyed by sample identifier
package dataset

import (
	"errors"
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-shrinkage/mat"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrDataUnavailable = errors.New("dataset unavailable")
	ErrAlignment       = errors.New("sample identifiers of features and response do not match")
	ErrDuplicateID     = errors.New("duplicate sample identifier")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNoRows          = errors.New("table has no rows")
	ErrNoColumns       = errors.New("table has no value columns")
	ErrRowLenMismatch  = errors.New("row has a different number of values than columns")
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// FeatureMatrix stores the predictors as a dense matrix with one row per sample. Missing
// values are NaN.
type FeatureMatrix struct {
	IDs     []string
	Columns []string
	X       *mat.Dense
}

// NewFeatureMatrix validates the shape of the inputs and returns a FeatureMatrix
func NewFeatureMatrix(ids, columns []string, rows [][]float64) (*FeatureMatrix, error) {
	if len(ids) == 0 {
		return nil, ErrNoRows
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if len(ids) != len(rows) {
		return nil, fmt.Errorf("%d ids and %d rows, %w", len(ids), len(rows), ErrRowLenMismatch)
	}
	if err := checkUniqueIDs(ids); err != nil {
		return nil, err
	}
	if err := checkUniqueColumns(columns); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %q has %d values but %d columns, %w", ids[i], len(row), len(columns), ErrRowLenMismatch)
		}
	}
	x, err := mat_.NewDenseFromArray(rows)
	if err != nil {
		return nil, err
	}
	return &FeatureMatrix{
		IDs:     copyStrings(ids),
		Columns: copyStrings(columns),
		X:       x,
	}, nil
}

// Dims returns the number of samples and features
func (f *FeatureMatrix) Dims() (int, int) {
	return f.X.Dims()
}

// SelectRows returns a new FeatureMatrix with only the requested rows in the given order
func (f *FeatureMatrix) SelectRows(rows []int) (*FeatureMatrix, error) {
	x, err := mat_.SelectRows(f.X, rows)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = f.IDs[r]
	}
	return &FeatureMatrix{
		IDs:     ids,
		Columns: copyStrings(f.Columns),
		X:       x,
	}, nil
}

// CompleteRows returns the indices of rows without any missing predictor
func (f *FeatureMatrix) CompleteRows() []int {
	m, _ := f.Dims()
	rows := make([]int, 0, m)
	for i := range m {
		complete := true
		for _, v := range f.X.RawRowView(i) {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, i)
		}
	}
	return rows
}

// ResponseTable stores one or more candidate outcome columns per sample. Missing values
// are NaN.
type ResponseTable struct {
	IDs     []string
	Columns []string
	values  map[string][]float64
}

// NewResponseTable builds a response table from row ordered values
func NewResponseTable(ids, columns []string, rows [][]float64) (*ResponseTable, error) {
	if len(ids) == 0 {
		return nil, ErrNoRows
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if len(ids) != len(rows) {
		return nil, fmt.Errorf("%d ids and %d rows, %w", len(ids), len(rows), ErrRowLenMismatch)
	}
	if err := checkUniqueIDs(ids); err != nil {
		return nil, err
	}
	if err := checkUniqueColumns(columns); err != nil {
		return nil, err
	}

	values := make(map[string][]float64, len(columns))
	for _, col := range columns {
		values[col] = make([]float64, len(ids))
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %q has %d values but %d columns, %w", ids[i], len(row), len(columns), ErrRowLenMismatch)
		}
		for j, col := range columns {
			values[col][i] = row[j]
		}
	}
	return &ResponseTable{
		IDs:     copyStrings(ids),
		Columns: copyStrings(columns),
		values:  values,
	}, nil
}

// Len returns the number of samples
func (r *ResponseTable) Len() int {
	return len(r.IDs)
}

// Column returns a copy of the values of the named column
func (r *ResponseTable) Column(name string) ([]float64, error) {
	vals, exists := r.values[name]
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownColumn)
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return out, nil
}

// HasColumn reports whether the table holds the named column
func (r *ResponseTable) HasColumn(name string) bool {
	_, exists := r.values[name]
	return exists
}

// MissingCount returns the number of NaN entries in the named column
func (r *ResponseTable) MissingCount(name string) (int, error) {
	vals, exists := r.values[name]
	if !exists {
		return 0, fmt.Errorf("%q, %w", name, ErrUnknownColumn)
	}
	var cnt int
	for _, v := range vals {
		if math.IsNaN(v) {
			cnt++
		}
	}
	return cnt, nil
}

// SelectRows returns a new ResponseTable with only the requested rows in the given order
func (r *ResponseTable) SelectRows(rows []int) (*ResponseTable, error) {
	ids := make([]string, len(rows))
	values := make(map[string][]float64, len(r.Columns))
	for _, col := range r.Columns {
		values[col] = make([]float64, len(rows))
	}
	for i, row := range rows {
		if row < 0 || row >= len(r.IDs) {
			return nil, fmt.Errorf("row %d of %d, %w", row, len(r.IDs), mat_.ErrRowOutOfBounds)
		}
		ids[i] = r.IDs[row]
		for _, col := range r.Columns {
			values[col][i] = r.values[col][row]
		}
	}
	return &ResponseTable{
		IDs:     ids,
		Columns: copyStrings(r.Columns),
		values:  values,
	}, nil
}

// Align reorders the response table to match the sample order of the feature matrix. Both
// must contain exactly the same set of sample identifiers.
func Align(features *FeatureMatrix, response *ResponseTable) (*ResponseTable, error) {
	if features == nil || response == nil {
		return nil, ErrNoRows
	}
	if len(features.IDs) != len(response.IDs) {
		return nil, fmt.Errorf("features have %d samples and response has %d, %w", len(features.IDs), len(response.IDs), ErrAlignment)
	}

	index := make(map[string]int, len(response.IDs))
	for i, id := range response.IDs {
		index[id] = i
	}

	order := make([]int, len(features.IDs))
	for i, id := range features.IDs {
		r, exists := index[id]
		if !exists {
			return nil, fmt.Errorf("sample %q missing from response, %w", id, ErrAlignment)
		}
		order[i] = r
	}
	return response.SelectRows(order)
}

// SameIDs reports whether both tables list the same samples in the same order
func SameIDs(features *FeatureMatrix, response *ResponseTable) bool {
	if len(features.IDs) != len(response.IDs) {
		return false
	}
	for i := range features.IDs {
		if features.IDs[i] != response.IDs[i] {
			return false
		}
	}
	return true
}

// checkUniqueIDs reports a repeated sample identifier as an alignment failure
func checkUniqueIDs(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, exists := seen[id]; exists {
			return fmt.Errorf("%q, %w, %w", id, ErrDuplicateID, ErrAlignment)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func checkUniqueColumns(columns []string) error {
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if _, exists := seen[col]; exists {
			return fmt.Errorf("%q, %w", col, ErrDuplicateColumn)
		}
		seen[col] = struct{}{}
	}
	return nil
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
