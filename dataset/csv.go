package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var ErrMalformedValue = errors.New("value is not numeric")

// missing value markers commonly found in exported statistical tables
var missingMarkers = map[string]struct{}{
	"":    {},
	"NA":  {},
	"NaN": {},
	"nan": {},
	".":   {},
	"N/A": {},
}

// Table is a parsed csv with a sample identifier column and numeric value columns
type Table struct {
	IDs     []string
	Columns []string
	Rows    [][]float64
}

// ReadTable parses a csv with a header row. The identifier column is located by name, or the
// first column is used when idColumn is empty. Identifiers are trimmed of surrounding
// whitespace.
func ReadTable(r io.Reader, idColumn string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("unable to read header, %w", err)
	}

	idIdx := 0
	if idColumn != "" {
		idIdx = -1
		for i, h := range header {
			if strings.TrimSpace(h) == idColumn {
				idIdx = i
				break
			}
		}
		if idIdx < 0 {
			return nil, fmt.Errorf("id column %q, %w", idColumn, ErrUnknownColumn)
		}
	}

	columns := make([]string, 0, len(header)-1)
	for i, h := range header {
		if i == idIdx {
			continue
		}
		columns = append(columns, strings.TrimSpace(h))
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	tbl := &Table{Columns: columns}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read line %d, %w", line, err)
		}

		row := make([]float64, 0, len(columns))
		for i, field := range rec {
			if i == idIdx {
				continue
			}
			v, err := parseValue(field)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q, %w", line, header[i], err)
			}
			row = append(row, v)
		}
		tbl.IDs = append(tbl.IDs, strings.TrimSpace(rec[idIdx]))
		tbl.Rows = append(tbl.Rows, row)
	}
	if len(tbl.IDs) == 0 {
		return nil, ErrNoRows
	}
	return tbl, nil
}

func parseValue(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if _, missing := missingMarkers[field]; missing {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("%q, %w", field, ErrMalformedValue)
	}
	return v, nil
}

// WriteTable writes the identifiers and values as csv. NaN values are written as NA.
func WriteTable(w io.Writer, idColumn string, ids, columns []string, value func(row, col int) float64) error {
	writer := csv.NewWriter(w)
	if idColumn == "" {
		idColumn = "id"
	}
	if err := writer.Write(append([]string{idColumn}, columns...)); err != nil {
		return err
	}
	rec := make([]string, len(columns)+1)
	for i, id := range ids {
		rec[0] = id
		for j := range columns {
			v := value(i, j)
			if math.IsNaN(v) {
				rec[j+1] = "NA"
				continue
			}
			rec[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSV writes the feature matrix as csv
func (f *FeatureMatrix) WriteCSV(w io.Writer, idColumn string) error {
	return WriteTable(w, idColumn, f.IDs, f.Columns, f.X.At)
}

// WriteCSV writes the response table as csv
func (r *ResponseTable) WriteCSV(w io.Writer, idColumn string) error {
	return WriteTable(w, idColumn, r.IDs, r.Columns, func(row, col int) float64 {
		return r.values[r.Columns[col]][row]
	})
}
