package shrinkage

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/aouyang1/go-shrinkage/metrics"
	"github.com/aouyang1/go-shrinkage/oracle"
	"github.com/aouyang1/go-shrinkage/preprocess"
	"github.com/aouyang1/go-shrinkage/util"
	"github.com/goccy/go-json"
)

// Row is the performance of one prior. Value is NaN when the fit or metric failed and Err
// holds the reason.
type Row struct {
	Prior  oracle.Prior
	Metric metrics.Name
	Value  float64
	Err    string
}

// NA reports whether the row has no value
func (r Row) NA() bool {
	return math.IsNaN(r.Value)
}

type rowJSON struct {
	Prior  oracle.Prior `json:"prior"`
	Label  string       `json:"label"`
	Metric metrics.Name `json:"metric"`
	Value  *float64     `json:"value"`
	Err    string       `json:"error,omitempty"`
}

// MarshalJSON writes NA values as null
func (r Row) MarshalJSON() ([]byte, error) {
	out := rowJSON{
		Prior:  r.Prior,
		Label:  r.Prior.Label(),
		Metric: r.Metric,
		Err:    r.Err,
	}
	if !r.NA() {
		v := r.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var in rowJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Prior = in.Prior
	r.Metric = in.Metric
	r.Err = in.Err
	r.Value = math.NaN()
	if in.Value != nil {
		r.Value = *in.Value
	}
	return nil
}

// Summary holds one row per prior in Horseshoe, Horseshoe+, Ridge, LASSO order
type Summary struct {
	Outcome  preprocess.Outcome `json:"outcome"`
	Response string             `json:"response"`
	Rows     []Row              `json:"rows"`
}

// NewSummary creates a summary with every prior marked NA until a value is set
func NewSummary(outcome preprocess.Outcome, response string) *Summary {
	s := &Summary{
		Outcome:  outcome,
		Response: response,
		Rows:     make([]Row, len(oracle.Priors)),
	}
	for i, p := range oracle.Priors {
		s.Rows[i] = Row{
			Prior:  p,
			Metric: Metric(outcome),
			Value:  math.NaN(),
			Err:    "not run",
		}
	}
	return s
}

// Set records the row of the prior
func (s *Summary) Set(row Row) {
	for i := range s.Rows {
		if s.Rows[i].Prior == row.Prior {
			s.Rows[i] = row
			return
		}
	}
}

// Row returns the row of the prior
func (s *Summary) Row(prior oracle.Prior) (Row, bool) {
	for _, r := range s.Rows {
		if r.Prior == prior {
			return r, true
		}
	}
	return Row{}, false
}

// Values returns the metric values in row order
func (s *Summary) Values() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Value
	}
	return out
}

func (s *Summary) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sPerformance (%s, response %s):\n", prefix, util.IndentExpand(indent, 0), s.Outcome, s.Response); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sPrior\tMetric\tValue\tNote\t\n", prefix, util.IndentExpand(indent, 1)); err != nil {
		return err
	}
	for _, r := range s.Rows {
		note := ""
		if r.NA() {
			note = r.Err
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, 1),
			r.Prior.Label(), r.Metric, util.FormatValue(r.Value, 4), note); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// WriteCSV writes the summary with columns prior, metric, value and error. NA values are
// written as NA.
func (s *Summary) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"prior", "metric", "value", "error"}); err != nil {
		return err
	}
	for _, r := range s.Rows {
		val := util.NA
		if !r.NA() {
			val = strconv.FormatFloat(r.Value, 'g', -1, 64)
		}
		if err := writer.Write([]string{r.Prior.Label(), string(r.Metric), val, r.Err}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func nan() float64 {
	return math.NaN()
}
