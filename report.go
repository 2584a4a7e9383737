package shrinkage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aouyang1/go-shrinkage/diagnostics"
	"github.com/aouyang1/go-shrinkage/oracle"
	"github.com/aouyang1/go-shrinkage/preprocess"
	"github.com/aouyang1/go-shrinkage/util"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/goccy/go-json"
)

var ErrNoOutputDir = errors.New("no output directory")

// Output file names written by Save
const (
	SummaryCSVFile      = "summary.csv"
	SummaryTextFile     = "summary.txt"
	ReportFile          = "report.json"
	DiagnosticsPageFile = "diagnostics.html"
	FitsDir             = "fits"
	PlotsDir            = "plots"
)

// Report is the outcome of one experiment: the performance summary, the posterior samples of
// every successful fit and the diagnostics of the top coefficients
type Report struct {
	RunID    string             `json:"run_id"`
	Name     string             `json:"name"`
	Outcome  preprocess.Outcome `json:"outcome"`
	Response string             `json:"response"`
	Samples  int                `json:"samples"`
	Features []string           `json:"features"`
	Seed     uint64             `json:"seed"`
	Options  *Options           `json:"options"`

	Summary     *Summary                        `json:"summary"`
	Fits        map[oracle.Prior]*oracle.Result `json:"-"`
	Diagnostics []*diagnostics.Summary          `json:"diagnostics"`

	CreatedAt time.Time `json:"created_at"`
}

// Fit returns the posterior samples of the prior if it was fit successfully
func (r *Report) Fit(prior oracle.Prior) (*oracle.Result, bool) {
	res, exists := r.Fits[prior]
	return res, exists
}

func (r *Report) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%sExperiment %s (%d samples, %d features, seed %d):\n", prefix, r.Name, r.Samples, len(r.Features), r.Seed); err != nil {
		return err
	}
	if err := r.Summary.TablePrint(w, prefix, indent+indent); err != nil {
		return err
	}
	for _, p := range oracle.Priors {
		res, exists := r.Fits[p]
		if !exists {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s%s%s: %s\n", prefix, util.IndentExpand(indent, 1), p.Label(), res.Formula); err != nil {
			return err
		}
	}
	return nil
}

// PlotDiagnostics uses the Apache Echarts library to generate an html file with the trace,
// autocorrelation and credible intervals of the top coefficients of every fit
func (r *Report) PlotDiagnostics(path string) error {
	page := components.NewPage()
	page.PageTitle = r.Name
	for _, s := range r.Diagnostics {
		page.AddCharts(
			diagnostics.TraceChart(s),
			diagnostics.ACFChart(s),
			diagnostics.IntervalChart(s),
		)
		for _, c := range s.Coefficients {
			page.AddCharts(diagnostics.HistogramChart(s.Prior.Label(), c))
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return page.Render(file)
}

// Save writes the summary as csv and text, the report and every fit as json, the diagnostics
// page and a histogram and trace png per reported coefficient into dir
func (r *Report) Save(dir string, bins int) error {
	if dir == "" {
		return ErrNoOutputDir
	}
	if err := os.MkdirAll(filepath.Join(dir, FitsDir), 0o755); err != nil {
		return err
	}

	if err := writeFile(filepath.Join(dir, SummaryCSVFile), r.Summary.WriteCSV); err != nil {
		return fmt.Errorf("unable to write summary csv, %w", err)
	}
	if err := writeFile(filepath.Join(dir, SummaryTextFile), func(w io.Writer) error {
		return r.TablePrint(w, "", "  ")
	}); err != nil {
		return fmt.Errorf("unable to write summary table, %w", err)
	}
	if err := writeJSON(filepath.Join(dir, ReportFile), r); err != nil {
		return fmt.Errorf("unable to write report, %w", err)
	}
	for p, res := range r.Fits {
		if err := writeJSON(filepath.Join(dir, FitsDir, p.Slug()+".json"), res); err != nil {
			return fmt.Errorf("unable to write %s fit, %w", p.Label(), err)
		}
	}

	if err := r.PlotDiagnostics(filepath.Join(dir, DiagnosticsPageFile)); err != nil {
		return fmt.Errorf("unable to write diagnostics page, %w", err)
	}
	for _, s := range r.Diagnostics {
		if _, err := diagnostics.SavePlots(filepath.Join(dir, PlotsDir), s, bins); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}
