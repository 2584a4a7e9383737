package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// HistogramPlot draws the posterior histogram of a coefficient with its credible interval
// marked by vertical lines
func HistogramPlot(prior string, c Coefficient, bins int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s posterior", prior, c.Feature)
	p.X.Label.Text = "coefficient"
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(plotter.Values(c.Samples), bins)
	if err != nil {
		return nil, fmt.Errorf("unable to bin %s samples, %w", c.Feature, err)
	}
	p.Add(h)

	_, _, _, ymax := h.DataRange()
	for _, v := range []float64{c.Interval.Lower, c.Interval.Upper} {
		l, err := plotter.NewLine(plotter.XYs{{X: v, Y: 0}, {X: v, Y: ymax}})
		if err != nil {
			return nil, err
		}
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
	}
	return p, nil
}

// TracePlot draws the draws of a coefficient in sampling order
func TracePlot(prior string, c Coefficient) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s trace", prior, c.Feature)
	p.X.Label.Text = "draw"
	p.Y.Label.Text = "coefficient"

	pts := make(plotter.XYs, len(c.Samples))
	for i, v := range c.Samples {
		pts[i].X = float64(i + 1)
		pts[i].Y = v
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("unable to trace %s samples, %w", c.Feature, err)
	}
	p.Add(l)
	return p, nil
}

// SavePlots writes a histogram and trace png per coefficient into dir, named
// <prior>_<feature>_hist.png and <prior>_<feature>_trace.png. The written paths are returned.
func SavePlots(dir string, s *Summary, bins int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	var paths []string
	for _, c := range s.Coefficients {
		base := filepath.Join(dir, s.Prior.Slug()+"_"+FileSafe(c.Feature))

		hist, err := HistogramPlot(s.Prior.Label(), c, bins)
		if err != nil {
			return nil, err
		}
		if err := hist.Save(plotWidth, plotHeight, base+"_hist.png"); err != nil {
			return nil, fmt.Errorf("unable to save histogram of %s, %w", c.Feature, err)
		}

		trace, err := TracePlot(s.Prior.Label(), c)
		if err != nil {
			return nil, err
		}
		if err := trace.Save(plotWidth, plotHeight, base+"_trace.png"); err != nil {
			return nil, fmt.Errorf("unable to save trace of %s, %w", c.Feature, err)
		}
		paths = append(paths, base+"_hist.png", base+"_trace.png")
	}
	return paths, nil
}

// FileSafe replaces characters outside [A-Za-z0-9._-] with underscores
func FileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}
