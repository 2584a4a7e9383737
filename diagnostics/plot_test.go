package diagnostics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aouyang1/go-shrinkage/oracle"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavePlots(t *testing.T) {
	res := testResult(t, oracle.HorseshoePlus, []float64{1, -2})
	res.Features[1] = "dose (mg/kg)"
	s, err := Report(res, nil)
	require.Nil(t, err)

	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := SavePlots(dir, s, 0)
	require.Nil(t, err)

	expected := []string{
		filepath.Join(dir, "hsplus_dose__mg_kg__hist.png"),
		filepath.Join(dir, "hsplus_dose__mg_kg__trace.png"),
		filepath.Join(dir, "hsplus_a_hist.png"),
		filepath.Join(dir, "hsplus_a_trace.png"),
	}
	assert.Equal(t, expected, paths)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.Nil(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestFileSafe(t *testing.T) {
	testData := map[string]struct {
		name     string
		expected string
	}{
		"plain":  {"gene_1", "gene_1"},
		"spaces": {"tumor size", "tumor_size"},
		"slash":  {"mg/kg", "mg_kg"},
		"dots":   {"x.1-b", "x.1-b"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, FileSafe(td.name))
		})
	}
}

func TestCharts(t *testing.T) {
	res := testResult(t, oracle.Ridge, []float64{1, -2, 0.5})
	s, err := Report(res, &Options{TopK: 2, MaxLag: 4, Bins: 8})
	require.Nil(t, err)

	trace := TraceChart(s)
	assert.Len(t, trace.MultiSeries, 2)
	acf := ACFChart(s)
	assert.Len(t, acf.MultiSeries, 2)
	intervals := IntervalChart(s)
	assert.Len(t, intervals.MultiSeries, 3)
	hist := HistogramChart(s.Prior.Label(), s.Coefficients[0])
	assert.Len(t, hist.MultiSeries, 1)

	page := components.NewPage()
	page.AddCharts(trace, acf, intervals, hist)
	var buf bytes.Buffer
	require.Nil(t, page.Render(&buf))
	assert.Contains(t, buf.String(), "Ridge 95% Credible Intervals")
}
