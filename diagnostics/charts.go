package diagnostics

import (
	"fmt"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// TraceChart generates an echart multi-line chart of the draws of every coefficient in the
// summary
func TraceChart(s *Summary) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: s.Prior.Label() + " Trace",
			},
		),
	)

	var draws int
	for _, c := range s.Coefficients {
		draws = max(draws, len(c.Samples))
	}
	x := make([]int, draws)
	for i := range x {
		x[i] = i + 1
	}
	line = line.SetXAxis(x)

	for _, c := range s.Coefficients {
		lineData := make([]opts.LineData, 0, len(c.Samples))
		for _, v := range c.Samples {
			lineData = append(lineData, opts.LineData{Value: v})
		}
		line = line.AddSeries(c.Feature, lineData)
	}
	return line
}

// ACFChart generates an echart bar chart of the autocorrelation of every coefficient
func ACFChart(s *Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: s.Prior.Label() + " Autocorrelation",
			},
		),
	)

	var lags int
	for _, c := range s.Coefficients {
		lags = max(lags, len(c.ACF))
	}
	x := make([]int, lags)
	for i := range x {
		x[i] = i
	}
	bar = bar.SetXAxis(x)

	for _, c := range s.Coefficients {
		barData := make([]opts.BarData, 0, len(c.ACF))
		for _, v := range c.ACF {
			barData = append(barData, opts.BarData{Value: v})
		}
		bar = bar.AddSeries(fmt.Sprintf("%s (ess %.0f)", c.Feature, c.ESS), barData)
	}
	return bar
}

// HistogramChart generates an echart bar chart of the posterior histogram of a coefficient
func HistogramChart(prior string, c Coefficient) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title:    fmt.Sprintf("%s: %s", prior, c.Feature),
				Subtitle: fmt.Sprintf("95%% CI [%.3f, %.3f]", c.Interval.Lower, c.Interval.Upper),
			},
		),
	)

	mids := make([]string, len(c.Histogram.Counts))
	barData := make([]opts.BarData, len(c.Histogram.Counts))
	for i, cnt := range c.Histogram.Counts {
		mid := (c.Histogram.Dividers[i] + c.Histogram.Dividers[i+1]) / 2
		mids[i] = strconv.FormatFloat(mid, 'f', 3, 64)
		barData[i] = opts.BarData{Value: cnt}
	}
	bar.SetXAxis(mids).AddSeries("count", barData)
	return bar
}

// IntervalChart generates an echart line chart of the credible interval of every coefficient
// plotting the lower, median and upper values
func IntervalChart(s *Summary) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: s.Prior.Label() + " 95% Credible Intervals",
			},
		),
	)

	features := make([]string, 0, len(s.Coefficients))
	lineDataLower := make([]opts.LineData, 0, len(s.Coefficients))
	lineDataMedian := make([]opts.LineData, 0, len(s.Coefficients))
	lineDataUpper := make([]opts.LineData, 0, len(s.Coefficients))
	for _, c := range s.Coefficients {
		features = append(features, c.Feature)
		lineDataLower = append(lineDataLower, opts.LineData{Value: c.Interval.Lower})
		lineDataMedian = append(lineDataMedian, opts.LineData{Value: c.Interval.Median})
		lineDataUpper = append(lineDataUpper, opts.LineData{Value: c.Interval.Upper})
	}

	line.SetXAxis(features).
		AddSeries("Lower", lineDataLower).
		AddSeries("Median", lineDataMedian).
		AddSeries("Upper", lineDataUpper)
	return line
}
