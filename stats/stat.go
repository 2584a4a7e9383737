package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmptySeries       = errors.New("series has no values")
	ErrInvalidPercentile = errors.New("percentile must be within [0, 1]")
	ErrInvalidBins       = errors.New("number of bins must be positive")
	ErrNegativeLag       = errors.New("lag must be non-negative")
)

// Median returns the middle value of x, averaging the two middle values for an even
// number of points. NaNs are ignored.
func Median(x []float64) (float64, error) {
	sorted := sortedFinite(x)
	n := len(sorted)
	if n == 0 {
		return math.NaN(), ErrEmptySeries
	}
	if n%2 == 1 {
		return sorted[n/2], nil
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0, nil
}

// Quantile computes the p-th sample quantile with linear interpolation between order
// statistics, h = (n-1)p. This matches the default quantile definition of most
// statistical packages.
func Quantile(p float64, x []float64) (float64, error) {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return math.NaN(), fmt.Errorf("got %.3f, %w", p, ErrInvalidPercentile)
	}
	sorted := sortedFinite(x)
	if len(sorted) == 0 {
		return math.NaN(), ErrEmptySeries
	}
	return quantileSorted(p, sorted), nil
}

// Quantiles computes multiple quantiles from a single sort of x
func Quantiles(ps []float64, x []float64) ([]float64, error) {
	sorted := sortedFinite(x)
	if len(sorted) == 0 {
		return nil, ErrEmptySeries
	}
	res := make([]float64, len(ps))
	for i, p := range ps {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return nil, fmt.Errorf("got %.3f, %w", p, ErrInvalidPercentile)
		}
		res[i] = quantileSorted(p, sorted)
	}
	return res, nil
}

func quantileSorted(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

func sortedFinite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// ACF computes the sample autocorrelation of x for lags 0 through maxLag inclusive.
// Lags beyond the series length are not returned.
func ACF(x []float64, maxLag int) ([]float64, error) {
	if maxLag < 0 {
		return nil, ErrNegativeLag
	}
	n := len(x)
	if n == 0 {
		return nil, ErrEmptySeries
	}
	if maxLag > n-1 {
		maxLag = n - 1
	}

	mean := stat.Mean(x, nil)
	centered := make([]float64, n)
	copy(centered, x)
	floats.AddConst(-mean, centered)

	c0 := floats.Dot(centered, centered)
	acf := make([]float64, maxLag+1)
	acf[0] = 1.0
	if c0 == 0 {
		// constant series has no defined correlation beyond lag 0
		for k := 1; k <= maxLag; k++ {
			acf[k] = math.NaN()
		}
		return acf, nil
	}
	for k := 1; k <= maxLag; k++ {
		acf[k] = floats.Dot(centered[:n-k], centered[k:]) / c0
	}
	return acf, nil
}

// EffectiveSampleSize estimates the number of independent draws in a correlated chain
// using Geyer's initial positive sequence. Autocorrelations are summed in adjacent pairs
// starting at lag 0 until a pair is non-positive or incomplete.
func EffectiveSampleSize(acf []float64, n int) float64 {
	if n == 0 || len(acf) == 0 {
		return 0
	}
	sum := 0.0
	for k := 0; k+1 < len(acf); k += 2 {
		pair := acf[k] + acf[k+1]
		if math.IsNaN(pair) || pair <= 0 {
			break
		}
		sum += pair
	}
	tau := -1.0 + 2.0*sum
	if tau <= 0 {
		return float64(n)
	}
	return math.Min(float64(n)/tau, float64(n))
}

// Histogram bins x into the requested number of equal width bins spanning the finite
// range of x. Dividers has length bins+1.
func Histogram(x []float64, bins int) (dividers, counts []float64, err error) {
	if bins <= 0 {
		return nil, nil, ErrInvalidBins
	}
	sorted := sortedFinite(x)
	if len(sorted) == 0 {
		return nil, nil, ErrEmptySeries
	}

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	dividers = make([]float64, bins+1)
	floats.Span(dividers, lo, hi)

	// stat.Histogram expects the upper divider to be strictly greater than the max value
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts = stat.Histogram(nil, dividers, sorted, nil)
	dividers[bins] = hi
	return dividers, counts, nil
}
