package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrInvalidLabel = errors.New("binary outcome must be 0 or 1")

// DefaultThreshold separates predicted probabilities into class labels
const DefaultThreshold = 0.5

// Labels converts predicted probabilities into 0/1 class labels, >= threshold mapping to 1
func Labels(probs []float64, threshold float64) []float64 {
	out := make([]float64, len(probs))
	for i, p := range probs {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}

// AUC computes the area under the ROC curve of the scores against the 0/1 outcomes using the
// Mann-Whitney statistic. Tied scores count half. Both classes must be present.
func AUC(scores, actual []float64) (float64, error) {
	if len(scores) != len(actual) {
		return math.NaN(), fmt.Errorf("expected %d, but got %d, %w", len(actual), len(scores), ErrResLenMismatch)
	}

	idx := make([]int, 0, len(scores))
	var pos, neg int
	for i, a := range actual {
		if math.IsNaN(a) || math.IsNaN(scores[i]) {
			continue
		}
		switch a {
		case 1:
			pos++
		case 0:
			neg++
		default:
			return math.NaN(), fmt.Errorf("got %g, %w", a, ErrInvalidLabel)
		}
		idx = append(idx, i)
	}
	if pos == 0 || neg == 0 {
		return math.NaN(), fmt.Errorf("%d positive and %d negative outcomes, %w", pos, neg, ErrMetricUndefined)
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] < scores[idx[b]]
	})

	// sum of average ranks of the positive outcomes
	var rankSum float64
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && scores[idx[end]] == scores[idx[start]] {
			end++
		}
		avgRank := float64(start+end+1) / 2.0
		for k := start; k < end; k++ {
			if actual[idx[k]] == 1 {
				rankSum += avgRank
			}
		}
		start = end
	}

	p, n := float64(pos), float64(neg)
	return (rankSum - p*(p+1)/2.0) / (p * n), nil
}
