package metrics

import (
	"fmt"
	"math"
	"sort"
)

// DefaultTau is the truncation time of the concordance statistic
const DefaultTau = 2000.0

// Concordance scores how well a risk marker orders right censored survival times. Higher
// risk is expected to fail earlier. event is 1 for an observed failure and 0 for censoring.
type Concordance interface {
	Concordance(time, event, risk []float64) (float64, error)
}

// UnoConcordance is Uno's C-statistic, a concordance index truncated at Tau whose pairs are
// weighted by the inverse squared Kaplan-Meier estimate of the censoring distribution
type UnoConcordance struct {
	Tau float64
}

// NewUnoConcordance returns a concordance truncated at tau. A non-positive tau uses the
// default.
func NewUnoConcordance(tau float64) *UnoConcordance {
	if tau <= 0 || math.IsNaN(tau) {
		tau = DefaultTau
	}
	return &UnoConcordance{Tau: tau}
}

// Concordance computes the truncated C-statistic. Pairs (i, j) are comparable when subject i
// fails before both tau and the observed time of j. Ties in risk count half.
func (u *UnoConcordance) Concordance(time, event, risk []float64) (float64, error) {
	n := len(time)
	if len(event) != n || len(risk) != n {
		return math.NaN(), fmt.Errorf("%d times, %d events and %d risks, %w", n, len(event), len(risk), ErrResLenMismatch)
	}

	censoring := KaplanMeier(time, event, true)

	var num, den float64
	var events int
	for i := range n {
		if event[i] != 1 || !(time[i] < u.Tau) {
			continue
		}
		events++
		g := censoring.Before(time[i])
		if g <= 0 {
			continue
		}
		w := 1.0 / (g * g)
		for j := range n {
			if !(time[i] < time[j]) {
				continue
			}
			den += w
			switch {
			case risk[i] > risk[j]:
				num += w
			case risk[i] == risk[j]:
				num += 0.5 * w
			}
		}
	}
	if events == 0 {
		return math.NaN(), fmt.Errorf("no observed events before %g, %w", u.Tau, ErrMetricUndefined)
	}
	if den == 0 {
		return math.NaN(), fmt.Errorf("no comparable pairs, %w", ErrMetricUndefined)
	}
	return num / den, nil
}

// SurvivalCurve is a right continuous step function estimated by Kaplan-Meier
type SurvivalCurve struct {
	Times    []float64
	Survival []float64
}

// KaplanMeier estimates the survival function of the failure times. With censoring set, the
// roles are reversed and the curve estimates the probability of remaining uncensored.
func KaplanMeier(time, event []float64, censoring bool) *SurvivalCurve {
	idx := make([]int, 0, len(time))
	for i := range time {
		if math.IsNaN(time[i]) || math.IsNaN(event[i]) {
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return time[idx[a]] < time[idx[b]]
	})

	curve := &SurvivalCurve{}
	atRisk := len(idx)
	surv := 1.0
	for start := 0; start < len(idx); {
		t := time[idx[start]]
		end := start
		var d int
		for end < len(idx) && time[idx[end]] == t {
			observed := event[idx[end]] == 1
			if observed != censoring {
				d++
			}
			end++
		}
		if d > 0 {
			surv *= 1.0 - float64(d)/float64(atRisk)
			curve.Times = append(curve.Times, t)
			curve.Survival = append(curve.Survival, surv)
		}
		atRisk -= end - start
		start = end
	}
	return curve
}

// At returns the survival probability at t
func (s *SurvivalCurve) At(t float64) float64 {
	k := sort.Search(len(s.Times), func(i int) bool { return s.Times[i] > t })
	if k == 0 {
		return 1.0
	}
	return s.Survival[k-1]
}

// Before returns the left limit of the survival probability at t
func (s *SurvivalCurve) Before(t float64) float64 {
	k := sort.SearchFloat64s(s.Times, t)
	if k == 0 {
		return 1.0
	}
	return s.Survival[k-1]
}
