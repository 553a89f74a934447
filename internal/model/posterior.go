package model

import (
	"math"
	"sort"
)

// Summary describes one coefficient's posterior: median, mean, and the
// central credible interval of the given Mass (e.g. 0.89 for the central 89%
// interval).
type Summary struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Mass   float64 `json:"mass"`
}

// Width returns the credible interval width, a rough identifiability signal:
// a prior-dominated coefficient shows a much wider interval than an
// identified one under the same prior.
func (s Summary) Width() float64 { return s.Upper - s.Lower }

// Summarize computes the posterior summary for one named coefficient from
// its draws. mass outside (0,1) falls back to 0.89.
func Summarize(name string, draws []float64, mass float64) Summary {
	if mass <= 0 || mass >= 1 {
		mass = 0.89
	}
	s := Summary{Name: name, Mass: mass}
	if len(draws) == 0 {
		return s
	}
	cp := make([]float64, len(draws))
	copy(cp, draws)
	sort.Float64s(cp)
	var sum float64
	for _, v := range cp {
		sum += v
	}
	s.Mean = sum / float64(len(cp))
	s.Median = quantile(cp, 0.5)
	tail := (1 - mass) / 2
	s.Lower = quantile(cp, tail)
	s.Upper = quantile(cp, 1-tail)
	return s
}

// quantile interpolates the q-th quantile of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
