package model

import "math"

// Sigmoid is the inverse logit link: p = 1 / (1 + exp(-x)). Evaluated in a
// numerically stable form so large |x| does not overflow.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Logit maps a probability to the log-odds scale: log(p / (1-p)).
func Logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// OddsRatio converts a log-odds-scale coefficient to an odds ratio.
func OddsRatio(coef float64) float64 {
	return math.Exp(coef)
}
