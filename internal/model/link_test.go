package model

import (
	"math"
	"testing"
)

func TestLogitSigmoidRoundTrip(t *testing.T) {
	for _, x := range []float64{-6, -2.5, -0.191, 0, 0.3, 1, 4.75, 8} {
		got := Logit(Sigmoid(x))
		if math.Abs(got-x) > 1e-9 {
			t.Fatalf("logit(sigmoid(%v)) = %v, diff %v exceeds 1e-9", x, got, math.Abs(got-x))
		}
	}
}

func TestSigmoidBounds(t *testing.T) {
	cases := []struct {
		x    float64
		want float64
	}{
		{0, 0.5},
		{math.Inf(1), 1},
		{math.Inf(-1), 0},
	}
	for _, tc := range cases {
		if got := Sigmoid(tc.x); got != tc.want {
			t.Fatalf("sigmoid(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}
	if p := Sigmoid(700); p <= 0.999 || p > 1 || math.IsNaN(p) {
		t.Fatalf("sigmoid(700) = %v", p)
	}
	if p := Sigmoid(-700); p < 0 || p >= 0.001 || math.IsNaN(p) {
		t.Fatalf("sigmoid(-700) = %v", p)
	}
}

func TestOddsRatioIdentity(t *testing.T) {
	pairs := [][2]float64{{0.4, -0.2}, {1.7, 1.7}, {-3, 0.25}, {0, 2}}
	for _, p := range pairs {
		a, b := p[0], p[1]
		lhs := OddsRatio(a) / OddsRatio(b)
		rhs := OddsRatio(a - b)
		if math.Abs(lhs-rhs) > 1e-9*math.Abs(rhs) {
			t.Fatalf("exp(%v)/exp(%v) = %v, exp(%v-%v) = %v", a, b, lhs, a, b, rhs)
		}
	}
}

func TestLogitMatchesEmpiricalOdds(t *testing.T) {
	// log(p/(1-p)) for p = 670/1482 must equal log(670/812) exactly.
	p := 670.0 / 1482.0
	if got, want := Logit(p), math.Log(670.0/812.0); math.Abs(got-want) > 1e-12 {
		t.Fatalf("logit(%v) = %v, want %v", p, got, want)
	}
}
