package model

import (
	"fmt"
	"sort"

	"github.com/oddsmill/oddsmill/internal/sampler"
	"github.com/oddsmill/oddsmill/internal/schema"
)

// Fitted wraps one fit result: posterior draws keyed by coefficient name,
// the encoding they were fit under, and the sampler diagnostics. Immutable
// after construction; used only for summarization and prediction.
type Fitted struct {
	kind  sampler.FormulaKind
	codec *schema.Codec
	draws map[string][]float64
	ndraw int
	diag  sampler.Diagnostics
}

// New builds a Fitted from a fit response. All coefficient draw slices must
// have the same nonzero length.
func New(kind sampler.FormulaKind, codec *schema.Codec, resp *sampler.FitResponse) (*Fitted, error) {
	if codec == nil {
		return nil, fmt.Errorf("fitted: codec is required")
	}
	if err := codec.Validate(); err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Draws) == 0 {
		return nil, fmt.Errorf("fitted: no posterior draws")
	}
	ndraw := -1
	draws := make(map[string][]float64, len(resp.Draws))
	for name, d := range resp.Draws {
		if len(d) == 0 {
			return nil, fmt.Errorf("fitted: coefficient %q has no draws", name)
		}
		if ndraw == -1 {
			ndraw = len(d)
		} else if len(d) != ndraw {
			return nil, fmt.Errorf("fitted: coefficient %q has %d draws, others have %d", name, len(d), ndraw)
		}
		cp := make([]float64, len(d))
		copy(cp, d)
		draws[name] = cp
	}
	return &Fitted{kind: kind, codec: codec, draws: draws, ndraw: ndraw, diag: resp.Diagnostics}, nil
}

// Kind returns the formula variant this model was fit with.
func (f *Fitted) Kind() sampler.FormulaKind { return f.kind }

// Diagnostics returns the sampler diagnostics reported with the fit.
func (f *Fitted) Diagnostics() sampler.Diagnostics { return f.diag }

// Coefficients returns coefficient names in sorted order.
func (f *Fitted) Coefficients() []string {
	names := make([]string, 0, len(f.draws))
	for n := range f.draws {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Draws returns a copy of the posterior draws for one coefficient. The
// second result is false if the coefficient is unknown. Read-only accessor
// for reporting/plotting collaborators.
func (f *Fitted) Draws(name string) ([]float64, bool) {
	d, ok := f.draws[name]
	if !ok {
		return nil, false
	}
	cp := make([]float64, len(d))
	copy(cp, d)
	return cp, true
}

// Summaries returns posterior summaries for every coefficient, sorted by
// name, with the central credible interval of the given mass.
func (f *Fitted) Summaries(mass float64) []Summary {
	out := make([]Summary, 0, len(f.draws))
	for _, name := range f.Coefficients() {
		out = append(out, Summarize(name, f.draws[name], mass))
	}
	return out
}

// Summary returns the posterior summary for one coefficient.
func (f *Fitted) Summary(name string, mass float64) (Summary, bool) {
	d, ok := f.draws[name]
	if !ok {
		return Summary{}, false
	}
	return Summarize(name, d, mass), true
}

// Prediction is the posterior predictive purchase probability for one
// covariate combination, summarized on the probability scale.
type Prediction struct {
	Promotion string  `json:"promotion"`
	Channel   string  `json:"channel"`
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Mass      float64 `json:"mass"`
}

// Predict computes the posterior predictive probability of purchase for the
// given covariate combination by pushing every posterior draw through the
// linear predictor and the inverse link. Baseline levels contribute no slope
// term; getting that wrong silently inverts every derived odds ratio, so the
// linear predictor is assembled only here.
func (f *Fitted) Predict(promotion, channel string, mass float64) (Prediction, error) {
	if !f.codec.Promotion.Contains(promotion) {
		return Prediction{}, &PredictionDomainError{Field: f.codec.Promotion.Field(), Value: promotion}
	}
	if !f.codec.Channel.Contains(channel) {
		return Prediction{}, &PredictionDomainError{Field: f.codec.Channel.Field(), Value: channel}
	}
	terms, err := f.terms(promotion, channel)
	if err != nil {
		return Prediction{}, err
	}
	probs := make([]float64, f.ndraw)
	for i := 0; i < f.ndraw; i++ {
		eta := 0.0
		for _, t := range terms {
			eta += t[i]
		}
		probs[i] = Sigmoid(eta)
	}
	s := Summarize("", probs, mass)
	return Prediction{
		Promotion: promotion,
		Channel:   channel,
		Mean:      s.Mean,
		Median:    s.Median,
		Lower:     s.Lower,
		Upper:     s.Upper,
		Mass:      s.Mass,
	}, nil
}

// terms collects the draw vectors whose sum is the linear predictor for the
// covariate combination under this model's formula structure.
func (f *Fitted) terms(promotion, channel string) ([][]float64, error) {
	promoBase := promotion == f.codec.Promotion.Baseline()
	chanBase := channel == f.codec.Channel.Baseline()

	var names []string
	switch f.kind {
	case sampler.FormulaInterceptOnly:
		names = []string{sampler.CoefIntercept}
	case sampler.FormulaPromotion:
		names = []string{sampler.CoefIntercept}
		if !promoBase {
			names = append(names, sampler.CoefPromotion(promotion))
		}
	case sampler.FormulaInteraction:
		names = []string{sampler.CoefIntercept}
		if !promoBase {
			names = append(names, sampler.CoefPromotion(promotion))
		}
		if !chanBase {
			names = append(names, sampler.CoefChannel(channel))
		}
		if !promoBase && !chanBase {
			names = append(names, sampler.CoefInteraction(promotion, channel))
		}
	case sampler.FormulaMultilevel:
		names = []string{sampler.CoefGroupIntercept(channel)}
		if !promoBase {
			names = append(names, sampler.CoefGroupSlope(channel, promotion))
		}
	default:
		return nil, fmt.Errorf("predict: unknown formula kind %q", f.kind)
	}

	terms := make([][]float64, 0, len(names))
	for _, n := range names {
		d, ok := f.draws[n]
		if !ok {
			return nil, &MissingCoefficientError{Name: n}
		}
		terms = append(terms, d)
	}
	return terms, nil
}
