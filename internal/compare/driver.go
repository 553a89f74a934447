package compare

import (
	"context"

	"github.com/oddsmill/oddsmill/internal/aggregate"
	"github.com/oddsmill/oddsmill/internal/model"
	"github.com/oddsmill/oddsmill/internal/sampler"
	"github.com/oddsmill/oddsmill/internal/schema"
)

// Variants lists the three progressively richer model structures the driver
// fits, in reporting order.
var Variants = []sampler.FormulaKind{
	sampler.FormulaPromotion,
	sampler.FormulaInteraction,
	sampler.FormulaMultilevel,
}

// Driver orchestrates the three-model comparison: same aggregated cells,
// same prior family, one fit per formula variant, then side-by-side
// predictions for every declared covariate combination.
type Driver struct {
	svc   sampler.Service
	codec *schema.Codec
	prior sampler.PriorSpec
	cfg   sampler.Config
	mass  float64
}

// NewDriver wires a driver to a fitting service. mass is the central
// credible interval mass used in all summaries (0.89 when out of range).
func NewDriver(svc sampler.Service, codec *schema.Codec, prior sampler.PriorSpec, cfg sampler.Config, mass float64) *Driver {
	if mass <= 0 || mass >= 1 {
		mass = 0.89
	}
	return &Driver{svc: svc, codec: codec, prior: prior, cfg: cfg, mass: mass}
}

// Describe aggregates records without fitting anything: the exploratory
// half of the pipeline, shared by the analyze command and Run.
func Describe(records []schema.ContactRecord, codec *schema.Codec, mass float64) (*Comparison, error) {
	cells, err := aggregate.Cross(records, codec)
	if err != nil {
		return nil, err
	}
	if mass <= 0 || mass >= 1 {
		mass = 0.89
	}
	return &Comparison{
		Records:     len(records),
		ByPromotion: aggregate.ByPromotion(records, codec),
		ByChannel:   aggregate.ByChannel(records, codec),
		Cells:       cells,
		Mass:        mass,
	}, nil
}

// ModelResult is one fitted variant plus its coefficient summaries.
type ModelResult struct {
	Kind        sampler.FormulaKind `json:"kind"`
	FitID       string              `json:"fit_id"`
	Summaries   []model.Summary     `json:"summaries"`
	Diagnostics sampler.Diagnostics `json:"diagnostics"`
	Fitted      *model.Fitted       `json:"-"`
}

// CellPrediction is the per-model predicted purchase probability for one
// declared (promotion, channel) combination. Observed is false when the
// combination had zero trials; such predictions rest entirely on the prior
// and are flagged, not suppressed.
type CellPrediction struct {
	Promotion string                                   `json:"promotion"`
	Channel   string                                   `json:"channel"`
	Observed  bool                                     `json:"observed"`
	ByModel   map[sampler.FormulaKind]model.Prediction `json:"by_model"`
}

// Comparison is the full output of one pipeline run.
type Comparison struct {
	Records     int                    `json:"records"`
	ByPromotion []aggregate.FactorCell `json:"by_promotion"`
	ByChannel   []aggregate.FactorCell `json:"by_channel"`
	Cells       []aggregate.Cell       `json:"cells"`
	Models      []ModelResult          `json:"models"`
	Predictions []CellPrediction       `json:"predictions"`
	Mass        float64                `json:"mass"`
}

// Run aggregates the records and fits the three variants in sequence. The
// fits are mutually independent; sequencing just keeps sampler load
// predictable. A failed fit aborts the run with a *sampler.FitError.
func (d *Driver) Run(ctx context.Context, records []schema.ContactRecord) (*Comparison, error) {
	comp, err := Describe(records, d.codec, d.mass)
	if err != nil {
		return nil, err
	}
	cells := comp.Cells

	for _, kind := range Variants {
		req := sampler.FitRequest{
			Formula:         kind,
			PromotionLevels: d.codec.Promotion.Levels(),
			ChannelLevels:   d.codec.Channel.Levels(),
			Cells:           cells,
			Prior:           d.prior,
			Sampler:         d.cfg,
		}
		resp, err := d.svc.Fit(ctx, req)
		if err != nil {
			return nil, &sampler.FitError{Formula: kind, Err: err}
		}
		fitted, err := model.New(kind, d.codec, resp)
		if err != nil {
			return nil, &sampler.FitError{Formula: kind, Err: err}
		}
		comp.Models = append(comp.Models, ModelResult{
			Kind:        kind,
			FitID:       resp.ID,
			Summaries:   fitted.Summaries(d.mass),
			Diagnostics: resp.Diagnostics,
			Fitted:      fitted,
		})
	}

	observed := make(map[[2]string]bool, len(cells))
	for _, c := range cells {
		observed[[2]string{c.Promotion, c.Channel}] = true
	}
	for _, p := range d.codec.Promotion.Levels() {
		for _, ch := range d.codec.Channel.Levels() {
			cp := CellPrediction{
				Promotion: p,
				Channel:   ch,
				Observed:  observed[[2]string{p, ch}],
				ByModel:   make(map[sampler.FormulaKind]model.Prediction, len(comp.Models)),
			}
			for _, m := range comp.Models {
				pred, err := m.Fitted.Predict(p, ch, d.mass)
				if err != nil {
					return nil, &sampler.FitError{Formula: m.Kind, Err: err}
				}
				cp.ByModel[m.Kind] = pred
			}
			comp.Predictions = append(comp.Predictions, cp)
		}
	}
	return comp, nil
}

// Predict returns one covariate combination's predicted probability under a
// previously fitted variant, for callers that want combinations beyond the
// declared cross (the encodings still bound the domain).
func (c *Comparison) Predict(kind sampler.FormulaKind, promotion, channel string) (model.Prediction, error) {
	for _, m := range c.Models {
		if m.Kind == kind {
			return m.Fitted.Predict(promotion, channel, c.Mass)
		}
	}
	return model.Prediction{}, &sampler.FitError{Formula: kind, Err: errNotFitted}
}

var errNotFitted = notFittedError{}

type notFittedError struct{}

func (notFittedError) Error() string { return "variant not fitted in this comparison" }
