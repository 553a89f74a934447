package compare

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/oddsmill/oddsmill/internal/model"
	"github.com/oddsmill/oddsmill/internal/sampler"
	"github.com/oddsmill/oddsmill/internal/schema"
)

// spreadDraws produces 9 draws centered (and medianed) on center with the
// given symmetric spread.
func spreadDraws(center, spread float64) []float64 {
	offsets := []float64{-1, -0.75, -0.5, -0.25, 0, 0.25, 0.5, 0.75, 1}
	out := make([]float64, len(offsets))
	for i, o := range offsets {
		out[i] = center + o*spread
	}
	return out
}

// stubService reproduces each cell's empirical log-odds exactly, so the
// interaction and multilevel variants agree on every observed cell.
// Coefficients that no observed cell identifies get wide prior-scale draws
// centered on zero.
type stubService struct {
	fail map[sampler.FormulaKind]error
	reqs []sampler.FitRequest
}

func (s *stubService) Fit(_ context.Context, req sampler.FitRequest) (*sampler.FitResponse, error) {
	s.reqs = append(s.reqs, req)
	if err := s.fail[req.Formula]; err != nil {
		return nil, err
	}
	logit := map[[2]string]float64{}
	for _, c := range req.Cells {
		r := c.Rate()
		if r <= 0 {
			r = 0.01
		}
		if r >= 1 {
			r = 0.99
		}
		logit[[2]string{c.Promotion, c.Channel}] = model.Logit(r)
	}
	ident := func(p, ch string) (float64, bool) {
		v, ok := logit[[2]string{p, ch}]
		return v, ok
	}
	basePromo, baseChan := req.PromotionLevels[0], req.ChannelLevels[0]
	narrow, wide := 0.05, 2.0
	draws := map[string][]float64{}
	term := func(name string, v float64, identified bool) {
		if identified {
			draws[name] = spreadDraws(v, narrow)
		} else {
			draws[name] = spreadDraws(0, wide)
		}
	}

	switch req.Formula {
	case sampler.FormulaPromotion:
		// Pool channels per promotion level.
		pool := func(p string) (float64, bool) {
			tr, su := 0, 0
			for _, c := range req.Cells {
				if c.Promotion == p {
					tr += c.Trials
					su += c.Successes
				}
			}
			if tr == 0 || su == 0 || su == tr {
				return 0, false
			}
			return model.Logit(float64(su) / float64(tr)), true
		}
		b0, ok0 := pool(basePromo)
		term(sampler.CoefIntercept, b0, ok0)
		for _, p := range req.PromotionLevels[1:] {
			bp, ok := pool(p)
			term(sampler.CoefPromotion(p), bp-b0, ok0 && ok)
		}
	case sampler.FormulaInteraction:
		b0, ok0 := ident(basePromo, baseChan)
		term(sampler.CoefIntercept, b0, ok0)
		promoEff := map[string]float64{}
		for _, p := range req.PromotionLevels[1:] {
			v, ok := ident(p, baseChan)
			promoEff[p] = v - b0
			term(sampler.CoefPromotion(p), v-b0, ok0 && ok)
		}
		for _, ch := range req.ChannelLevels[1:] {
			vc, okc := ident(basePromo, ch)
			term(sampler.CoefChannel(ch), vc-b0, ok0 && okc)
			for _, p := range req.PromotionLevels[1:] {
				v, ok := ident(p, ch)
				term(sampler.CoefInteraction(p, ch), v-b0-promoEff[p]-(vc-b0), ok0 && okc && ok)
			}
		}
	case sampler.FormulaMultilevel:
		for _, ch := range req.ChannelLevels {
			v0, ok0 := ident(basePromo, ch)
			term(sampler.CoefGroupIntercept(ch), v0, ok0)
			for _, p := range req.PromotionLevels[1:] {
				v, ok := ident(p, ch)
				term(sampler.CoefGroupSlope(ch, p), v-v0, ok0 && ok)
			}
		}
		draws[sampler.CoefGroupSD("Intercept")] = spreadDraws(0.8, 0.1)
	default:
		return nil, errors.New("stub: unsupported formula")
	}

	rhat := map[string]float64{}
	for name := range draws {
		rhat[name] = 1.0
	}
	return &sampler.FitResponse{
		ID:          "stub-" + string(req.Formula),
		Draws:       draws,
		Diagnostics: sampler.Diagnostics{RHat: rhat, Divergences: 0},
	}, nil
}

func records(n, purchased int, promo, channel string) []schema.ContactRecord {
	out := make([]schema.ContactRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, schema.ContactRecord{Purchased: i < purchased, Promotion: promo, Channel: channel})
	}
	return out
}

func fullDataset() []schema.ContactRecord {
	var recs []schema.ContactRecord
	recs = append(recs, records(200, 50, "NoBundle", "Mail")...)
	recs = append(recs, records(180, 80, "Bundle", "Mail")...)
	recs = append(recs, records(150, 90, "NoBundle", "Park")...)
	recs = append(recs, records(160, 120, "Bundle", "Park")...)
	recs = append(recs, records(210, 20, "NoBundle", "Email")...)
	recs = append(recs, records(190, 110, "Bundle", "Email")...)
	return recs
}

func newTestDriver(svc sampler.Service) *Driver {
	cfg := sampler.Config{Iterations: 2000, Warmup: 1000, Chains: 4, Seed: 1234, AdaptDelta: 0.8}
	return NewDriver(svc, schema.DefaultCodec(), sampler.DefaultPrior(), cfg, 0.89)
}

func TestRunFitsThreeVariantsOnSameCells(t *testing.T) {
	svc := &stubService{}
	comp, err := newTestDriver(svc).Run(context.Background(), fullDataset())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(comp.Models) != 3 {
		t.Fatalf("got %d models, want 3", len(comp.Models))
	}
	for i, kind := range Variants {
		if comp.Models[i].Kind != kind {
			t.Fatalf("model %d kind = %s, want %s", i, comp.Models[i].Kind, kind)
		}
	}
	if len(svc.reqs) != 3 {
		t.Fatalf("got %d fit requests, want 3", len(svc.reqs))
	}
	for _, req := range svc.reqs {
		if len(req.Cells) != 6 {
			t.Fatalf("fit request has %d cells, want 6", len(req.Cells))
		}
		if req.Prior != sampler.DefaultPrior() {
			t.Fatalf("prior not shared across fits: %+v", req.Prior)
		}
		if req.PromotionLevels[0] != "NoBundle" || req.ChannelLevels[0] != "Mail" {
			t.Fatalf("baselines drifted: %v %v", req.PromotionLevels, req.ChannelLevels)
		}
	}
	if len(comp.Predictions) != 6 {
		t.Fatalf("got %d predictions, want 6", len(comp.Predictions))
	}
}

func TestBaselineInterceptCoversEmpiricalLogOdds(t *testing.T) {
	svc := &stubService{}
	comp, err := newTestDriver(svc).Run(context.Background(), fullDataset())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var baseline *ModelResult
	for i := range comp.Models {
		if comp.Models[i].Kind == sampler.FormulaPromotion {
			baseline = &comp.Models[i]
		}
	}
	if baseline == nil {
		t.Fatalf("baseline model missing")
	}
	s, ok := baseline.Fitted.Summary(sampler.CoefIntercept, comp.Mass)
	if !ok {
		t.Fatalf("intercept summary missing")
	}
	// Empirical pooled NoBundle log-odds: 160 purchases of 560 contacts.
	empirical := model.Logit(160.0 / 560.0)
	if empirical < s.Lower || empirical > s.Upper {
		t.Fatalf("empirical log-odds %v outside intercept CI [%v, %v]", empirical, s.Lower, s.Upper)
	}
}

func TestCrossModelPredictionAgreement(t *testing.T) {
	svc := &stubService{}
	comp, err := newTestDriver(svc).Run(context.Background(), fullDataset())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, p := range comp.Predictions {
		inter, ok1 := p.ByModel[sampler.FormulaInteraction]
		multi, ok2 := p.ByModel[sampler.FormulaMultilevel]
		if !ok1 || !ok2 {
			t.Fatalf("missing model predictions for %s/%s", p.Promotion, p.Channel)
		}
		if diff := math.Abs(inter.Median - multi.Median); diff > 0.05 {
			t.Fatalf("%s/%s: interaction %.3f vs multilevel %.3f differ by %.3f (> 5pp)",
				p.Promotion, p.Channel, inter.Median, multi.Median, diff)
		}
	}
}

func TestPredictionMatchesEmpiricalRate(t *testing.T) {
	svc := &stubService{}
	comp, err := newTestDriver(svc).Run(context.Background(), fullDataset())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	pred, err := comp.Predict(sampler.FormulaInteraction, "Bundle", "Email")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	want := 110.0 / 190.0
	if math.Abs(pred.Median-want) > 1e-9 {
		t.Fatalf("Bundle/Email median = %v, want empirical %v", pred.Median, want)
	}
}

func TestRunWithMissingCellDoesNotFail(t *testing.T) {
	var recs []schema.ContactRecord
	recs = append(recs, records(200, 50, "NoBundle", "Mail")...)
	recs = append(recs, records(180, 80, "Bundle", "Mail")...)
	recs = append(recs, records(150, 90, "NoBundle", "Park")...)
	recs = append(recs, records(160, 120, "Bundle", "Park")...)
	recs = append(recs, records(210, 20, "NoBundle", "Email")...)
	// No (Bundle, Email) contacts at all.

	svc := &stubService{}
	comp, err := newTestDriver(svc).Run(context.Background(), recs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(comp.Cells) != 5 {
		t.Fatalf("got %d cells, want 5", len(comp.Cells))
	}

	var inter *ModelResult
	for i := range comp.Models {
		if comp.Models[i].Kind == sampler.FormulaInteraction {
			inter = &comp.Models[i]
		}
	}
	if inter == nil {
		t.Fatalf("interaction model missing")
	}
	unident, ok := inter.Fitted.Summary(sampler.CoefInteraction("Bundle", "Email"), comp.Mass)
	if !ok {
		t.Fatalf("unidentified coefficient absent from fit")
	}
	identified, ok := inter.Fitted.Summary(sampler.CoefPromotion("Bundle"), comp.Mass)
	if !ok {
		t.Fatalf("identified coefficient absent from fit")
	}
	if unident.Width() <= identified.Width() {
		t.Fatalf("prior-dominated interval width %v not wider than identified %v", unident.Width(), identified.Width())
	}

	for _, p := range comp.Predictions {
		if p.Promotion == "Bundle" && p.Channel == "Email" {
			if p.Observed {
				t.Fatalf("Bundle/Email should be flagged unobserved")
			}
			return
		}
	}
	t.Fatalf("Bundle/Email prediction missing")
}

func TestRunPropagatesFitError(t *testing.T) {
	boom := errors.New("chains diverged hard")
	svc := &stubService{fail: map[sampler.FormulaKind]error{sampler.FormulaMultilevel: boom}}
	_, err := newTestDriver(svc).Run(context.Background(), fullDataset())
	var fe *sampler.FitError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *sampler.FitError, got %v", err)
	}
	if fe.Formula != sampler.FormulaMultilevel || !errors.Is(err, boom) {
		t.Fatalf("fit error lost context: %v", err)
	}
}

func TestMarkdownReport(t *testing.T) {
	svc := &stubService{}
	comp, err := newTestDriver(svc).Run(context.Background(), fullDataset())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out := comp.Markdown()
	for _, want := range []string{
		"[CONTACTS]",
		"[BY PROMOTION]",
		"[BY CHANNEL]",
		"[CELLS]",
		"[MODEL promotion]",
		"[MODEL interaction]",
		"[MODEL multilevel_channel]",
		"[PREDICTED PURCHASE PROBABILITY, 89% CI]",
		"OR ",
		"divergences=0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestComparisonPredictUnknownVariant(t *testing.T) {
	svc := &stubService{}
	comp, err := newTestDriver(svc).Run(context.Background(), fullDataset())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := comp.Predict(sampler.FormulaInterceptOnly, "Bundle", "Mail"); err == nil {
		t.Fatalf("expected error for variant not fitted")
	}
}
