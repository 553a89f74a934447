package sampler

import (
	"github.com/oddsmill/oddsmill/internal/aggregate"
)

// FormulaKind selects which model structure the sampler service builds over
// the aggregated cells.
type FormulaKind string

const (
	// FormulaInterceptOnly fits a single population-level intercept.
	FormulaInterceptOnly FormulaKind = "intercept_only"
	// FormulaPromotion fits a population-level intercept plus one slope for
	// the promotion factor. No channel term.
	FormulaPromotion FormulaKind = "promotion"
	// FormulaInteraction fits intercept, promotion slope, channel slopes and
	// every promotion x channel interaction slope against the declared
	// baseline levels.
	FormulaInteraction FormulaKind = "interaction"
	// FormulaMultilevel fits no population-level terms; each channel group
	// gets a varying intercept and varying promotion slope, partially pooled
	// through a group-level standard deviation.
	FormulaMultilevel FormulaKind = "multilevel_channel"
)

// PriorSpec declares the zero-centered normal prior widths per coefficient
// class. Must be fixed before fitting; it determines regularization strength.
type PriorSpec struct {
	InterceptScale float64 `json:"intercept_scale"`
	SlopeScale     float64 `json:"slope_scale"`
	GroupSDScale   float64 `json:"group_sd_scale"`
}

// DefaultPrior returns the moderate-width prior family used across all three
// model variants.
func DefaultPrior() PriorSpec {
	return PriorSpec{InterceptScale: 1.0, SlopeScale: 1.0, GroupSDScale: 0.5}
}

// Config carries the sampler run parameters.
type Config struct {
	Iterations int     `json:"iterations"`
	Warmup     int     `json:"warmup"`
	Chains     int     `json:"chains"`
	Seed       int64   `json:"seed"`
	AdaptDelta float64 `json:"adapt_delta"`
}

// FitRequest is one complete fit job: formula, declared level orders (first
// level is the baseline), aggregated data, prior and sampler configuration.
type FitRequest struct {
	Formula         FormulaKind      `json:"formula"`
	PromotionLevels []string         `json:"promotion_levels"`
	ChannelLevels   []string         `json:"channel_levels"`
	Cells           []aggregate.Cell `json:"cells"`
	Prior           PriorSpec        `json:"prior"`
	Sampler         Config           `json:"sampler"`
}

// Diagnostics is what the service reports back about sampling quality.
// Surfaced to the caller and rendered in reports; never used to gate or
// retry automatically, since a rerun with the same seed reproduces the same
// geometry.
type Diagnostics struct {
	// RHat is the split R-hat mixing statistic per coefficient. Values near
	// 1.0 indicate mixed chains.
	RHat map[string]float64 `json:"rhat"`
	// Divergences counts post-warmup divergent transitions across all chains.
	Divergences int `json:"divergences"`
}

// WorstRHat returns the coefficient with the largest R-hat and its value.
func (d Diagnostics) WorstRHat() (string, float64) {
	worstName, worst := "", 0.0
	for name, v := range d.RHat {
		if v > worst {
			worstName, worst = name, v
		}
	}
	return worstName, worst
}

// FitResponse carries the posterior draws keyed by coefficient name, all
// slices of equal length (chains x post-warmup iterations), plus diagnostics.
type FitResponse struct {
	ID          string               `json:"id"`
	Draws       map[string][]float64 `json:"draws"`
	Diagnostics Diagnostics          `json:"diagnostics"`
	// RequestID echoes the X-Request-ID header, for correlating service logs.
	RequestID string `json:"-"`
}

// Coefficient naming convention shared with the sampler service. The driver
// and the prediction code assemble names with these helpers only, so a naming
// drift shows up in one place.

// CoefIntercept is the population-level intercept.
const CoefIntercept = "Intercept"

// CoefPromotion names the population-level slope for a non-baseline
// promotion level.
func CoefPromotion(level string) string { return "promotion=" + level }

// CoefChannel names the population-level slope for a non-baseline channel
// level.
func CoefChannel(level string) string { return "channel=" + level }

// CoefInteraction names the interaction slope for a non-baseline
// (promotion, channel) pair.
func CoefInteraction(promotion, channel string) string {
	return CoefPromotion(promotion) + ":" + CoefChannel(channel)
}

// CoefGroupIntercept names the varying intercept for one channel group.
func CoefGroupIntercept(channel string) string { return "channel[" + channel + "].Intercept" }

// CoefGroupSlope names the varying promotion slope for one channel group.
func CoefGroupSlope(channel, promotion string) string {
	return "channel[" + channel + "]." + CoefPromotion(promotion)
}

// CoefGroupSD names the group-level standard deviation for a varying term.
func CoefGroupSD(term string) string { return "sd(" + term + ")" }
