package aggregate

import (
	"github.com/oddsmill/oddsmill/internal/schema"
)

// Cell is the binomial aggregate for one observed (promotion, channel)
// combination: Trials contacts, Successes purchases.
type Cell struct {
	Promotion string `json:"promotion"`
	Channel   string `json:"channel"`
	Trials    int    `json:"trials"`
	Successes int    `json:"successes"`
}

// Rate returns the empirical purchase rate for the cell.
func (c Cell) Rate() float64 {
	if c.Trials == 0 {
		return 0
	}
	return float64(c.Successes) / float64(c.Trials)
}

// FactorCell is a single-factor aggregate used for exploratory summaries.
type FactorCell struct {
	Level     string `json:"level"`
	Trials    int    `json:"trials"`
	Successes int    `json:"successes"`
}

// Rate returns the empirical purchase rate for the factor level.
func (c FactorCell) Rate() float64 {
	if c.Trials == 0 {
		return 0
	}
	return float64(c.Successes) / float64(c.Trials)
}

type counts struct {
	trials    int
	successes int
}

// Cross collapses contact records into one Cell per observed
// (promotion, channel) combination. Output order follows the declared level
// order (promotion outer, channel inner), so the result is identical for any
// permutation of the input. Combinations with zero trials are not emitted.
// The conservation invariants are checked before returning; a violation means
// an upstream encoding bug and surfaces as *InvariantError.
func Cross(records []schema.ContactRecord, codec *schema.Codec) ([]Cell, error) {
	type key struct{ promo, channel string }
	acc := map[key]*counts{}
	purchases := 0
	for _, r := range records {
		k := key{r.Promotion, r.Channel}
		c := acc[k]
		if c == nil {
			c = &counts{}
			acc[k] = c
		}
		c.trials++
		if r.Purchased {
			c.successes++
			purchases++
		}
	}
	out := make([]Cell, 0, len(acc))
	for _, p := range codec.Promotion.Levels() {
		for _, ch := range codec.Channel.Levels() {
			c := acc[key{p, ch}]
			if c == nil {
				continue
			}
			out = append(out, Cell{Promotion: p, Channel: ch, Trials: c.trials, Successes: c.successes})
		}
	}
	if err := checkInvariants(out, len(records), purchases); err != nil {
		return nil, err
	}
	return out, nil
}

// ByPromotion aggregates by the promotion factor only.
func ByPromotion(records []schema.ContactRecord, codec *schema.Codec) []FactorCell {
	return byFactor(records, codec.Promotion, func(r schema.ContactRecord) string { return r.Promotion })
}

// ByChannel aggregates by the channel factor only.
func ByChannel(records []schema.ContactRecord, codec *schema.Codec) []FactorCell {
	return byFactor(records, codec.Channel, func(r schema.ContactRecord) string { return r.Channel })
}

func byFactor(records []schema.ContactRecord, enc *schema.Encoding, level func(schema.ContactRecord) string) []FactorCell {
	acc := map[string]*counts{}
	for _, r := range records {
		l := level(r)
		c := acc[l]
		if c == nil {
			c = &counts{}
			acc[l] = c
		}
		c.trials++
		if r.Purchased {
			c.successes++
		}
	}
	out := make([]FactorCell, 0, len(acc))
	for _, l := range enc.Levels() {
		c := acc[l]
		if c == nil {
			continue
		}
		out = append(out, FactorCell{Level: l, Trials: c.trials, Successes: c.successes})
	}
	return out
}

func checkInvariants(cells []Cell, records, purchases int) error {
	trials, successes := 0, 0
	for _, c := range cells {
		if c.Successes < 0 || c.Successes > c.Trials {
			return &InvariantError{Detail: "cell successes outside [0, trials]", Cell: &c}
		}
		trials += c.Trials
		successes += c.Successes
	}
	if trials != records {
		return &InvariantError{Detail: "sum of trials does not equal record count"}
	}
	if successes != purchases {
		return &InvariantError{Detail: "sum of successes does not equal purchase count"}
	}
	return nil
}
