package schema

import (
	"fmt"
	"strings"
)

// Encoding is an explicit, ordered set of category levels for one factor.
// The first level is the modeling baseline. Levels are always declared by the
// caller, never inferred from data order, so coefficient interpretation stays
// stable across aggregation and every model fit.
type Encoding struct {
	field  string
	levels []string
	index  map[string]int
}

// NewEncoding builds an encoding for field from the declared levels.
// At least two distinct, non-empty levels are required.
func NewEncoding(field string, levels ...string) (*Encoding, error) {
	if strings.TrimSpace(field) == "" {
		return nil, fmt.Errorf("encoding field name cannot be empty")
	}
	if len(levels) < 2 {
		return nil, fmt.Errorf("encoding %s: need at least 2 levels, got %d", field, len(levels))
	}
	idx := make(map[string]int, len(levels))
	for i, l := range levels {
		if strings.TrimSpace(l) == "" {
			return nil, fmt.Errorf("encoding %s: level %d is empty", field, i)
		}
		if _, dup := idx[l]; dup {
			return nil, fmt.Errorf("encoding %s: duplicate level %q", field, l)
		}
		idx[l] = i
	}
	cp := make([]string, len(levels))
	copy(cp, levels)
	return &Encoding{field: field, levels: cp, index: idx}, nil
}

// MustEncoding is NewEncoding that panics on invalid declarations. Intended
// for package-level defaults where the levels are compile-time constants.
func MustEncoding(field string, levels ...string) *Encoding {
	e, err := NewEncoding(field, levels...)
	if err != nil {
		panic(err)
	}
	return e
}

// Field returns the factor name this encoding applies to.
func (e *Encoding) Field() string { return e.field }

// Baseline returns the reference level (the first declared level).
func (e *Encoding) Baseline() string { return e.levels[0] }

// Levels returns a copy of the declared level order.
func (e *Encoding) Levels() []string {
	cp := make([]string, len(e.levels))
	copy(cp, e.levels)
	return cp
}

// Index returns the position of level in the declared order.
func (e *Encoding) Index(level string) (int, bool) {
	i, ok := e.index[level]
	return i, ok
}

// Contains reports whether level is declared.
func (e *Encoding) Contains(level string) bool {
	_, ok := e.index[level]
	return ok
}

// RawRow is one un-typed input row as read from the source CSV.
type RawRow struct {
	Outcome   string
	Promotion string
	Channel   string
}

// ContactRecord is one validated customer contact event.
type ContactRecord struct {
	Purchased bool
	Promotion string
	Channel   string
}

// Codec holds the full category encoding for the contact dataset: one
// encoding per factor plus the outcome level that counts as a purchase.
type Codec struct {
	Outcome   *Encoding
	Promotion *Encoding
	Channel   *Encoding
	// Purchased is the outcome level treated as a success. Must be one of
	// Outcome's declared levels.
	Purchased string
}

// DefaultCodec returns the encoding for the season-pass contact dataset.
// Baselines: NoPass, NoBundle, Mail.
func DefaultCodec() *Codec {
	return &Codec{
		Outcome:   MustEncoding("outcome", "NoPass", "YesPass"),
		Promotion: MustEncoding("promotion", "NoBundle", "Bundle"),
		Channel:   MustEncoding("channel", "Mail", "Park", "Email"),
		Purchased: "YesPass",
	}
}

// Validate checks internal consistency of the codec.
func (c *Codec) Validate() error {
	if c.Outcome == nil || c.Promotion == nil || c.Channel == nil {
		return fmt.Errorf("codec: all three encodings must be declared")
	}
	if !c.Outcome.Contains(c.Purchased) {
		return fmt.Errorf("codec: purchased level %q not among declared outcome levels %v", c.Purchased, c.Outcome.Levels())
	}
	return nil
}

// Normalize converts raw rows into ContactRecords under the declared
// encodings. Pure transform: the input slice is not modified. The first value
// outside a declared level set aborts the batch with a *SchemaError.
func (c *Codec) Normalize(rows []RawRow) ([]ContactRecord, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := make([]ContactRecord, 0, len(rows))
	for i, r := range rows {
		outcome := strings.TrimSpace(r.Outcome)
		if !c.Outcome.Contains(outcome) {
			return nil, &SchemaError{Field: c.Outcome.Field(), Value: outcome, Row: i, Declared: c.Outcome.Levels()}
		}
		promo := strings.TrimSpace(r.Promotion)
		if !c.Promotion.Contains(promo) {
			return nil, &SchemaError{Field: c.Promotion.Field(), Value: promo, Row: i, Declared: c.Promotion.Levels()}
		}
		channel := strings.TrimSpace(r.Channel)
		if !c.Channel.Contains(channel) {
			return nil, &SchemaError{Field: c.Channel.Field(), Value: channel, Row: i, Declared: c.Channel.Levels()}
		}
		out = append(out, ContactRecord{
			Purchased: outcome == c.Purchased,
			Promotion: promo,
			Channel:   channel,
		})
	}
	return out, nil
}
