package schema

import (
	"errors"
	"testing"
)

func TestNewEncodingValidation(t *testing.T) {
	if _, err := NewEncoding("promotion", "NoBundle"); err == nil {
		t.Fatalf("expected error for single level")
	}
	if _, err := NewEncoding("promotion", "NoBundle", "NoBundle"); err == nil {
		t.Fatalf("expected error for duplicate level")
	}
	if _, err := NewEncoding("", "a", "b"); err == nil {
		t.Fatalf("expected error for empty field name")
	}
	e, err := NewEncoding("channel", "Mail", "Park", "Email")
	if err != nil {
		t.Fatalf("new encoding: %v", err)
	}
	if got := e.Baseline(); got != "Mail" {
		t.Fatalf("baseline = %q, want Mail", got)
	}
	if i, ok := e.Index("Email"); !ok || i != 2 {
		t.Fatalf("Index(Email) = %d,%v", i, ok)
	}
	if e.Contains("Phone") {
		t.Fatalf("Contains(Phone) should be false")
	}
}

func TestEncodingOrderIsCallerDeclared(t *testing.T) {
	// Declared order must win over alphabetical or first-seen order.
	e := MustEncoding("channel", "Park", "Email", "Mail")
	levels := e.Levels()
	want := []string{"Park", "Email", "Mail"}
	for i := range want {
		if levels[i] != want[i] {
			t.Fatalf("levels = %v, want %v", levels, want)
		}
	}
	if e.Baseline() != "Park" {
		t.Fatalf("baseline = %q, want Park", e.Baseline())
	}
}

func TestEncodingLevelsReturnsCopy(t *testing.T) {
	e := MustEncoding("promotion", "NoBundle", "Bundle")
	levels := e.Levels()
	levels[0] = "mutated"
	if e.Baseline() != "NoBundle" {
		t.Fatalf("encoding mutated through Levels() copy")
	}
}

func TestNormalize(t *testing.T) {
	c := DefaultCodec()
	rows := []RawRow{
		{Outcome: "YesPass", Promotion: "Bundle", Channel: "Email"},
		{Outcome: "NoPass", Promotion: "NoBundle", Channel: "Mail"},
		{Outcome: " YesPass ", Promotion: "NoBundle", Channel: "Park"},
	}
	recs, err := c.Normalize(rows)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if !recs[0].Purchased || recs[1].Purchased || !recs[2].Purchased {
		t.Fatalf("purchase flags wrong: %+v", recs)
	}
	if recs[2].Channel != "Park" {
		t.Fatalf("whitespace not trimmed: %+v", recs[2])
	}
}

func TestNormalizeRejectsUndeclaredLevels(t *testing.T) {
	c := DefaultCodec()
	cases := []struct {
		name string
		row  RawRow
		fld  string
	}{
		{"outcome", RawRow{Outcome: "Maybe", Promotion: "Bundle", Channel: "Mail"}, "outcome"},
		{"promotion", RawRow{Outcome: "YesPass", Promotion: "Coupon", Channel: "Mail"}, "promotion"},
		{"channel", RawRow{Outcome: "YesPass", Promotion: "Bundle", Channel: "Phone"}, "channel"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Normalize([]RawRow{{Outcome: "YesPass", Promotion: "Bundle", Channel: "Mail"}, tc.row})
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SchemaError, got %v", err)
			}
			if se.Field != tc.fld {
				t.Fatalf("field = %q, want %q", se.Field, tc.fld)
			}
			if se.Row != 1 {
				t.Fatalf("row = %d, want 1", se.Row)
			}
		})
	}
}

func TestCodecValidate(t *testing.T) {
	c := DefaultCodec()
	c.Purchased = "Definitely"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for purchased level outside outcome levels")
	}
}
