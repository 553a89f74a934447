package compare

import (
	"fmt"
	"strings"

	"github.com/oddsmill/oddsmill/internal/aggregate"
	"github.com/oddsmill/oddsmill/internal/model"
	"github.com/oddsmill/oddsmill/internal/sampler"
)

// Markdown renders the comparison as a compact report suitable for a
// terminal or a standalone doc.
func (c *Comparison) Markdown() string {
	var b strings.Builder
	b.WriteString("[CONTACTS]\n")
	b.WriteString(fmt.Sprintf("Records: %d\n", c.Records))
	b.WriteString("\n[BY PROMOTION]\n")
	writeFactor(&b, c.ByPromotion)
	b.WriteString("\n[BY CHANNEL]\n")
	writeFactor(&b, c.ByChannel)

	b.WriteString("\n[CELLS]\n")
	for _, cell := range c.Cells {
		b.WriteString(fmt.Sprintf("- %s / %s: %d of %d purchased (rate %.3f, log-odds %s)\n",
			cell.Promotion, cell.Channel, cell.Successes, cell.Trials, cell.Rate(), logOddsLabel(cell.Rate())))
	}

	ciPct := c.Mass * 100
	for _, m := range c.Models {
		b.WriteString(fmt.Sprintf("\n[MODEL %s]\n", m.Kind))
		for _, s := range m.Summaries {
			line := fmt.Sprintf("- %s: median %.3f, %.0f%% CI [%.3f, %.3f]", s.Name, s.Median, ciPct, s.Lower, s.Upper)
			if !strings.HasPrefix(s.Name, "sd(") {
				line += fmt.Sprintf(", OR %.3f", model.OddsRatio(s.Median))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		name, worst := m.Diagnostics.WorstRHat()
		b.WriteString(fmt.Sprintf("- diagnostics: divergences=%d", m.Diagnostics.Divergences))
		if name != "" {
			b.WriteString(fmt.Sprintf(", worst R-hat %.3f (%s)", worst, name))
		}
		b.WriteString("\n")
		if m.Diagnostics.Divergences > 0 || worst > 1.05 {
			b.WriteString("  ⚠ poor mixing or divergent transitions; estimates above should not be trusted as-is. Consider raising --adapt-delta or --iter and refitting.\n")
		}
	}

	if len(c.Predictions) > 0 {
		b.WriteString(fmt.Sprintf("\n[PREDICTED PURCHASE PROBABILITY, %.0f%% CI]\n", ciPct))
		for _, p := range c.Predictions {
			b.WriteString(fmt.Sprintf("- %s / %s:", p.Promotion, p.Channel))
			for _, kind := range Variants {
				pred, ok := p.ByModel[kind]
				if !ok {
					continue
				}
				b.WriteString(fmt.Sprintf(" %s=%.3f [%.3f, %.3f]", shortName(kind), pred.Median, pred.Lower, pred.Upper))
			}
			if !p.Observed {
				b.WriteString(" (unobserved cell; prior-dominated)")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeFactor(b *strings.Builder, cells []aggregate.FactorCell) {
	for _, c := range cells {
		b.WriteString(fmt.Sprintf("- %s: %d of %d purchased (rate %.3f, log-odds %s)\n",
			c.Level, c.Successes, c.Trials, c.Rate(), logOddsLabel(c.Rate())))
	}
}

// logOddsLabel formats the empirical log-odds; degenerate rates have no
// finite log-odds and print as such.
func logOddsLabel(rate float64) string {
	if rate <= 0 || rate >= 1 {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", model.Logit(rate))
}

func shortName(kind sampler.FormulaKind) string {
	switch kind {
	case sampler.FormulaInterceptOnly:
		return "intercept"
	case sampler.FormulaPromotion:
		return "baseline"
	case sampler.FormulaInteraction:
		return "interaction"
	case sampler.FormulaMultilevel:
		return "multilevel"
	default:
		return string(kind)
	}
}
