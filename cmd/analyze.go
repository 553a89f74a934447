package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oddsmill/oddsmill/internal/compare"
	"github.com/oddsmill/oddsmill/internal/dataset"
)

var (
	anaOutcomeCol   string
	anaPromotionCol string
	anaChannelCol   string
	anaDelimiter    string
)

// parseDelimiter maps a flag value to a CSV separator rune. Accepts a single
// character, or "tab"/"\t" for TSV input.
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", "\\t", "\t":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character or \"tab\"", s)
	}
	return r[0], nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file-or-url>",
	Short: "Aggregate a contact CSV and summarize purchase rates per factor",
	Example: `  oddsmill analyze ./season_pass.csv
  oddsmill analyze https://example.com/data/season_pass.csv
  oddsmill analyze ./contacts.csv --outcome-column Bought --promotion-column Offer`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		codec, err := c.Codec()
		if err != nil {
			return err
		}
		opt := dataset.Options{
			OutcomeColumn:   c.OutcomeColumn,
			PromotionColumn: c.PromotionColumn,
			ChannelColumn:   c.ChannelColumn,
			HTTPTimeout:     c.HTTPTimeout(),
		}
		if anaOutcomeCol != "" {
			opt.OutcomeColumn = anaOutcomeCol
		}
		if anaPromotionCol != "" {
			opt.PromotionColumn = anaPromotionCol
		}
		if anaChannelCol != "" {
			opt.ChannelColumn = anaChannelCol
		}
		if opt.Delimiter, err = parseDelimiter(anaDelimiter); err != nil {
			return err
		}

		rows, err := dataset.Load(cmd.Context(), args[0], opt)
		if err != nil {
			return err
		}
		records, err := codec.Normalize(rows)
		if err != nil {
			return err
		}
		comp, err := compare.Describe(records, codec, c.CredibleMass)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), comp.Markdown())
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&anaOutcomeCol, "outcome-column", "", "CSV column holding the purchase outcome (overrides config)")
	analyzeCmd.Flags().StringVar(&anaPromotionCol, "promotion-column", "", "CSV column holding the promotion label (overrides config)")
	analyzeCmd.Flags().StringVar(&anaChannelCol, "channel-column", "", "CSV column holding the contact channel (overrides config)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV field separator, a single character or \"tab\" (default comma)")
	rootCmd.AddCommand(analyzeCmd)
}
