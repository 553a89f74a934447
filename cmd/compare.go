package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oddsmill/oddsmill/internal/compare"
	"github.com/oddsmill/oddsmill/internal/dataset"
	"github.com/oddsmill/oddsmill/internal/sampler"
	"github.com/oddsmill/oddsmill/internal/utils"
)

var (
	cmpIterations   int
	cmpWarmup       int
	cmpChains       int
	cmpSeed         int64
	cmpAdaptDelta   float64
	cmpPriorScale   float64
	cmpPriorSDScale float64
	cmpMass         float64
	cmpSamplerHost  string
	cmpOutputPath   string
	cmpDelimiter    string
)

var compareCmd = &cobra.Command{
	Use:   "compare <file-or-url>",
	Short: "Fit and compare baseline, interaction and multilevel models",
	Long: `compare aggregates the contact CSV, then asks the sampler service for three
fits over the same cells and prior family: a promotion-only baseline, a full
promotion x channel interaction model, and a multilevel model with varying
intercept and slope per channel. It prints coefficient summaries, odds
ratios, sampler diagnostics and side-by-side predicted purchase
probabilities.`,
	Example: `  oddsmill compare ./season_pass.csv
  oddsmill compare ./season_pass.csv --iter 4000 --chains 4 --seed 99
  oddsmill compare ./season_pass.csv --adapt-delta 0.95 --output comparison.json`,
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
		f := cmd.Flags()
		if f.Changed("iter") && cmpIterations > 0 {
			c.Iterations = cmpIterations
		}
		if f.Changed("warmup") && cmpWarmup > 0 {
			c.Warmup = cmpWarmup
		}
		if f.Changed("chains") && cmpChains > 0 {
			c.Chains = cmpChains
		}
		if f.Changed("seed") {
			c.Seed = cmpSeed
		}
		if f.Changed("adapt-delta") && cmpAdaptDelta > 0 {
			c.AdaptDelta = cmpAdaptDelta
		}
		if f.Changed("prior-scale") && cmpPriorScale > 0 {
			c.PriorInterceptScale = cmpPriorScale
			c.PriorSlopeScale = cmpPriorScale
		}
		if f.Changed("prior-sd-scale") && cmpPriorSDScale > 0 {
			c.PriorGroupSDScale = cmpPriorSDScale
		}
		if f.Changed("ci") && cmpMass > 0 && cmpMass < 1 {
			c.CredibleMass = cmpMass
		}
		host := c.SamplerHost
		if cmpSamplerHost != "" {
			host = cmpSamplerHost
		}

		opt := dataset.Options{
			OutcomeColumn:   c.OutcomeColumn,
			PromotionColumn: c.PromotionColumn,
			ChannelColumn:   c.ChannelColumn,
			HTTPTimeout:     60 * time.Second,
		}
		if opt.Delimiter, err = parseDelimiter(cmpDelimiter); err != nil {
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

		client := sampler.NewClient(
			host,
			c.HTTPTimeout(),
			c.RetryMaxAttempts,
			time.Duration(c.RetryBaseDelayMs)*time.Millisecond,
			time.Duration(c.RetryMaxDelayMs)*time.Millisecond,
		)
		driver := compare.NewDriver(client, codec, c.Prior(), c.SamplerConfig(), c.CredibleMass)

		if debug {
			fmt.Fprintf(os.Stderr, "fitting %d variants against %s (iter=%d chains=%d seed=%d)\n",
				len(compare.Variants), host, c.Iterations, c.Chains, c.Seed)
		}
		comp, err := driver.Run(cmd.Context(), records)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), comp.Markdown())

		if cmpOutputPath != "" {
			b, err := utils.PrettyJSON(comp)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(cmpOutputPath, b); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote comparison to %s\n", cmpOutputPath)
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().IntVar(&cmpIterations, "iter", 0, "sampler iterations per chain (overrides config)")
	compareCmd.Flags().IntVar(&cmpWarmup, "warmup", 0, "warmup iterations per chain (overrides config)")
	compareCmd.Flags().IntVar(&cmpChains, "chains", 0, "parallel sampling chains (overrides config)")
	compareCmd.Flags().Int64Var(&cmpSeed, "seed", 0, "random seed for the sampler (overrides config)")
	compareCmd.Flags().Float64Var(&cmpAdaptDelta, "adapt-delta", 0, "NUTS target acceptance rate (overrides config)")
	compareCmd.Flags().Float64Var(&cmpPriorScale, "prior-scale", 0, "normal prior scale for intercept and slopes (overrides config)")
	compareCmd.Flags().Float64Var(&cmpPriorSDScale, "prior-sd-scale", 0, "normal prior scale for group-level SD (overrides config)")
	compareCmd.Flags().Float64Var(&cmpMass, "ci", 0, "credible interval mass, e.g. 0.89 (overrides config)")
	compareCmd.Flags().StringVar(&cmpSamplerHost, "sampler-host", "", "sampler service base URL (overrides config)")
	compareCmd.Flags().StringVar(&cmpOutputPath, "output", "", "write the full comparison as JSON to this path")
	compareCmd.Flags().StringVar(&cmpDelimiter, "delimiter", "", "CSV field separator, a single character or \"tab\" (default comma)")
	rootCmd.AddCommand(compareCmd)
}
