package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/oddsmill/oddsmill/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set oddsmill configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		fmt.Printf("sampler_host: %s\n", c.SamplerHost)
		fmt.Printf("http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Printf("retry_max_attempts: %d\n", c.RetryMaxAttempts)
		fmt.Printf("iterations: %d\n", c.Iterations)
		fmt.Printf("warmup: %d\n", c.Warmup)
		fmt.Printf("chains: %d\n", c.Chains)
		fmt.Printf("seed: %d\n", c.Seed)
		fmt.Printf("adapt_delta: %.3f\n", c.AdaptDelta)
		fmt.Printf("prior_intercept_scale: %.3f\n", c.PriorInterceptScale)
		fmt.Printf("prior_slope_scale: %.3f\n", c.PriorSlopeScale)
		fmt.Printf("prior_group_sd_scale: %.3f\n", c.PriorGroupSDScale)
		fmt.Printf("credible_mass: %.3f\n", c.CredibleMass)
		fmt.Printf("outcome_column: %s\n", c.OutcomeColumn)
		fmt.Printf("promotion_column: %s\n", c.PromotionColumn)
		fmt.Printf("channel_column: %s\n", c.ChannelColumn)
		fmt.Printf("outcome_levels: %s\n", strings.Join(c.OutcomeLevels, ","))
		fmt.Printf("promotion_levels: %s\n", strings.Join(c.PromotionLevels, ","))
		fmt.Printf("channel_levels: %s\n", strings.Join(c.ChannelLevels, ","))
		fmt.Printf("purchased_level: %s\n", c.PurchasedLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		switch key {
		case "sampler_host":
			c.SamplerHost = val
		case "http_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
			}
			c.HTTPTimeoutSec = i
		case "retry_max_attempts":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for retry_max_attempts: %v", val)
			}
			c.RetryMaxAttempts = i
		case "iterations":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for iterations: %v", val)
			}
			c.Iterations = i
		case "warmup":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for warmup: %v", val)
			}
			c.Warmup = i
		case "chains":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for chains: %v", val)
			}
			c.Chains = i
		case "seed":
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for seed: %v", val)
			}
			c.Seed = i
		case "adapt_delta":
			fv, err := strconv.ParseFloat(val, 64)
			if err != nil || fv <= 0 || fv >= 1 {
				return fmt.Errorf("invalid adapt_delta (must be in (0,1)): %v", val)
			}
			c.AdaptDelta = fv
		case "credible_mass":
			fv, err := strconv.ParseFloat(val, 64)
			if err != nil || fv <= 0 || fv >= 1 {
				return fmt.Errorf("invalid credible_mass (must be in (0,1)): %v", val)
			}
			c.CredibleMass = fv
		case "prior_intercept_scale":
			fv, err := strconv.ParseFloat(val, 64)
			if err != nil || fv <= 0 {
				return fmt.Errorf("invalid prior_intercept_scale: %v", val)
			}
			c.PriorInterceptScale = fv
		case "prior_slope_scale":
			fv, err := strconv.ParseFloat(val, 64)
			if err != nil || fv <= 0 {
				return fmt.Errorf("invalid prior_slope_scale: %v", val)
			}
			c.PriorSlopeScale = fv
		case "prior_group_sd_scale":
			fv, err := strconv.ParseFloat(val, 64)
			if err != nil || fv <= 0 {
				return fmt.Errorf("invalid prior_group_sd_scale: %v", val)
			}
			c.PriorGroupSDScale = fv
		case "outcome_column":
			c.OutcomeColumn = val
		case "promotion_column":
			c.PromotionColumn = val
		case "channel_column":
			c.ChannelColumn = val
		case "purchased_level":
			c.PurchasedLevel = val
		case "outcome_levels", "promotion_levels", "channel_levels":
			levels := splitLevels(val)
			if len(levels) < 2 {
				return fmt.Errorf("%s needs at least 2 comma-separated levels", key)
			}
			switch key {
			case "outcome_levels":
				c.OutcomeLevels = levels
			case "promotion_levels":
				c.PromotionLevels = levels
			case "channel_levels":
				c.ChannelLevels = levels
			}
		default:
			return fmt.Errorf("unknown config key: %s", key)
		}
		// Level changes must still form a valid encoding before persisting.
		if _, err := c.Codec(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Printf("✓ %s updated\n", key)
		return nil
	},
}

func splitLevels(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
