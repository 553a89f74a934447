package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oddsmill/oddsmill/internal/sampler"
	"github.com/oddsmill/oddsmill/internal/schema"
)

// Global configuration structure.
type Global struct {
	// Sampler service endpoint and HTTP behavior.
	SamplerHost      string `mapstructure:"sampler_host" yaml:"sampler_host"`
	HTTPTimeoutSec   int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int    `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int    `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int    `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Sampler run parameters.
	Iterations int     `mapstructure:"iterations" yaml:"iterations"`
	Warmup     int     `mapstructure:"warmup" yaml:"warmup"`
	Chains     int     `mapstructure:"chains" yaml:"chains"`
	Seed       int64   `mapstructure:"seed" yaml:"seed"`
	AdaptDelta float64 `mapstructure:"adapt_delta" yaml:"adapt_delta"`

	// Prior widths and reporting interval.
	PriorInterceptScale float64 `mapstructure:"prior_intercept_scale" yaml:"prior_intercept_scale"`
	PriorSlopeScale     float64 `mapstructure:"prior_slope_scale" yaml:"prior_slope_scale"`
	PriorGroupSDScale   float64 `mapstructure:"prior_group_sd_scale" yaml:"prior_group_sd_scale"`
	CredibleMass        float64 `mapstructure:"credible_mass" yaml:"credible_mass"`

	// Dataset schema: column names and declared level orders. The first
	// level of each list is the modeling baseline.
	OutcomeColumn   string   `mapstructure:"outcome_column" yaml:"outcome_column"`
	PromotionColumn string   `mapstructure:"promotion_column" yaml:"promotion_column"`
	ChannelColumn   string   `mapstructure:"channel_column" yaml:"channel_column"`
	OutcomeLevels   []string `mapstructure:"outcome_levels" yaml:"outcome_levels"`
	PromotionLevels []string `mapstructure:"promotion_levels" yaml:"promotion_levels"`
	ChannelLevels   []string `mapstructure:"channel_levels" yaml:"channel_levels"`
	PurchasedLevel  string   `mapstructure:"purchased_level" yaml:"purchased_level"`
}

// Codec builds the category encoding declared by this configuration.
func (c *Global) Codec() (*schema.Codec, error) {
	outcome, err := schema.NewEncoding("outcome", c.OutcomeLevels...)
	if err != nil {
		return nil, err
	}
	promotion, err := schema.NewEncoding("promotion", c.PromotionLevels...)
	if err != nil {
		return nil, err
	}
	channel, err := schema.NewEncoding("channel", c.ChannelLevels...)
	if err != nil {
		return nil, err
	}
	codec := &schema.Codec{Outcome: outcome, Promotion: promotion, Channel: channel, Purchased: c.PurchasedLevel}
	if err := codec.Validate(); err != nil {
		return nil, err
	}
	return codec, nil
}

// Prior returns the prior specification declared by this configuration.
func (c *Global) Prior() sampler.PriorSpec {
	return sampler.PriorSpec{
		InterceptScale: c.PriorInterceptScale,
		SlopeScale:     c.PriorSlopeScale,
		GroupSDScale:   c.PriorGroupSDScale,
	}
}

// SamplerConfig returns the sampler run parameters declared by this
// configuration.
func (c *Global) SamplerConfig() sampler.Config {
	return sampler.Config{
		Iterations: c.Iterations,
		Warmup:     c.Warmup,
		Chains:     c.Chains,
		Seed:       c.Seed,
		AdaptDelta: c.AdaptDelta,
	}
}

// HTTPTimeout returns the configured sampler HTTP timeout.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ~/.oddsmill/config.yaml, creating the directory if
// necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".oddsmill")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("ODDSMILL")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sampler_host", "http://127.0.0.1:8787")
	v.SetDefault("http_timeout_sec", 600)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("iterations", 2000)
	v.SetDefault("warmup", 1000)
	v.SetDefault("chains", 4)
	v.SetDefault("seed", 1234)
	v.SetDefault("adapt_delta", 0.8)
	v.SetDefault("prior_intercept_scale", 1.0)
	v.SetDefault("prior_slope_scale", 1.0)
	v.SetDefault("prior_group_sd_scale", 0.5)
	v.SetDefault("credible_mass", 0.89)
	v.SetDefault("outcome_column", "Pass")
	v.SetDefault("promotion_column", "Promo")
	v.SetDefault("channel_column", "Channel")
	v.SetDefault("outcome_levels", []string{"NoPass", "YesPass"})
	v.SetDefault("promotion_levels", []string{"NoBundle", "Bundle"})
	v.SetDefault("channel_levels", []string{"Mail", "Park", "Email"})
	v.SetDefault("purchased_level", "YesPass")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".oddsmill")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
