// Package config loads and validates the recovery run configuration
// from defaults, an optional YAML file, and SEEDSLEUTH_ environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"seedsleuth/derive"
	"seedsleuth/search"
)

// Config represents the complete recovery run configuration
type Config struct {
	Search     SearchConfig     `mapstructure:"search"`
	Filter     FilterConfig     `mapstructure:"filter"`
	Recovery   RecoveryConfig   `mapstructure:"recovery"`
	Derive     DeriveConfig     `mapstructure:"derive"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Scorer     ScorerConfig     `mapstructure:"scorer"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Report     ReportConfig     `mapstructure:"report"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SearchConfig bounds the beam search
type SearchConfig struct {
	// BeamWidth is how many partial sentences survive each position
	BeamWidth int `mapstructure:"beam_width"`
	// MaxResults caps the ranked sentences handed to verification
	MaxResults int `mapstructure:"max_results"`
}

// FilterConfig controls per-position candidate filtering
type FilterConfig struct {
	// ScoreThreshold is the minimum facet score for a word to remain
	// a candidate (0 keeps everything)
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	// TopK truncates each position's candidate list after scoring
	// (0 = keep all)
	TopK int `mapstructure:"top_k"`
	// Weights tune the five constraint facets
	Weights search.Weights `mapstructure:"weights"`
}

// RecoveryConfig controls the verification stage
type RecoveryConfig struct {
	// Units is the number of parallel verification units
	Units int `mapstructure:"units"`
	// PollIntervalMs is how often idle units look for work (in milliseconds)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// ProgressIntervalS is how often progress is logged (in seconds)
	ProgressIntervalS int `mapstructure:"progress_interval_s"`
}

// PollInterval returns the poll interval as a time.Duration
func (c *RecoveryConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// ProgressInterval returns the progress interval as a time.Duration
func (c *RecoveryConfig) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalS) * time.Second
}

// DeriveConfig controls address derivation per candidate sentence
type DeriveConfig struct {
	// AddressesPerStandard is how many consecutive indices to derive
	// for each address standard when no explicit paths are given
	AddressesPerStandard int `mapstructure:"addresses_per_standard"`
	// Paths overrides the default derivation plan entirely
	Paths []derive.PathSpec `mapstructure:"paths"`
}

// Specs returns the derivation plan: explicit paths when configured,
// otherwise the default plan across all four standards.
func (c *DeriveConfig) Specs() []derive.PathSpec {
	if len(c.Paths) > 0 {
		return c.Paths
	}
	return derive.DefaultPathSpecs(uint32(c.AddressesPerStandard))
}

// OracleConfig controls the balance oracle client
type OracleConfig struct {
	// Endpoints are esplora-style API base URLs, rotated round robin
	Endpoints []string `mapstructure:"endpoints"`
	// TimeoutMs is the per-request timeout (in milliseconds)
	TimeoutMs int `mapstructure:"timeout_ms"`
	// RequestsPerSec rate limits queries across all units
	RequestsPerSec float64 `mapstructure:"requests_per_sec"`
	// Burst is the rate limiter burst size
	Burst int `mapstructure:"burst"`
	// DryRun skips balance queries entirely; every address reads as empty
	DryRun bool `mapstructure:"dry_run"`
}

// Timeout returns the request timeout as a time.Duration
func (c *OracleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ScorerConfig controls the external word scoring service
type ScorerConfig struct {
	// Enabled turns the external scorer on; without it candidates keep
	// their filter ranking via uniform fallback scores
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the scorer's ZeroMQ address
	Endpoint string `mapstructure:"endpoint"`
	// Token authenticates requests to the scorer
	Token string `mapstructure:"token"`
	// TimeoutMs is the per-request timeout (in milliseconds)
	TimeoutMs int `mapstructure:"timeout_ms"`
}

// Timeout returns the scorer timeout as a time.Duration
func (c *ScorerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// CheckpointConfig controls run persistence
type CheckpointConfig struct {
	// Enabled turns checkpointing and resume on (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Dir is where checkpoint files are written
	Dir string `mapstructure:"dir"`
}

// ReportConfig controls Arrow result export
type ReportConfig struct {
	// Enabled turns the columnar export on (default: false)
	Enabled bool `mapstructure:"enabled"`
	// Dir is where export files are written
	Dir string `mapstructure:"dir"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	// Enabled starts the metrics HTTP server (default: false)
	Enabled bool `mapstructure:"enabled"`
	// Listen is the metrics server bind address
	Listen string `mapstructure:"listen"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Development switches to console-friendly output
	Development bool `mapstructure:"development"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			BeamWidth:  search.DefaultBeamWidth,
			MaxResults: search.DefaultMaxResults,
		},
		Filter: FilterConfig{
			ScoreThreshold: 0.3,
			TopK:           0, // Keep every candidate above the threshold
			Weights:        search.DefaultWeights(),
		},
		Recovery: RecoveryConfig{
			Units:             4,
			PollIntervalMs:    250,
			ProgressIntervalS: 30,
		},
		Derive: DeriveConfig{
			AddressesPerStandard: 1,
			Paths:                nil, // Empty means the default four-standard plan
		},
		Oracle: OracleConfig{
			Endpoints: []string{
				"https://blockstream.info/api",
				"https://mempool.space/api",
			},
			TimeoutMs:      10000,
			RequestsPerSec: 4,
			Burst:          4,
			DryRun:         false,
		},
		Scorer: ScorerConfig{
			Enabled:   false,
			Endpoint:  "tcp://127.0.0.1:5555",
			Token:     "",
			TimeoutMs: 5000,
		},
		Checkpoint: CheckpointConfig{
			Enabled: true,
			Dir:     "checkpoints",
		},
		Report: ReportConfig{
			Enabled: false,
			Dir:     "reports",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// setDefaults registers default values with the given viper instance
func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Search defaults
	v.SetDefault("search.beam_width", defaults.Search.BeamWidth)
	v.SetDefault("search.max_results", defaults.Search.MaxResults)

	// Filter defaults
	v.SetDefault("filter.score_threshold", defaults.Filter.ScoreThreshold)
	v.SetDefault("filter.top_k", defaults.Filter.TopK)
	v.SetDefault("filter.weights.length", defaults.Filter.Weights.Length)
	v.SetDefault("filter.weights.syllable", defaults.Filter.Weights.Syllable)
	v.SetDefault("filter.weights.pattern", defaults.Filter.Weights.Pattern)
	v.SetDefault("filter.weights.semantic", defaults.Filter.Weights.Semantic)
	v.SetDefault("filter.weights.rhyme", defaults.Filter.Weights.Rhyme)

	// Recovery defaults
	v.SetDefault("recovery.units", defaults.Recovery.Units)
	v.SetDefault("recovery.poll_interval_ms", defaults.Recovery.PollIntervalMs)
	v.SetDefault("recovery.progress_interval_s", defaults.Recovery.ProgressIntervalS)

	// Derive defaults
	v.SetDefault("derive.addresses_per_standard", defaults.Derive.AddressesPerStandard)

	// Oracle defaults
	v.SetDefault("oracle.endpoints", defaults.Oracle.Endpoints)
	v.SetDefault("oracle.timeout_ms", defaults.Oracle.TimeoutMs)
	v.SetDefault("oracle.requests_per_sec", defaults.Oracle.RequestsPerSec)
	v.SetDefault("oracle.burst", defaults.Oracle.Burst)
	v.SetDefault("oracle.dry_run", defaults.Oracle.DryRun)

	// Scorer defaults
	v.SetDefault("scorer.enabled", defaults.Scorer.Enabled)
	v.SetDefault("scorer.endpoint", defaults.Scorer.Endpoint)
	v.SetDefault("scorer.token", defaults.Scorer.Token)
	v.SetDefault("scorer.timeout_ms", defaults.Scorer.TimeoutMs)

	// Checkpoint defaults
	v.SetDefault("checkpoint.enabled", defaults.Checkpoint.Enabled)
	v.SetDefault("checkpoint.dir", defaults.Checkpoint.Dir)

	// Report defaults
	v.SetDefault("report.enabled", defaults.Report.Enabled)
	v.SetDefault("report.dir", defaults.Report.Dir)

	// Metrics defaults
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.listen", defaults.Metrics.Listen)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.development", defaults.Logging.Development)
}

// Load builds the configuration from defaults, the optional file at
// path, and SEEDSLEUTH_ environment variables, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SEEDSLEUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}
