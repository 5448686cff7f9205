package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "search.beam_width")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all
// validation errors found. A run never starts on a partial config.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSearch()...)
	errors = append(errors, c.validateFilter()...)
	errors = append(errors, c.validateRecovery()...)
	errors = append(errors, c.validateDerive()...)
	errors = append(errors, c.validateOracle()...)
	errors = append(errors, c.validateScorer()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateSearch() []ValidationError {
	var errors []ValidationError

	if c.Search.BeamWidth < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.beam_width",
			Value:   c.Search.BeamWidth,
			Message: "must be at least 1",
		})
	}
	if c.Search.MaxResults < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.max_results",
			Value:   c.Search.MaxResults,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateFilter() []ValidationError {
	var errors []ValidationError

	if c.Filter.ScoreThreshold < 0 || c.Filter.ScoreThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "filter.score_threshold",
			Value:   c.Filter.ScoreThreshold,
			Message: "must be between 0 and 1",
		})
	}
	if c.Filter.TopK < 0 {
		errors = append(errors, ValidationError{
			Field:   "filter.top_k",
			Value:   c.Filter.TopK,
			Message: "must be non-negative",
		})
	}

	weights := map[string]float64{
		"filter.weights.length":   c.Filter.Weights.Length,
		"filter.weights.syllable": c.Filter.Weights.Syllable,
		"filter.weights.pattern":  c.Filter.Weights.Pattern,
		"filter.weights.semantic": c.Filter.Weights.Semantic,
		"filter.weights.rhyme":    c.Filter.Weights.Rhyme,
	}
	for _, field := range []string{
		"filter.weights.length",
		"filter.weights.syllable",
		"filter.weights.pattern",
		"filter.weights.semantic",
		"filter.weights.rhyme",
	} {
		if weights[field] < 0 {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   weights[field],
				Message: "must be non-negative",
			})
		}
	}

	return errors
}

func (c *Config) validateRecovery() []ValidationError {
	var errors []ValidationError

	// Beyond this the oracle rate limit dominates anyway
	const maxUnits = 256

	if c.Recovery.Units < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.units",
			Value:   c.Recovery.Units,
			Message: "must be at least 1",
		})
	}
	if c.Recovery.Units > maxUnits {
		errors = append(errors, ValidationError{
			Field:   "recovery.units",
			Value:   c.Recovery.Units,
			Message: fmt.Sprintf("exceeds maximum of %d", maxUnits),
		})
	}
	if c.Recovery.PollIntervalMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.poll_interval_ms",
			Value:   c.Recovery.PollIntervalMs,
			Message: "must be at least 1",
		})
	}
	if c.Recovery.ProgressIntervalS < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.progress_interval_s",
			Value:   c.Recovery.ProgressIntervalS,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateDerive() []ValidationError {
	var errors []ValidationError

	if len(c.Derive.Paths) == 0 && c.Derive.AddressesPerStandard < 1 {
		errors = append(errors, ValidationError{
			Field:   "derive.addresses_per_standard",
			Value:   c.Derive.AddressesPerStandard,
			Message: "must be at least 1",
		})
	}

	for i, spec := range c.Derive.Paths {
		if _, err := spec.Standard.Purpose(); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("derive.paths[%d].standard", i),
				Value:   string(spec.Standard),
				Message: "unknown address standard",
			})
		}
		if spec.Count < 1 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("derive.paths[%d].count", i),
				Value:   spec.Count,
				Message: "must be at least 1",
			})
		}
	}

	return errors
}

func (c *Config) validateOracle() []ValidationError {
	var errors []ValidationError

	// A dry run never touches the network, so endpoint and rate
	// settings are free to be absent.
	if c.Oracle.DryRun {
		return errors
	}

	if len(c.Oracle.Endpoints) == 0 {
		errors = append(errors, ValidationError{
			Field:   "oracle.endpoints",
			Value:   c.Oracle.Endpoints,
			Message: "at least one endpoint is required",
		})
	}
	if c.Oracle.TimeoutMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "oracle.timeout_ms",
			Value:   c.Oracle.TimeoutMs,
			Message: "must be at least 1",
		})
	}
	if c.Oracle.RequestsPerSec <= 0 {
		errors = append(errors, ValidationError{
			Field:   "oracle.requests_per_sec",
			Value:   c.Oracle.RequestsPerSec,
			Message: "must be positive",
		})
	}
	if c.Oracle.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "oracle.burst",
			Value:   c.Oracle.Burst,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateScorer() []ValidationError {
	var errors []ValidationError

	if c.Scorer.Enabled && c.Scorer.Endpoint == "" {
		errors = append(errors, ValidationError{
			Field:   "scorer.endpoint",
			Value:   c.Scorer.Endpoint,
			Message: "endpoint is required when the scorer is enabled",
		})
	}
	if c.Scorer.Enabled && c.Scorer.TimeoutMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "scorer.timeout_ms",
			Value:   c.Scorer.TimeoutMs,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
