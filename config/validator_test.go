package config

import (
	"strings"
	"testing"

	"seedsleuth/derive"
)

func hasFieldError(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "search.beam_width",
		Value:   0,
		Message: "must be at least 1",
	}
	want := "search.beam_width: must be at least 1 (got: 0)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	if got := ValidationErrors(nil).Error(); got != "" {
		t.Errorf("empty ValidationErrors should render empty, got %q", got)
	}

	single := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if got := single.Error(); got != "a: bad (got: 1)" {
		t.Errorf("single error rendered as %q", got)
	}

	multi := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	got := multi.Error()
	if !strings.Contains(got, "2 validation errors") {
		t.Errorf("multi error should count failures, got %q", got)
	}
	if !strings.Contains(got, "a: bad") || !strings.Contains(got, "b: worse") {
		t.Errorf("multi error should list each failure, got %q", got)
	}
}

func TestValidateSearch(t *testing.T) {
	cfg := Default()
	cfg.Search.BeamWidth = 0
	cfg.Search.MaxResults = -5

	errs := cfg.Validate()
	if !hasFieldError(errs, "search.beam_width") {
		t.Error("expected error for search.beam_width")
	}
	if !hasFieldError(errs, "search.max_results") {
		t.Error("expected error for search.max_results")
	}
}

func TestValidateFilter(t *testing.T) {
	cfg := Default()
	cfg.Filter.ScoreThreshold = 1.5
	if !hasFieldError(cfg.Validate(), "filter.score_threshold") {
		t.Error("expected error for threshold above 1")
	}

	cfg = Default()
	cfg.Filter.ScoreThreshold = -0.1
	if !hasFieldError(cfg.Validate(), "filter.score_threshold") {
		t.Error("expected error for negative threshold")
	}

	cfg = Default()
	cfg.Filter.TopK = -1
	if !hasFieldError(cfg.Validate(), "filter.top_k") {
		t.Error("expected error for negative top_k")
	}

	cfg = Default()
	cfg.Filter.Weights.Semantic = -0.2
	if !hasFieldError(cfg.Validate(), "filter.weights.semantic") {
		t.Error("expected error for negative semantic weight")
	}
}

func TestValidateRecovery(t *testing.T) {
	cfg := Default()
	cfg.Recovery.Units = 0
	if !hasFieldError(cfg.Validate(), "recovery.units") {
		t.Error("expected error for zero units")
	}

	cfg = Default()
	cfg.Recovery.Units = 1000
	if !hasFieldError(cfg.Validate(), "recovery.units") {
		t.Error("expected error for excessive units")
	}

	cfg = Default()
	cfg.Recovery.PollIntervalMs = 0
	if !hasFieldError(cfg.Validate(), "recovery.poll_interval_ms") {
		t.Error("expected error for zero poll interval")
	}

	cfg = Default()
	cfg.Recovery.ProgressIntervalS = 0
	if !hasFieldError(cfg.Validate(), "recovery.progress_interval_s") {
		t.Error("expected error for zero progress interval")
	}
}

func TestValidateDerive(t *testing.T) {
	cfg := Default()
	cfg.Derive.AddressesPerStandard = 0
	if !hasFieldError(cfg.Validate(), "derive.addresses_per_standard") {
		t.Error("expected error for zero addresses per standard")
	}

	// Explicit paths make addresses_per_standard irrelevant
	cfg.Derive.Paths = []derive.PathSpec{
		{Standard: derive.StandardLegacy, Count: 1},
	}
	if hasFieldError(cfg.Validate(), "derive.addresses_per_standard") {
		t.Error("addresses_per_standard should be ignored when paths are set")
	}

	cfg = Default()
	cfg.Derive.Paths = []derive.PathSpec{
		{Standard: "bech64", Count: 1},
	}
	if !hasFieldError(cfg.Validate(), "derive.paths[0].standard") {
		t.Error("expected error for unknown standard")
	}

	cfg = Default()
	cfg.Derive.Paths = []derive.PathSpec{
		{Standard: derive.StandardTaproot, Count: 0},
	}
	if !hasFieldError(cfg.Validate(), "derive.paths[0].count") {
		t.Error("expected error for zero path count")
	}
}

func TestValidateOracle(t *testing.T) {
	cfg := Default()
	cfg.Oracle.Endpoints = nil
	if !hasFieldError(cfg.Validate(), "oracle.endpoints") {
		t.Error("expected error for missing endpoints")
	}

	// Dry runs skip oracle validation entirely
	cfg.Oracle.DryRun = true
	if len(cfg.Validate()) != 0 {
		t.Errorf("dry run should not require oracle settings, got: %v", ValidationErrors(cfg.Validate()))
	}

	cfg = Default()
	cfg.Oracle.RequestsPerSec = 0
	if !hasFieldError(cfg.Validate(), "oracle.requests_per_sec") {
		t.Error("expected error for zero request rate")
	}

	cfg = Default()
	cfg.Oracle.Burst = 0
	if !hasFieldError(cfg.Validate(), "oracle.burst") {
		t.Error("expected error for zero burst")
	}
}

func TestValidateScorer(t *testing.T) {
	cfg := Default()
	cfg.Scorer.Enabled = true
	cfg.Scorer.Endpoint = ""
	if !hasFieldError(cfg.Validate(), "scorer.endpoint") {
		t.Error("expected error for enabled scorer without endpoint")
	}

	cfg = Default()
	cfg.Scorer.Enabled = false
	cfg.Scorer.Endpoint = ""
	if hasFieldError(cfg.Validate(), "scorer.endpoint") {
		t.Error("disabled scorer should not require an endpoint")
	}

	cfg = Default()
	cfg.Scorer.Enabled = true
	cfg.Scorer.TimeoutMs = 0
	if !hasFieldError(cfg.Validate(), "scorer.timeout_ms") {
		t.Error("expected error for zero scorer timeout")
	}
}

func TestValidateLogging(t *testing.T) {
	for _, level := range ValidLogLevels() {
		cfg := Default()
		cfg.Logging.Level = level
		if hasFieldError(cfg.Validate(), "logging.level") {
			t.Errorf("level %q should be valid", level)
		}
	}

	cfg := Default()
	cfg.Logging.Level = "verbose"
	if !hasFieldError(cfg.Validate(), "logging.level") {
		t.Error("expected error for unknown log level")
	}
}
