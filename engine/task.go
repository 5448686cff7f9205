package engine

import (
	"context"
	"time"
)

// VerificationTask is one candidate sentence awaiting verification.
// Identity is the sentence itself; a task never changes once created.
type VerificationTask struct {
	Mnemonic  string    `json:"mnemonic"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// NewVerificationTask creates a task for a candidate sentence with its
// aggregate search score.
func NewVerificationTask(sentence string, score float64) *VerificationTask {
	return &VerificationTask{
		Mnemonic:  sentence,
		Score:     score,
		CreatedAt: time.Now(),
	}
}

// VerificationResult is the outcome of checking one task: whether any
// derived address carries a balance, and how much work it took.
type VerificationResult struct {
	Mnemonic         string        `json:"mnemonic"`
	Score            float64       `json:"score"`
	Found            bool          `json:"found"`
	Address          string        `json:"address,omitempty"`
	Path             string        `json:"path,omitempty"`
	Standard         string        `json:"standard,omitempty"`
	Balance          int64         `json:"balance,omitempty"`
	AddressesChecked int           `json:"addresses_checked"`
	Duration         time.Duration `json:"duration"`
	UnitID           int           `json:"unit_id"`
	Err              error         `json:"-"`
}

// Match reports whether the result identifies the target wallet:
// found with address, path, standard, and a positive balance all
// present.
func (r *VerificationResult) Match() bool {
	return r.Found && r.Address != "" && r.Path != "" && r.Standard != "" && r.Balance > 0
}

// FoundWallet is the terminal record of a successful run: the matched
// sentence plus pool-wide counters at the moment of the match.
type FoundWallet struct {
	Mnemonic         string        `json:"mnemonic"`
	Address          string        `json:"address"`
	Path             string        `json:"path"`
	Standard         string        `json:"standard"`
	Balance          int64         `json:"balance"`
	AddressesChecked int           `json:"addresses_checked"`
	TotalChecked     int64         `json:"total_checked"`
	TotalElapsed     time.Duration `json:"total_elapsed"`
	FoundAt          time.Time     `json:"found_at"`
}

// RunSummary captures the totals of a finished run, success or
// exhaustion.
type RunSummary struct {
	RunID          string        `json:"run_id"`
	TotalTasks     int64         `json:"total_tasks"`
	TotalChecked   int64         `json:"total_checked"`
	TotalFailed    int64         `json:"total_failed"`
	TotalSkipped   int64         `json:"total_skipped"`
	TotalAddresses int64         `json:"total_addresses"`
	Elapsed        time.Duration `json:"elapsed"`
	PerMinute      float64       `json:"per_minute"`
	Found          *FoundWallet  `json:"found,omitempty"`
}

// Verifier checks one candidate sentence against the chain. Verify is
// called from pool units and must be safe for concurrent use.
type Verifier interface {
	Verify(ctx context.Context, task *VerificationTask) *VerificationResult
}

// ResultSink receives outcomes from the orchestrator. All calls happen
// on the single supervisory path, never concurrently.
type ResultSink interface {
	AppendResult(res *VerificationResult) error
	WriteFound(w *FoundWallet) error
	WriteSummary(s *RunSummary) error
}

// ResumeFilter reports sentences already verified by an earlier run.
type ResumeFilter interface {
	Seen(sentence string) bool
}
