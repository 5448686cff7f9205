package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seedsleuth/api"
	"seedsleuth/mnemonic"
)

// Common errors for recovery service operations
var (
	ErrAlreadyRunning = errors.New("recovery service already running")
	ErrNotRunning     = errors.New("recovery service not running")
)

// RecoveryStatus tracks where a run is in its lifecycle.
type RecoveryStatus int32

const (
	StatusIdle RecoveryStatus = iota
	StatusVerifying
	StatusFound
	StatusExhausted
	StatusStopped
)

func (s RecoveryStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusVerifying:
		return "verifying"
	case StatusFound:
		return "found"
	case StatusExhausted:
		return "exhausted"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// RecoveryConfig controls the verification stage. RunID names the run
// in logs and summaries; empty picks a random one.
type RecoveryConfig struct {
	RunID            string        `json:"run_id,omitempty"`
	Units            int           `json:"units"`
	PollInterval     time.Duration `json:"poll_interval"`
	ProgressInterval time.Duration `json:"progress_interval"`
}

// DefaultRecoveryConfig returns a configuration with sensible defaults.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Units:            4,
		PollInterval:     250 * time.Millisecond,
		ProgressInterval: 30 * time.Second,
	}
}

// RecoveryDeps are the collaborators a run needs. Sinks receive every
// outcome; Resume filters out sentences a prior run already checked;
// Metrics may be nil.
type RecoveryDeps struct {
	Verifier Verifier
	Sinks    []ResultSink
	Resume   ResumeFilter
	Metrics  *api.Metrics
	Logger   *zap.Logger
}

// RecoveryStats is a snapshot of a run.
type RecoveryStats struct {
	RunID   string      `json:"run_id"`
	Status  string      `json:"status"`
	Queue   QueueCounts `json:"queue"`
	Pool    PoolStats   `json:"pool"`
	Skipped int64       `json:"skipped"`
}

// RecoveryService owns the verification stage: it feeds ranked tasks
// from the queue into the worker pool, relays outcomes to the sinks
// from the single supervisory path, and reports progress until the
// run finds a wallet or exhausts its candidates.
type RecoveryService struct {
	cfg  RecoveryConfig
	deps RecoveryDeps
	log  *zap.Logger
	ctx  context.Context

	runID string
	queue *TaskQueue

	mu             sync.Mutex
	pool           *WorkerPool
	running        bool
	stopped        bool
	status         RecoveryStatus
	found          *FoundWallet
	startedAt      time.Time
	summaryWritten bool

	submitted atomic.Int64
	skipped   atomic.Int64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRecoveryService creates a service for one run. ctx bounds all
// verification work; cancelling it aborts in-flight oracle calls.
func NewRecoveryService(ctx context.Context, cfg RecoveryConfig, deps RecoveryDeps) *RecoveryService {
	if ctx == nil {
		ctx = context.Background()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultRecoveryConfig()
	if cfg.Units <= 0 {
		cfg.Units = def.Units
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = def.ProgressInterval
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()[:8]
	}

	return &RecoveryService{
		cfg:    cfg,
		deps:   deps,
		log:    log,
		ctx:    ctx,
		runID:  runID,
		queue:  NewTaskQueue(),
		status: StatusIdle,
	}
}

// Start launches the pool and the progress reporter.
func (s *RecoveryService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	s.pool = NewWorkerPool(s.ctx, PoolConfig{
		Units:        s.cfg.Units,
		PollInterval: s.cfg.PollInterval,
	}, s.deps.Verifier, PoolCallbacks{
		OnResult:    s.onResult,
		OnFound:     s.onFound,
		OnUnitCrash: s.onUnitCrash,
	}, s.log)

	s.running = true
	s.stopped = false
	s.status = StatusVerifying
	s.startedAt = time.Now()
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.progressLoop()

	s.log.Info("recovery run started",
		zap.String("run_id", s.runID),
		zap.Int("units", s.cfg.Units))
	return nil
}

// Submit enqueues tasks, skipping sentences the resume filter has
// already seen, sorts the queue by score, and feeds it to the pool.
// Returns the number of tasks accepted for verification.
func (s *RecoveryService) Submit(tasks []*VerificationTask) int {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return 0
	}
	pool := s.pool
	s.mu.Unlock()

	fresh := make([]*VerificationTask, 0, len(tasks))
	skipped := 0
	for _, t := range tasks {
		if s.deps.Resume != nil && s.deps.Resume.Seen(t.Mnemonic) {
			skipped++
			continue
		}
		fresh = append(fresh, t)
	}
	if skipped > 0 {
		s.skipped.Add(int64(skipped))
		s.deps.Metrics.RecordSkipped(skipped)
		s.log.Info("skipping already-checked candidates", zap.Int("skipped", skipped))
	}

	accepted := s.queue.EnqueueAll(fresh)
	s.queue.SortByProbability()
	s.submitted.Add(int64(accepted))
	s.deps.Metrics.RecordSubmitted(accepted)

	for pool.IsRunning() {
		t, ok := s.queue.Dequeue()
		if !ok {
			break
		}
		pool.SubmitTask(t)
	}
	return accepted
}

// onResult runs on the pool's supervisory path for every outcome.
func (s *RecoveryService) onResult(res *VerificationResult) {
	s.queue.MarkCompleted(res.Mnemonic)
	s.deps.Metrics.RecordResult(res.Found, res.Err != nil, res.AddressesChecked, res.Duration)

	for _, sink := range s.deps.Sinks {
		if err := sink.AppendResult(res); err != nil {
			s.log.Warn("result sink append failed", zap.Error(err))
		}
	}

	s.log.Debug("candidate verified",
		zap.String("task", mnemonic.ShortHash(res.Mnemonic)),
		zap.Bool("found", res.Found),
		zap.Int("addresses", res.AddressesChecked),
		zap.Duration("took", res.Duration))
}

// onFound runs at most once, before pool shutdown begins.
func (s *RecoveryService) onFound(w *FoundWallet) {
	s.mu.Lock()
	s.found = w
	s.status = StatusFound
	s.mu.Unlock()

	for _, sink := range s.deps.Sinks {
		if err := sink.WriteFound(w); err != nil {
			s.log.Error("writing found-wallet record failed", zap.Error(err))
		}
	}

	dropped := s.queue.Clear()
	s.log.Info("recovery succeeded",
		zap.String("run_id", s.runID),
		zap.String("address", w.Address),
		zap.String("standard", w.Standard),
		zap.Int64("balance", w.Balance),
		zap.Int("dropped_candidates", dropped))
}

// onUnitCrash marks the lost task failed so queue counts stay
// truthful. The task is not retried.
func (s *RecoveryService) onUnitCrash(unitID int, task *VerificationTask) {
	s.queue.MarkFailed(task.Mnemonic)
	s.deps.Metrics.RecordCrash()
	s.log.Warn("task lost to unit crash",
		zap.Int("unit", unitID),
		zap.String("task", mnemonic.ShortHash(task.Mnemonic)))
}

func (s *RecoveryService) progressLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			counts := s.queue.Counts()
			ps := s.pool.GetStats()
			s.deps.Metrics.UpdateQueue(counts.Queued, counts.Processing)
			s.deps.Metrics.UpdateUnits(ps.Units, ps.Idle, ps.Pending)
			s.log.Info("progress",
				zap.Int64("checked", ps.Completed),
				zap.Int("pending", ps.Pending),
				zap.Int("failed", counts.Failed),
				zap.Int64("addresses", ps.AddressesChecked),
				zap.Float64("uptime_s", ps.UptimeSeconds))
		}
	}
}

// Wait blocks until the pool drains, a wallet is found, or ctx ends.
func (s *RecoveryService) Wait(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	pool := s.pool
	s.mu.Unlock()

	err := pool.WaitForCompletion(ctx)

	s.mu.Lock()
	if s.status == StatusVerifying {
		s.status = StatusExhausted
	}
	s.mu.Unlock()
	return err
}

// Stop shuts the pool down, stops the progress reporter, and writes
// the run summary to every sink. Idempotent.
func (s *RecoveryService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.running = false
	pool := s.pool
	if s.status == StatusVerifying || s.status == StatusIdle {
		s.status = StatusStopped
	}
	s.mu.Unlock()

	if pool != nil {
		pool.Shutdown()
	}
	if s.stopCh != nil {
		close(s.stopCh)
	}
	s.wg.Wait()

	s.writeSummary()
}

// Run is the one-call entry: start, submit, wait, stop. Returns the
// found wallet, if any.
func (s *RecoveryService) Run(ctx context.Context, tasks []*VerificationTask) (*FoundWallet, error) {
	if err := s.Start(); err != nil {
		return nil, err
	}
	defer s.Stop()

	if accepted := s.Submit(tasks); accepted == 0 {
		s.log.Info("nothing to verify", zap.Int("candidates", len(tasks)))
		return nil, nil
	}

	err := s.Wait(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return s.Result(), err
	}
	return s.Result(), nil
}

func (s *RecoveryService) writeSummary() {
	s.mu.Lock()
	if s.summaryWritten || s.pool == nil {
		s.mu.Unlock()
		return
	}
	s.summaryWritten = true
	found := s.found
	startedAt := s.startedAt
	s.mu.Unlock()

	counts := s.queue.Counts()
	ps := s.pool.GetStats()
	elapsed := time.Since(startedAt)

	perMinute := 0.0
	if elapsed > 0 {
		perMinute = float64(ps.Completed) / elapsed.Minutes()
	}

	summary := &RunSummary{
		RunID:          s.runID,
		TotalTasks:     s.submitted.Load(),
		TotalChecked:   ps.Completed,
		TotalFailed:    int64(counts.Failed),
		TotalSkipped:   s.skipped.Load(),
		TotalAddresses: ps.AddressesChecked,
		Elapsed:        elapsed,
		PerMinute:      perMinute,
		Found:          found,
	}

	for _, sink := range s.deps.Sinks {
		if err := sink.WriteSummary(summary); err != nil {
			s.log.Warn("summary sink failed", zap.Error(err))
		}
	}

	s.log.Info("run summary",
		zap.String("run_id", summary.RunID),
		zap.Int64("tasks", summary.TotalTasks),
		zap.Int64("checked", summary.TotalChecked),
		zap.Int64("failed", summary.TotalFailed),
		zap.Int64("skipped", summary.TotalSkipped),
		zap.Int64("addresses", summary.TotalAddresses),
		zap.Duration("elapsed", summary.Elapsed),
		zap.Float64("per_minute", summary.PerMinute),
		zap.Bool("found", summary.Found != nil))
}

// Result returns the found wallet, or nil.
func (s *RecoveryService) Result() *FoundWallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.found
}

// Status returns the current lifecycle status.
func (s *RecoveryService) Status() RecoveryStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RunID returns the short identifier for this run.
func (s *RecoveryService) RunID() string {
	return s.runID
}

// GetStats returns a snapshot of the run.
func (s *RecoveryService) GetStats() RecoveryStats {
	s.mu.Lock()
	pool := s.pool
	status := s.status
	s.mu.Unlock()

	stats := RecoveryStats{
		RunID:   s.runID,
		Status:  status.String(),
		Queue:   s.queue.Counts(),
		Skipped: s.skipped.Load(),
	}
	if pool != nil {
		stats.Pool = pool.GetStats()
	}
	return stats
}
