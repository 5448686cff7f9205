package engine

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"seedsleuth/mnemonic"
)

// ErrNoLiveUnits is returned by WaitForCompletion when every unit has
// crashed and the pool can make no further progress.
var ErrNoLiveUnits = errors.New("worker pool has no live units")

// PoolConfig controls pool sizing and the completion polling cadence.
type PoolConfig struct {
	Units        int           `json:"units"`
	PollInterval time.Duration `json:"poll_interval"`
}

// DefaultPoolConfig returns a configuration with sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Units:        4,
		PollInterval: 250 * time.Millisecond,
	}
}

// PoolCallbacks are invoked from the pool's single supervisory path.
// OnResult fires for every completed verification, OnFound at most
// once per pool, OnUnitCrash when a unit dies with a task assigned.
type PoolCallbacks struct {
	OnResult    func(res *VerificationResult)
	OnFound     func(w *FoundWallet)
	OnUnitCrash func(unitID int, task *VerificationTask)
}

// PoolStats is a snapshot of pool state.
type PoolStats struct {
	Units            int     `json:"units"`
	Idle             int     `json:"idle"`
	Pending          int     `json:"pending"`
	Completed        int64   `json:"completed"`
	AddressesChecked int64   `json:"addresses_checked"`
	Crashed          int64   `json:"crashed"`
	Dropped          int64   `json:"dropped"`
	ShuttingDown     bool    `json:"shutting_down"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// unit is one isolated execution slot. It owns no shared state; the
// pool talks to it only through its task channel.
type unit struct {
	id    int
	tasks chan *VerificationTask
}

// unitEvent is the single message type units send back: either a
// result or a crash report.
type unitEvent struct {
	unitID     int
	result     *VerificationResult
	task       *VerificationTask
	crashed    bool
	panicValue interface{}
}

// WorkerPool dispatches verification tasks to a fixed set of units
// created at initialization. Pending tasks are held in a score-ordered
// heap; the highest-priority task goes to the next idle unit. The
// first matching result triggers pool-wide shutdown.
//
// A unit that panics is removed permanently; the pool does not replace
// it and its assigned task is lost (reported through OnUnitCrash, not
// retried).
type WorkerPool struct {
	cfg      PoolConfig
	verifier Verifier
	cb       PoolCallbacks
	log      *zap.Logger
	ctx      context.Context

	mu           sync.Mutex
	units        map[int]*unit
	idle         []int
	pending      taskHeap
	shuttingDown bool

	events chan unitEvent
	stopCh chan struct{}

	unitWG sync.WaitGroup
	supWG  sync.WaitGroup

	shutdownOnce sync.Once
	foundOnce    sync.Once

	startedAt        time.Time
	tasksCompleted   atomic.Int64
	addressesChecked atomic.Int64
	unitsCrashed     atomic.Int64
	tasksDropped     atomic.Int64
}

// NewWorkerPool creates the pool and starts its units immediately.
// ctx bounds the verifier calls; cancelling it aborts in-flight
// network work on user interrupt.
func NewWorkerPool(ctx context.Context, cfg PoolConfig, verifier Verifier, cb PoolCallbacks, log *zap.Logger) *WorkerPool {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultPoolConfig()
	if cfg.Units <= 0 {
		cfg.Units = def.Units
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}

	p := &WorkerPool{
		cfg:       cfg,
		verifier:  verifier,
		cb:        cb,
		log:       log,
		ctx:       ctx,
		units:     make(map[int]*unit, cfg.Units),
		events:    make(chan unitEvent, cfg.Units*2),
		stopCh:    make(chan struct{}),
		startedAt: time.Now(),
	}

	for i := 0; i < cfg.Units; i++ {
		u := &unit{id: i, tasks: make(chan *VerificationTask, 1)}
		p.units[i] = u
		p.idle = append(p.idle, i)
		p.unitWG.Add(1)
		go p.runUnit(u)
	}
	p.supWG.Add(1)
	go p.supervise()

	p.log.Info("worker pool started", zap.Int("units", cfg.Units))
	return p
}

// SubmitTask adds a task to the pending heap and tries to dispatch.
// Silently dropped once shutdown has begun.
func (p *WorkerPool) SubmitTask(t *VerificationTask) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shuttingDown {
		return
	}
	heap.Push(&p.pending, t)
	p.dispatchLocked()
}

// SubmitTasks adds a batch of tasks and dispatches what it can.
func (p *WorkerPool) SubmitTasks(tasks []*VerificationTask) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shuttingDown {
		return
	}
	for _, t := range tasks {
		heap.Push(&p.pending, t)
	}
	p.dispatchLocked()
}

// dispatchLocked hands pending tasks to idle units until one side runs
// out. A unit that cannot accept leaves both the unit and the task
// exactly where they were.
func (p *WorkerPool) dispatchLocked() {
	for len(p.idle) > 0 && p.pending.Len() > 0 && !p.shuttingDown {
		id := p.idle[len(p.idle)-1]
		u, ok := p.units[id]
		if !ok {
			p.idle = p.idle[:len(p.idle)-1]
			continue
		}
		task := heap.Pop(&p.pending).(*VerificationTask)
		select {
		case u.tasks <- task:
			p.idle = p.idle[:len(p.idle)-1]
		default:
			heap.Push(&p.pending, task)
			return
		}
	}
}

// runUnit is the unit goroutine: take a task, verify, report. A panic
// inside verification is reported as a crash and ends the unit for
// good.
func (p *WorkerPool) runUnit(u *unit) {
	defer p.unitWG.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case task := <-u.tasks:
			res, panicValue := p.process(u.id, task)
			if panicValue != nil {
				p.events <- unitEvent{unitID: u.id, task: task, crashed: true, panicValue: panicValue}
				return
			}
			p.events <- unitEvent{unitID: u.id, result: res}
		}
	}
}

func (p *WorkerPool) process(unitID int, task *VerificationTask) (res *VerificationResult, panicValue interface{}) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			panicValue = r
		}
	}()

	res = p.verifier.Verify(p.ctx, task)
	if res == nil {
		res = &VerificationResult{Mnemonic: task.Mnemonic, Score: task.Score}
	}
	res.UnitID = unitID
	return res, nil
}

// supervise is the pool's single event loop. All callbacks run here,
// so sinks and counters never see concurrent calls.
func (p *WorkerPool) supervise() {
	defer p.supWG.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case ev := <-p.events:
			p.handleEvent(ev, true)
		}
	}
}

func (p *WorkerPool) handleEvent(ev unitEvent, dispatch bool) {
	if ev.crashed {
		p.unitsCrashed.Add(1)
		p.mu.Lock()
		delete(p.units, ev.unitID)
		p.removeIdleLocked(ev.unitID)
		quiet := p.shuttingDown
		p.mu.Unlock()

		if !quiet {
			p.log.Error("verification unit crashed",
				zap.Int("unit", ev.unitID),
				zap.Any("panic", ev.panicValue),
				zap.String("task", mnemonic.ShortHash(ev.task.Mnemonic)))
			if p.cb.OnUnitCrash != nil {
				p.cb.OnUnitCrash(ev.unitID, ev.task)
			}
		}
		return
	}

	res := ev.result
	p.tasksCompleted.Add(1)
	p.addressesChecked.Add(int64(res.AddressesChecked))

	if p.cb.OnResult != nil {
		p.cb.OnResult(res)
	}

	if res.Match() {
		p.foundOnce.Do(func() {
			found := p.buildFound(res)
			p.log.Info("wallet found",
				zap.String("address", found.Address),
				zap.String("path", found.Path),
				zap.String("standard", found.Standard),
				zap.Int64("balance", found.Balance),
				zap.Int64("total_checked", found.TotalChecked))
			if p.cb.OnFound != nil {
				p.cb.OnFound(found)
			}
			p.beginShutdown()
		})
		return
	}

	if !dispatch {
		return
	}
	p.mu.Lock()
	if _, live := p.units[ev.unitID]; live && !p.shuttingDown {
		p.idle = append(p.idle, ev.unitID)
		p.dispatchLocked()
	}
	p.mu.Unlock()
}

func (p *WorkerPool) buildFound(res *VerificationResult) *FoundWallet {
	return &FoundWallet{
		Mnemonic:         res.Mnemonic,
		Address:          res.Address,
		Path:             res.Path,
		Standard:         res.Standard,
		Balance:          res.Balance,
		AddressesChecked: res.AddressesChecked,
		TotalChecked:     p.tasksCompleted.Load(),
		TotalElapsed:     time.Since(p.startedAt),
		FoundAt:          time.Now(),
	}
}

func (p *WorkerPool) removeIdleLocked(id int) {
	for i, v := range p.idle {
		if v == id {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			return
		}
	}
}

// WaitForCompletion polls until the pending heap is empty and every
// live unit is idle, the pool shuts down, or ctx ends. Returns
// ErrNoLiveUnits when all units have crashed.
func (p *WorkerPool) WaitForCompletion(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.mu.Lock()
			live := len(p.units)
			done := p.pending.Len() == 0 && len(p.idle) == live
			p.mu.Unlock()
			if live == 0 {
				return ErrNoLiveUnits
			}
			if done {
				return nil
			}
		}
	}
}

// beginShutdown flips the shutdown flag, drops pending tasks and
// signals all units. Safe to call from the supervisory path.
func (p *WorkerPool) beginShutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.shuttingDown = true
		dropped := p.pending.Len()
		p.pending = nil
		p.mu.Unlock()
		p.tasksDropped.Add(int64(dropped))
		close(p.stopCh)
		p.log.Info("worker pool shutting down", zap.Int("dropped_pending", dropped))
	})
}

// Shutdown stops the pool and blocks until every unit and the
// supervisor have exited. Units finish the task they hold; in-flight
// verification is not cancelled. Idempotent.
func (p *WorkerPool) Shutdown() {
	p.beginShutdown()
	p.unitWG.Wait()
	p.supWG.Wait()
	p.drainEvents()
}

// drainEvents accounts for results that landed after the supervisor
// stopped selecting. No dispatch happens here.
func (p *WorkerPool) drainEvents() {
	for {
		select {
		case ev := <-p.events:
			p.handleEvent(ev, false)
		default:
			return
		}
	}
}

// IsRunning reports whether the pool still accepts tasks.
func (p *WorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.shuttingDown
}

// GetStats returns a snapshot of pool counters.
func (p *WorkerPool) GetStats() PoolStats {
	p.mu.Lock()
	units := len(p.units)
	idle := len(p.idle)
	pending := p.pending.Len()
	down := p.shuttingDown
	p.mu.Unlock()

	return PoolStats{
		Units:            units,
		Idle:             idle,
		Pending:          pending,
		Completed:        p.tasksCompleted.Load(),
		AddressesChecked: p.addressesChecked.Load(),
		Crashed:          p.unitsCrashed.Load(),
		Dropped:          p.tasksDropped.Load(),
		ShuttingDown:     down,
		UptimeSeconds:    time.Since(p.startedAt).Seconds(),
	}
}

// taskHeap orders pending tasks highest score first, ties broken by
// earlier creation time.
type taskHeap []*VerificationTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score > h[j].Score
	}
	return h[i].CreatedAt.Before(h[j].CreatedAt)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) {
	*h = append(*h, x.(*VerificationTask))
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
