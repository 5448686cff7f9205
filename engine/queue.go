package engine

import (
	"sort"
	"sync"
)

// TaskQueue tracks candidate sentences through their lifecycle:
// queued, processing, then completed or failed, each exactly once.
// Enqueue is idempotent and terminal states are permanent, so the
// queue never holds a sentence already verified or in flight.
type TaskQueue struct {
	mu         sync.RWMutex
	queued     []*VerificationTask
	queuedSet  map[string]struct{}
	processing map[string]struct{}
	completed  map[string]struct{}
	failed     map[string]struct{}
}

// QueueCounts is a snapshot of queue state by lifecycle stage.
type QueueCounts struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// NewTaskQueue creates an empty task queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		queuedSet:  make(map[string]struct{}),
		processing: make(map[string]struct{}),
		completed:  make(map[string]struct{}),
		failed:     make(map[string]struct{}),
	}
}

// Enqueue appends a task unless its sentence is already queued,
// processing, or terminal. Returns true when the task was accepted.
func (q *TaskQueue) Enqueue(t *VerificationTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueueLocked(t)
}

// EnqueueAll enqueues a batch, returning how many were accepted.
func (q *TaskQueue) EnqueueAll(tasks []*VerificationTask) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	accepted := 0
	for _, t := range tasks {
		if q.enqueueLocked(t) {
			accepted++
		}
	}
	return accepted
}

func (q *TaskQueue) enqueueLocked(t *VerificationTask) bool {
	m := t.Mnemonic
	if _, ok := q.queuedSet[m]; ok {
		return false
	}
	if _, ok := q.processing[m]; ok {
		return false
	}
	if _, ok := q.completed[m]; ok {
		return false
	}
	if _, ok := q.failed[m]; ok {
		return false
	}
	q.queued = append(q.queued, t)
	q.queuedSet[m] = struct{}{}
	return true
}

// Dequeue pops the front task and moves its sentence to processing.
func (q *TaskQueue) Dequeue() (*VerificationTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queued) == 0 {
		return nil, false
	}
	t := q.queued[0]
	q.queued = q.queued[1:]
	delete(q.queuedSet, t.Mnemonic)
	q.processing[t.Mnemonic] = struct{}{}
	return t, true
}

// MarkCompleted moves a processing sentence to completed. The
// transition is permanent; a completed sentence is never requeued.
// Returns false if the sentence was not processing.
func (q *TaskQueue) MarkCompleted(sentence string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.processing[sentence]; !ok {
		return false
	}
	delete(q.processing, sentence)
	q.completed[sentence] = struct{}{}
	return true
}

// MarkFailed moves a processing sentence to failed, permanently. Used
// for tasks lost to unit crashes so the in-flight set stays truthful.
func (q *TaskQueue) MarkFailed(sentence string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.processing[sentence]; !ok {
		return false
	}
	delete(q.processing, sentence)
	q.failed[sentence] = struct{}{}
	return true
}

// SortByProbability reorders the queued tasks in place, highest score
// first. Processing and terminal sets are untouched. The sort is
// stable so equal scores keep their enqueue order.
func (q *TaskQueue) SortByProbability() {
	q.mu.Lock()
	defer q.mu.Unlock()

	sort.SliceStable(q.queued, func(i, j int) bool {
		return q.queued[i].Score > q.queued[j].Score
	})
}

// Counts returns a snapshot of the queue without mutating it.
func (q *TaskQueue) Counts() QueueCounts {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return QueueCounts{
		Queued:     len(q.queued),
		Processing: len(q.processing),
		Completed:  len(q.completed),
		Failed:     len(q.failed),
	}
}

// Contains reports whether the sentence is known to the queue in any
// state.
func (q *TaskQueue) Contains(sentence string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if _, ok := q.queuedSet[sentence]; ok {
		return true
	}
	if _, ok := q.processing[sentence]; ok {
		return true
	}
	if _, ok := q.completed[sentence]; ok {
		return true
	}
	_, ok := q.failed[sentence]
	return ok
}

// Clear drops all queued tasks, returning how many were dropped.
// Processing and terminal sets are preserved.
func (q *TaskQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.queued)
	q.queued = nil
	q.queuedSet = make(map[string]struct{})
	return dropped
}
