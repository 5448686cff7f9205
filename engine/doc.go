// Package engine provides the verification stage of the recovery
// pipeline.
// This package implements:
// - Task queue with idempotent enqueue and state tracking
// - Worker pool dispatching tasks to isolated units
// - Recovery service orchestrating queue, pool, and result sinks
package engine
