package api

import (
	"context"
	"sync/atomic"
	"time"
)

// WorkKind selects the pool a request draws from
type WorkKind int

const (
	WorkSearch  WorkKind = iota // Single depth-bounded searches
	WorkIterate                 // Iterative deepening, streamed or not
)

// WorkerPool bounds concurrent searches. Iterative deepening runs much
// longer than a single search, so it has its own smaller pool.
type WorkerPool struct {
	sems   [2]chan struct{}
	queued [2]atomic.Int64
	active [2]atomic.Int64
	total  [2]atomic.Int64
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	MaxSearchWorkers  int // Max concurrent searches (default: 8)
	MaxIterateWorkers int // Max concurrent iterative searches (default: 2)
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxSearchWorkers:  8,
		MaxIterateWorkers: 2,
	}
}

// NewWorkerPool creates a new worker pool with the given configuration
func NewWorkerPool(config PoolConfig) *WorkerPool {
	def := DefaultPoolConfig()
	if config.MaxSearchWorkers <= 0 {
		config.MaxSearchWorkers = def.MaxSearchWorkers
	}
	if config.MaxIterateWorkers <= 0 {
		config.MaxIterateWorkers = def.MaxIterateWorkers
	}

	p := &WorkerPool{}
	p.sems[WorkSearch] = make(chan struct{}, config.MaxSearchWorkers)
	p.sems[WorkIterate] = make(chan struct{}, config.MaxIterateWorkers)
	return p
}

// Acquire waits for a slot of the given kind. It returns the context error
// if ctx is done first.
func (p *WorkerPool) Acquire(ctx context.Context, kind WorkKind) error {
	p.queued[kind].Add(1)
	defer p.queued[kind].Add(-1)

	select {
	case p.sems[kind] <- struct{}{}:
		p.active[kind].Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AcquireWithTimeout is Acquire bounded by timeout
func (p *WorkerPool) AcquireWithTimeout(kind WorkKind, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.Acquire(ctx, kind)
}

// TryAcquire takes a slot without blocking and reports whether it did
func (p *WorkerPool) TryAcquire(kind WorkKind) bool {
	select {
	case p.sems[kind] <- struct{}{}:
		p.active[kind].Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire
func (p *WorkerPool) Release(kind WorkKind) {
	p.active[kind].Add(-1)
	p.total[kind].Add(1)
	<-p.sems[kind]
}

// PoolStats is a snapshot of the pool counters
type PoolStats struct {
	ActiveSearch  int64 `json:"active_search"`
	ActiveIterate int64 `json:"active_iterate"`
	QueuedSearch  int64 `json:"queued_search"`
	QueuedIterate int64 `json:"queued_iterate"`
	TotalSearch   int64 `json:"total_search"`
	TotalIterate  int64 `json:"total_iterate"`
	MaxSearch     int   `json:"max_search"`
	MaxIterate    int   `json:"max_iterate"`
}

// Stats returns current pool statistics
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ActiveSearch:  p.active[WorkSearch].Load(),
		ActiveIterate: p.active[WorkIterate].Load(),
		QueuedSearch:  p.queued[WorkSearch].Load(),
		QueuedIterate: p.queued[WorkIterate].Load(),
		TotalSearch:   p.total[WorkSearch].Load(),
		TotalIterate:  p.total[WorkIterate].Load(),
		MaxSearch:     cap(p.sems[WorkSearch]),
		MaxIterate:    cap(p.sems[WorkIterate]),
	}
}
