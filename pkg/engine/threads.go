package engine

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Future holds the outcome of a unit of search work
type Future struct {
	done   chan struct{}
	result *SearchResult
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(r *SearchResult, err error) {
	f.result, f.err = r, err
	close(f.done)
}

// Wait blocks until the work finishes
func (f *Future) Wait() (*SearchResult, error) {
	<-f.done
	return f.result, f.err
}

// Ready reports whether Wait would return immediately
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// runInline executes work on the caller's goroutine
func runInline(work func() (*SearchResult, error)) *Future {
	f := newFuture()
	f.complete(work())
	return f
}

// ThreadManager decides whether the expansion of a child of a node at depth
// runs inline or as new concurrent work. Implementations never drop work and
// never block waiting for capacity, so nested searches cannot deadlock.
type ThreadManager interface {
	Invoke(depth int, work func() (*SearchResult, error)) *Future
	Forks() int64
}

// newThreadManager builds the strategy selected by opts for one search call
func newThreadManager(opts *Options, maxDepth int) ThreadManager {
	switch opts.Parallelism {
	case ParallelismFirstLevel:
		return &levelManager{level: 1}
	case ParallelismLevel:
		return &levelManager{level: opts.ParallelismLevel}
	case ParallelismTotal:
		return newTotalManager(opts.MaxDegreeOfParallelism, maxDepth)
	}
	return sequentialManager{}
}

// sequentialManager runs everything inline
type sequentialManager struct{}

func (sequentialManager) Invoke(_ int, work func() (*SearchResult, error)) *Future {
	return runInline(work)
}

func (sequentialManager) Forks() int64 { return 0 }

// levelManager forks only the children of nodes at depth level-1
type levelManager struct {
	level int
	forks atomic.Int64
}

func (m *levelManager) Invoke(depth int, work func() (*SearchResult, error)) *Future {
	if depth != m.level-1 {
		return runInline(work)
	}
	m.forks.Add(1)
	f := newFuture()
	go func() {
		f.complete(work())
	}()
	return f
}

func (m *levelManager) Forks() int64 { return m.forks.Load() }

// totalManager forks while fewer than maxDegree forked units are in flight.
// TryAcquire is the single atomic check-and-increment; the slot is released
// when the forked work completes.
type totalManager struct {
	sem      *semaphore.Weighted
	maxDepth int
	forks    atomic.Int64
	inFlight atomic.Int64
}

func newTotalManager(maxDegree, maxDepth int) *totalManager {
	return &totalManager{
		sem:      semaphore.NewWeighted(int64(maxDegree)),
		maxDepth: maxDepth,
	}
}

func (m *totalManager) Invoke(depth int, work func() (*SearchResult, error)) *Future {
	// Children of a node one step above the horizon are leaves; forking them
	// costs more than evaluating them.
	if depth >= m.maxDepth-1 || !m.sem.TryAcquire(1) {
		return runInline(work)
	}
	m.forks.Add(1)
	m.inFlight.Add(1)
	f := newFuture()
	go func() {
		defer func() {
			m.inFlight.Add(-1)
			m.sem.Release(1)
		}()
		f.complete(work())
	}()
	return f
}

func (m *totalManager) Forks() int64 { return m.forks.Load() }

// InFlight returns the number of forked units currently running
func (m *totalManager) InFlight() int64 { return m.inFlight.Load() }
