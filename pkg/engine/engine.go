package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Engine runs searches over hosted game states. It is safe for concurrent
// use: each call works on its own snapshot of the options, so Configure never
// affects a search that is already running.
type Engine struct {
	mu   sync.RWMutex
	opts Options

	// Cache shared across calls in CacheReuse mode
	cache *BoundCache
}

// CacheStats summarizes the reuse-mode cache
type CacheStats struct {
	Entries int     `json:"entries"`
	Lookups uint64  `json:"lookups"`
	Hits    uint64  `json:"hits"`
	Adds    uint64  `json:"adds"`
	HitRate float64 `json:"hit_rate"`
}

// NewEngine creates an engine with the given options
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &Engine{
		opts:  opts.clone(),
		cache: NewBoundCache(),
	}, nil
}

// Options returns a copy of the current options
func (e *Engine) Options() Options {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opts.clone()
}

// Configure applies fn to a copy of the options and installs the result if
// it validates. Searches already running keep their own snapshot.
func (e *Engine) Configure(fn func(*Options)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.opts.clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	e.opts = next
	return nil
}

// frozen returns the snapshot used for one call together with the cache it
// should use.
func (e *Engine) frozen() (Options, *BoundCache) {
	e.mu.RLock()
	opts := e.opts
	e.mu.RUnlock()

	opts = opts.snapshot()
	switch opts.CacheMode {
	case CacheNewPerSearch:
		return opts, NewBoundCache()
	case CacheReuse:
		return opts, e.cache
	}
	return opts, nil
}

// Search evaluates state to maxDepth plies. Cancelling ctx stops the search
// early; the partial result is returned with Completed unset.
func (e *Engine) Search(ctx context.Context, state State, maxDepth int) (*SearchResult, error) {
	if err := checkRoot(state, maxDepth); err != nil {
		return nil, err
	}
	opts, cache := e.frozen()

	ctx, span := tracer.Start(ctx, "engine.Search",
		trace.WithAttributes(
			attribute.String("search.state", state.Key()),
			attribute.Int("search.max_depth", maxDepth),
			attribute.String("search.parallelism", opts.Parallelism.String()),
			attribute.String("search.cache_mode", opts.CacheMode.String()),
		),
	)
	defer span.End()

	r, err := e.run(ctx, opts, cache, state, maxDepth)
	observe("search", r, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	annotate(span, r)

	opts.Logger.Info("search finished",
		slog.String("state", state.Key()),
		slog.Int("depth", maxDepth),
		slog.Float64("evaluation", r.Evaluation),
		slog.Int64("leaves", r.Leaves),
		slog.Int64("internal_nodes", r.InternalNodes),
		slog.Bool("completed", r.Completed),
		slog.Duration("elapsed", r.SearchTime),
	)
	return r, nil
}

// run executes one depth-bounded search with a frozen configuration
func (e *Engine) run(ctx context.Context, opts Options, cache *BoundCache, state State, maxDepth int) (*SearchResult, error) {
	start := time.Now()
	s := newSearch(opts, maxDepth, cache)
	r, err := s.root(ctx, state, maxDepth)
	if err != nil {
		return nil, err
	}
	r.MaxDepth = maxDepth
	r.SearchTime = time.Since(start)
	r.Completed = ctx.Err() == nil
	r.Forks = s.tm.Forks()
	if cache != nil && opts.CacheMode == CacheReuse {
		cacheEntries.Set(float64(cache.Len()))
	}
	return r, nil
}

// FillCache populates the reuse-mode cache with a sequential search of state
// to depth. It returns ErrFillCacheMode unless the engine reuses its cache.
func (e *Engine) FillCache(ctx context.Context, state State, depth int) error {
	if err := checkRoot(state, depth); err != nil {
		return err
	}
	opts, cache := e.frozen()
	if opts.CacheMode != CacheReuse {
		return fmt.Errorf("%w: cache mode is %v", ErrFillCacheMode, opts.CacheMode)
	}
	opts.Parallelism = ParallelismNone

	ctx, span := tracer.Start(ctx, "engine.FillCache",
		trace.WithAttributes(
			attribute.String("search.state", state.Key()),
			attribute.Int("search.max_depth", depth),
		),
	)
	defer span.End()

	r, err := e.run(ctx, opts, cache, state, depth)
	observe("fill", r, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	opts.Logger.Debug("cache filled",
		slog.String("state", state.Key()),
		slog.Int("depth", depth),
		slog.Int("entries", cache.Len()),
	)
	return nil
}

// FillCacheInBackground fills the cache from every state concurrently, at
// most MaxDegreeOfParallelism at a time. The returned channel yields the
// first error, or nil, once all fills are done. Configuration errors are
// returned immediately.
func (e *Engine) FillCacheInBackground(ctx context.Context, depth int, states ...State) (<-chan error, error) {
	if e.Options().CacheMode != CacheReuse {
		return nil, ErrFillCacheMode
	}
	for _, st := range states {
		if err := checkRoot(st, depth); err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Options().MaxDegreeOfParallelism)
	done := make(chan error, 1)
	go func() {
		for _, st := range states {
			g.Go(func() error {
				return e.FillCache(gctx, st, depth)
			})
		}
		done <- g.Wait()
		close(done)
	}()
	return done, nil
}

// ClearCache empties the reuse-mode cache
func (e *Engine) ClearCache() {
	e.cache.Flush()
	cacheEntries.Set(0)
}

// ClearCacheIf removes the entries whose state matches pred
func (e *Engine) ClearCacheIf(pred func(State) bool) int {
	n := e.cache.ClearIf(pred)
	cacheEntries.Set(float64(e.cache.Len()))
	return n
}

// Cache returns the reuse-mode cache
func (e *Engine) Cache() *BoundCache {
	return e.cache
}

// CacheStats returns statistics of the reuse-mode cache
func (e *Engine) CacheStats() CacheStats {
	lookups, hits, adds := e.cache.Stats()
	return CacheStats{
		Entries: e.cache.Len(),
		Lookups: lookups,
		Hits:    hits,
		Adds:    adds,
		HitRate: e.cache.HitRate(),
	}
}

func checkRoot(state State, depth int) error {
	if state == nil {
		return ErrNilState
	}
	if depth < 1 {
		return fmt.Errorf("%w: got %d", ErrBadDepth, depth)
	}
	return nil
}

func annotate(span trace.Span, r *SearchResult) {
	span.SetAttributes(
		attribute.Float64("search.evaluation", r.Evaluation),
		attribute.Int64("search.leaves", r.Leaves),
		attribute.Int64("search.internal_nodes", r.InternalNodes),
		attribute.Int64("search.forks", r.Forks),
		attribute.Bool("search.completed", r.Completed),
	)
	span.SetStatus(codes.Ok, "")
}
