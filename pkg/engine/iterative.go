package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProgressFunc is called after every completed round of an iterative search
type ProgressFunc func(depth int, r *SearchResult)

// IterativeOptions configures an iterative-deepening search
type IterativeOptions struct {
	Depths   []int         // Depth bounds to search, strictly increasing
	Timeout  time.Duration // Overall time limit (0 = none)
	Progress ProgressFunc  // Optional per-round callback
}

// depthRange returns start..last inclusive
func depthRange(start, last int) []int {
	depths := make([]int, 0, last-start+1)
	for d := start; d <= last; d++ {
		depths = append(depths, d)
	}
	return depths
}

// IterativeSearch searches state at every depth from startDepth to maxDepth
// and returns the result of the deepest round that completed.
func (e *Engine) IterativeSearch(ctx context.Context, state State, startDepth, maxDepth int) (*SearchResult, error) {
	if startDepth >= maxDepth {
		return nil, fmt.Errorf("%w: start %d, max %d", ErrBadDepthRange, startDepth, maxDepth)
	}
	if startDepth < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadDepth, startDepth)
	}
	return e.Iterate(ctx, state, IterativeOptions{Depths: depthRange(startDepth, maxDepth)})
}

// IterativeSearchTimeout is IterativeSearch bounded by timeout
func (e *Engine) IterativeSearchTimeout(ctx context.Context, state State, startDepth, maxDepth int, timeout time.Duration) (*SearchResult, error) {
	if startDepth >= maxDepth {
		return nil, fmt.Errorf("%w: start %d, max %d", ErrBadDepthRange, startDepth, maxDepth)
	}
	if startDepth < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadDepth, startDepth)
	}
	return e.Iterate(ctx, state, IterativeOptions{
		Depths:  depthRange(startDepth, maxDepth),
		Timeout: timeout,
	})
}

// IterativeSearchDepths searches state at each of the given depths in order
func (e *Engine) IterativeSearchDepths(ctx context.Context, state State, depths []int) (*SearchResult, error) {
	return e.Iterate(ctx, state, IterativeOptions{Depths: depths})
}

// Iterate runs an iterative-deepening search. Rounds stop at the first one
// cut short by cancellation or timeout, or once a round proves the tree
// exhausted. The result is never nil on success: when not even the first
// round completed, its partial result is returned with Completed unset.
func (e *Engine) Iterate(ctx context.Context, state State, iopts IterativeOptions) (*SearchResult, error) {
	if err := checkDepths(iopts.Depths); err != nil {
		return nil, err
	}
	if err := checkRoot(state, iopts.Depths[0]); err != nil {
		return nil, err
	}
	if iopts.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %v", iopts.Timeout)
	}
	opts, cache := e.frozen()

	if iopts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iopts.Timeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "engine.Iterate",
		trace.WithAttributes(
			attribute.String("search.state", state.Key()),
			attribute.IntSlice("search.depths", iopts.Depths),
			attribute.Int64("search.timeout_ms", iopts.Timeout.Milliseconds()),
		),
	)
	defer span.End()

	start := time.Now()
	var best *SearchResult
	var forks int64
	for _, depth := range iopts.Depths {
		r, err := e.round(ctx, opts, cache, state, depth)
		if err != nil {
			observe("iterate", nil, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		forks += r.Forks

		if !r.Completed {
			opts.Logger.Debug("iterative round cut short",
				slog.Int("depth", depth),
				slog.Duration("elapsed", time.Since(start)),
			)
			if best == nil {
				best = r
			}
			break
		}

		best = r
		best.DepthReached = depth
		if iopts.Progress != nil {
			iopts.Progress(depth, r)
		}
		if r.AllChildrenAreDeadEnds {
			opts.Logger.Debug("tree exhausted", slog.Int("depth", depth))
			break
		}
	}

	best.SearchTime = time.Since(start)
	best.Forks = forks
	observe("iterate", best, nil)
	iterativeDepth.Observe(float64(best.DepthReached))
	annotate(span, best)
	span.SetAttributes(attribute.Int("search.depth_reached", best.DepthReached))

	opts.Logger.Info("iterative search finished",
		slog.String("state", state.Key()),
		slog.Int("depth_reached", best.DepthReached),
		slog.Float64("evaluation", best.Evaluation),
		slog.Bool("completed", best.Completed),
		slog.Duration("elapsed", best.SearchTime),
	)
	return best, nil
}

// round runs one iterative round inside its own span
func (e *Engine) round(ctx context.Context, opts Options, cache *BoundCache, state State, depth int) (*SearchResult, error) {
	ctx, span := tracer.Start(ctx, "engine.Iterate.round",
		trace.WithAttributes(attribute.Int("search.max_depth", depth)),
	)
	defer span.End()

	r, err := e.run(ctx, opts, cache, state, depth)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	opts.Logger.Debug("iterative round",
		slog.Int("depth", depth),
		slog.Float64("evaluation", r.Evaluation),
		slog.Int64("leaves", r.Leaves),
		slog.Bool("completed", r.Completed),
		slog.Duration("elapsed", r.SearchTime),
	)
	annotate(span, r)
	return r, nil
}

func checkDepths(depths []int) error {
	if len(depths) == 0 {
		return fmt.Errorf("%w: empty", ErrBadDepthList)
	}
	for i, d := range depths {
		if d < 1 {
			return fmt.Errorf("%w: depth %d at %d", ErrBadDepthList, d, i)
		}
		if i > 0 && d <= depths[i-1] {
			return fmt.Errorf("%w: %d follows %d", ErrBadDepthList, d, depths[i-1])
		}
	}
	return nil
}
