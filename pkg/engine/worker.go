package engine

import (
	"context"
	"fmt"
	"math"
)

// searchContext is the per-node view of a search. Each recursive call gets
// its own copy; path is never shared with siblings.
type searchContext struct {
	ctx             context.Context
	maxDepth        int
	depth           int
	alpha           float64
	beta            float64
	path            []State
	pruneAtMaxDepth bool
}

// search holds everything frozen for one engine call
type search struct {
	opts  Options
	tm    ThreadManager
	cache *BoundCache // nil when caching is disabled
}

func newSearch(opts Options, maxDepth int, cache *BoundCache) *search {
	return &search{
		opts:  opts,
		tm:    newThreadManager(&opts, maxDepth),
		cache: cache,
	}
}

// root starts a search at state with the full window
func (s *search) root(ctx context.Context, state State, maxDepth int) (*SearchResult, error) {
	sc := searchContext{
		ctx:             ctx,
		maxDepth:        maxDepth,
		alpha:           math.Inf(-1),
		beta:            math.Inf(1),
		pruneAtMaxDepth: s.opts.PruneAtMaxDepth,
	}
	return s.evaluate(sc, state)
}

// evaluate is the recursive dispatcher for one node
func (s *search) evaluate(sc searchContext, state State) (*SearchResult, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if turn := state.Turn(); turn != Max && turn != Min {
		return nil, fmt.Errorf("%w: state %q", ErrEmptyPlayer, state.Key())
	}

	if sc.depth > 0 && len(s.opts.Pruners) > 0 {
		prune, err := pruneChain(s.opts.Pruners, state, sc.depth, sc.path)
		if err != nil {
			return nil, err
		}
		if prune {
			return s.leaf(sc, state, true, false)
		}
	}

	if sc.ctx.Err() != nil {
		return s.leaf(sc, state, false, false)
	}
	if sc.depth >= sc.maxDepth && !s.unstable(sc, state) {
		return s.leaf(sc, state, sc.pruneAtMaxDepth, false)
	}

	switch state.Kind() {
	case KindDeterministic:
		ds, ok := state.(DeterministicState)
		if !ok {
			return nil, fmt.Errorf("%w: %T tagged deterministic", ErrBadStateKind, state)
		}
		children, err := ds.Successors()
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return s.terminal(sc, state)
		}
		r, err := s.expandDeterministic(sc, state, state.Turn(), children)
		return s.finish(sc, state, r, err)
	case KindChance:
		cs, ok := state.(ChanceState)
		if !ok {
			return nil, fmt.Errorf("%w: %T tagged chance", ErrBadStateKind, state)
		}
		branches, err := cs.Branches()
		if err != nil {
			return nil, err
		}
		if len(branches) == 0 {
			return s.terminal(sc, state)
		}
		r, err := s.expandChance(sc, state, branches)
		return s.finish(sc, state, r, err)
	}
	return nil, fmt.Errorf("%w: %d", ErrBadStateKind, state.Kind())
}

// finish records an expanded node's result in the cache
func (s *search) finish(sc searchContext, state State, r *SearchResult, err error) (*SearchResult, error) {
	if err != nil {
		return nil, err
	}
	if err := s.remember(sc, state, r); err != nil {
		return nil, err
	}
	return r, nil
}

// terminal handles a state without successors
func (s *search) terminal(sc searchContext, state State) (*SearchResult, error) {
	if sc.depth == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoNeighbors, state.Key())
	}
	return s.leaf(sc, state, true, true)
}

// leaf evaluates state without expanding it
func (s *search) leaf(sc searchContext, state State, sound, deadEnd bool) (*SearchResult, error) {
	v, err := s.leafValue(sc, state)
	if err != nil {
		return nil, err
	}
	return leafResult(v, sound, deadEnd), nil
}

func (s *search) leafValue(sc searchContext, state State) (float64, error) {
	if s.opts.Evaluate != nil {
		return s.opts.Evaluate(state, sc.depth, sc.path)
	}
	return state.Evaluate(sc.depth, sc.path)
}

// unstable reports whether a horizon state keeps expanding
func (s *search) unstable(sc searchContext, state State) bool {
	if s.opts.IsUnstable == nil {
		return false
	}
	if s.opts.QuiescenceLimit > 0 && sc.depth >= sc.maxDepth+s.opts.QuiescenceLimit {
		return false
	}
	return s.opts.IsUnstable(state, sc.depth, sc.path)
}

// remember stores an expanded node's result. Under KeyState only sound
// results are kept since they do not depend on the depth bound; results
// produced after cancellation are never kept.
func (s *search) remember(sc searchContext, state State, r *SearchResult) error {
	if s.cache == nil || sc.ctx.Err() != nil {
		return nil
	}
	if s.opts.CacheKeying == KeyState && !r.FullTreeSearchedOrPruned {
		return nil
	}

	key := makeCacheKey(s.opts.CacheKeying, state, sc.maxDepth-sc.depth, sc.path)
	v := r.Evaluation
	exact := state.Kind() == KindChance || (v > sc.alpha && v < sc.beta)
	switch {
	case exact:
		s.cache.addExactLine(key, state, v, r.StateSequence, r.FullTreeSearchedOrPruned, r.AllChildrenAreDeadEnds)
		return nil
	case v <= sc.alpha:
		return s.cache.addBound(key, state, v, false, r.FullTreeSearchedOrPruned)
	default:
		return s.cache.addBound(key, state, v, true, r.FullTreeSearchedOrPruned)
	}
}
