package engine

import (
	"context"
	"math"
)

// pendingChild is a child whose evaluation has been scheduled
type pendingChild struct {
	state  State
	alpha  float64 // Window the child was evaluated with
	beta   float64
	bound  bool // Value came from a one-sided cache bound
	future *Future
}

// exact reports whether r holds the child's true value rather than a bound
func (p *pendingChild) exact(r *SearchResult) bool {
	if p.bound {
		return false
	}
	return r.InternalNodes == 0 || (r.Evaluation > p.alpha && r.Evaluation < p.beta)
}

// choice tracks the best child seen so far for one player
type choice struct {
	owner   Player
	favor   bool // FavorShortPaths
	value   float64
	line    []State
	present bool
}

// consider replaces the current choice when the candidate is strictly better
// for the owner, or equal, exact and preferred by the path-length tie-break:
// Max wins sooner, Min loses later.
func (c *choice) consider(v float64, line []State, exact bool) {
	if !c.present {
		c.value, c.line, c.present = v, line, true
		return
	}
	better := v > c.value
	if c.owner == Min {
		better = v < c.value
	}
	if !better && c.favor && exact && v == c.value {
		if c.owner == Max {
			better = len(line) < len(c.line)
		} else {
			better = len(line) > len(c.line)
		}
	}
	if better {
		c.value, c.line = v, line
	}
}

// expandDeterministic evaluates the children of a node owned by owner with
// alpha-beta pruning. Children are consumed strictly in order so the chosen
// line does not depend on how work was distributed.
func (s *search) expandDeterministic(sc searchContext, state State, owner Player, children []State) (*SearchResult, error) {
	alpha, beta := sc.alpha, sc.beta
	if s.opts.DisableAlphaBeta {
		alpha, beta = math.Inf(-1), math.Inf(1)
	}
	childPath := extendPath(sc.path, state)
	remaining := sc.maxDepth - sc.depth - 1

	ctx, cancel := context.WithCancel(sc.ctx)
	defer cancel()

	agg := &SearchResult{
		InternalNodes:            1,
		FullTreeSearchedOrPruned: true,
		AllChildrenAreDeadEnds:   true,
	}
	best := choice{owner: owner, favor: s.opts.FavorShortPaths}
	stopped := false

	// accept folds one finished child into the aggregate and reports whether
	// the remaining siblings became irrelevant.
	accept := func(p *pendingChild, r *SearchResult) bool {
		agg.Leaves += r.Leaves
		agg.InternalNodes += r.InternalNodes
		if !r.FullTreeSearchedOrPruned {
			agg.FullTreeSearchedOrPruned = false
		}
		if !r.AllChildrenAreDeadEnds {
			agg.AllChildrenAreDeadEnds = false
		}
		if r.ChildrenPruned {
			agg.ChildrenPruned = true
		}

		line := make([]State, 0, len(r.StateSequence)+1)
		line = append(line, p.state)
		line = append(line, r.StateSequence...)
		v := r.Evaluation
		best.consider(v, line, p.exact(r))

		if owner == Max {
			alpha = math.Max(alpha, v)
		} else {
			beta = math.Min(beta, v)
		}
		if !s.opts.DisableAlphaBeta && alpha >= beta {
			return true
		}
		if s.opts.DieEarly && s.opts.isWin(owner, v) && !(s.opts.FavorShortPaths && len(line) > 1) {
			return true
		}
		return false
	}

	var pending []*pendingChild

	// drain consumes finished children from the front of the queue. With
	// wait set it blocks until every scheduled child is done.
	drain := func(wait bool) error {
		for len(pending) > 0 {
			p := pending[0]
			if !wait && !p.future.Ready() {
				return nil
			}
			r, err := p.future.Wait()
			pending = pending[1:]
			if err != nil {
				cancel()
				for _, rest := range pending {
					rest.future.Wait()
				}
				pending = nil
				return err
			}
			if stopped {
				continue
			}
			if accept(p, r) {
				stopped = true
				agg.ChildrenPruned = true
				cancel()
			}
		}
		return nil
	}

	for i, child := range children {
		if stopped {
			break
		}
		if ctx.Err() != nil {
			agg.FullTreeSearchedOrPruned = false
			break
		}

		// Without alpha-beta every child gets the full window. With the
		// tie-break active a child equal to the current bound must still come
		// back exact, so the window is widened by one ulp.
		ca, cb := alpha, beta
		if s.opts.DisableAlphaBeta {
			ca, cb = math.Inf(-1), math.Inf(1)
		}
		if s.opts.FavorShortPaths {
			if owner == Max {
				ca = math.Nextafter(ca, math.Inf(-1))
			} else {
				cb = math.Nextafter(cb, math.Inf(1))
			}
		}
		p := &pendingChild{state: child, alpha: ca, beta: cb}
		if s.cache != nil {
			key := makeCacheKey(s.opts.CacheKeying, child, remaining, childPath)
			if hit, ok := s.cache.lookup(key, ca, cb, s.opts.MinScore, s.opts.MaxScore); ok {
				p.bound = !hit.exact
				p.future = newFuture()
				p.future.complete(&SearchResult{
					Evaluation:               hit.value,
					StateSequence:            hit.sequence,
					Leaves:                   1,
					FullTreeSearchedOrPruned: hit.sound || hit.deadEnd,
					AllChildrenAreDeadEnds:   hit.exact && hit.deadEnd,
				}, nil)
				pending = append(pending, p)
				if err := drain(false); err != nil {
					return nil, err
				}
				continue
			}
		}

		childSC := searchContext{
			ctx:             ctx,
			maxDepth:        sc.maxDepth,
			depth:           sc.depth + 1,
			alpha:           ca,
			beta:            cb,
			path:            childPath,
			pruneAtMaxDepth: sc.pruneAtMaxDepth,
		}
		p.future = s.tm.Invoke(sc.depth, func() (*SearchResult, error) {
			return s.evaluate(childSC, children[i])
		})
		pending = append(pending, p)
		if err := drain(false); err != nil {
			return nil, err
		}
	}
	if err := drain(true); err != nil {
		return nil, err
	}

	if !best.present {
		// Cancelled before any child finished: fall back to the static value.
		v, err := s.leafValue(sc, state)
		if err != nil {
			return nil, err
		}
		agg.Evaluation = v
		agg.Leaves++
		agg.FullTreeSearchedOrPruned = false
		agg.AllChildrenAreDeadEnds = false
		return agg, nil
	}

	agg.Evaluation = best.value
	agg.StateSequence = best.line
	if agg.ChildrenPruned || !agg.FullTreeSearchedOrPruned {
		agg.AllChildrenAreDeadEnds = false
	}
	return agg, nil
}
