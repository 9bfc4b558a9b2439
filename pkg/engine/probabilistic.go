package engine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// expandChance evaluates a chance node as the probability-weighted sum of its
// branches. Every branch is an independent sub-search over its outcomes with
// an unbounded window, since branches cannot prune each other. The best line
// stops here: which outcome happens is decided later by sampling.
func (s *search) expandChance(sc searchContext, state State, branches []Branch) (*SearchResult, error) {
	weights := make([]float64, len(branches))
	for i, b := range branches {
		if !(b.Probability > 0) || math.IsInf(b.Probability, 0) {
			return nil, fmt.Errorf("%w: branch %d of %q has probability %g", ErrBadProbability, i, state.Key(), b.Probability)
		}
		weights[i] = b.Probability
	}

	owner := state.Turn()
	branchSC := sc
	branchSC.alpha, branchSC.beta = math.Inf(-1), math.Inf(1)

	futures := make([]*Future, len(branches))
	for i, b := range branches {
		if len(b.Outcomes) == 0 {
			// Nothing to choose after this roll: the state stands as it is.
			futures[i] = runInline(func() (*SearchResult, error) {
				return s.leaf(sc, state, true, true)
			})
			continue
		}
		futures[i] = s.tm.Invoke(sc.depth, func() (*SearchResult, error) {
			return s.expandDeterministic(branchSC, state, owner, b.Outcomes)
		})
	}

	values := make([]float64, len(branches))
	agg := &SearchResult{
		FullTreeSearchedOrPruned: true,
		AllChildrenAreDeadEnds:   true,
	}
	var firstErr error
	for i, f := range futures {
		r, err := f.Wait()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		values[i] = r.Evaluation
		agg.Leaves += r.Leaves
		agg.InternalNodes += r.InternalNodes
		if r.ChildrenPruned {
			agg.ChildrenPruned = true
		}
		if !r.FullTreeSearchedOrPruned {
			agg.FullTreeSearchedOrPruned = false
		}
		// A chance node is a dead end only if every branch was exhausted.
		if !r.AllChildrenAreDeadEnds || !r.FullTreeSearchedOrPruned {
			agg.AllChildrenAreDeadEnds = false
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	agg.Evaluation = floats.Dot(weights, values)
	return agg, nil
}
