package engine

import "time"

// SearchResult is the outcome of evaluating one node
type SearchResult struct {
	Evaluation    float64 // Minimax value from Max's perspective
	StateSequence []State // Best line; head is the immediate next move. Empty below a chance node
	Leaves        int64   // Leaf evaluations in the subtree
	InternalNodes int64   // Expanded nodes in the subtree

	FullTreeSearchedOrPruned bool // No part of the subtree was cut by horizon or cancellation
	AllChildrenAreDeadEnds   bool // The subtree is exhausted; implies FullTreeSearchedOrPruned
	ChildrenPruned           bool // Some children were skipped by alpha-beta or die-early

	MaxDepth     int           // Depth bound of the round that produced this result
	DepthReached int           // Deepest completed iterative round (iterative searches only)
	SearchTime   time.Duration // Wall-clock time of the call
	Completed    bool          // The producing round finished before cancellation
	Forks        int64         // Units of work run concurrently
}

// NextMove returns the first state of the best line, or nil
func (r *SearchResult) NextMove() State {
	if r == nil || len(r.StateSequence) == 0 {
		return nil
	}
	return r.StateSequence[0]
}

// leafResult builds a one-node result
func leafResult(v float64, sound, deadEnd bool) *SearchResult {
	return &SearchResult{
		Evaluation:               v,
		Leaves:                   1,
		FullTreeSearchedOrPruned: sound || deadEnd,
		AllChildrenAreDeadEnds:   deadEnd,
	}
}
