package engine

// Pruner decides whether a node is evaluated as a leaf instead of expanded.
// A pruned node is treated as soundly resolved.
type Pruner interface {
	ShouldPrune(state State, depth int, path []State) (bool, error)
}

// PrunerFunc adapts a function to the Pruner interface
type PrunerFunc func(state State, depth int, path []State) (bool, error)

// ShouldPrune calls f
func (f PrunerFunc) ShouldPrune(state State, depth int, path []State) (bool, error) {
	return f(state, depth, path)
}

// LoopPruner prunes a state that already appears among its ancestors
type LoopPruner struct{}

// ShouldPrune reports whether state's key is on the ancestor path
func (LoopPruner) ShouldPrune(state State, _ int, path []State) (bool, error) {
	key := state.Key()
	for _, s := range path {
		if s.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

// DepthPruner stops expansion below a fixed depth regardless of the search
// bound. Unlike the horizon, the cut counts as sound.
type DepthPruner struct {
	MaxDepth int
}

// ShouldPrune reports whether depth has reached MaxDepth
func (p DepthPruner) ShouldPrune(_ State, depth int, _ []State) (bool, error) {
	return depth >= p.MaxDepth, nil
}

// ScorePruner prunes any state whose static evaluation is already decisive
type ScorePruner struct {
	MaxScore float64 // Prune when evaluation >= MaxScore
	MinScore float64 // Prune when evaluation <= MinScore
}

// ShouldPrune evaluates the state and compares it against the thresholds
func (p ScorePruner) ShouldPrune(state State, depth int, path []State) (bool, error) {
	v, err := state.Evaluate(depth, path)
	if err != nil {
		return false, err
	}
	return v >= p.MaxScore || v <= p.MinScore, nil
}

// pruneChain returns true as soon as any pruner votes to prune
func pruneChain(pruners []Pruner, state State, depth int, path []State) (bool, error) {
	for _, p := range pruners {
		prune, err := p.ShouldPrune(state, depth, path)
		if err != nil {
			return false, err
		}
		if prune {
			return true, nil
		}
	}
	return false, nil
}
