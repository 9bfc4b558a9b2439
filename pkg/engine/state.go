// Package engine provides a reusable adversarial search engine: bounded-depth
// minimax with alpha-beta pruning over deterministic and chance nodes, an
// optional bound cache and configurable parallel work distribution.
package engine

// Player identifies who makes the decision at a state
type Player int8

const (
	NoPlayer Player = iota // Neutral / invalid
	Max                    // Maximizes the evaluation
	Min                    // Minimizes the evaluation
)

// Opponent returns the other optimizing role
func (p Player) Opponent() Player {
	switch p {
	case Max:
		return Min
	case Min:
		return Max
	}
	return NoPlayer
}

func (p Player) String() string {
	switch p {
	case Max:
		return "max"
	case Min:
		return "min"
	}
	return "none"
}

// StateKind tags which successor shape a state exposes
type StateKind int

const (
	KindDeterministic StateKind = iota + 1 // Successors() are player choices
	KindChance                             // Branches() are probability-weighted outcomes
)

// State is the contract host games implement.
//
// Key must be equal for two states exactly when they have the same future
// evaluation regardless of the path that led to them. The engine relies on it
// for caching and loop prevention and cannot verify it.
type State interface {
	Key() string
	Turn() Player
	Kind() StateKind
	Evaluate(depth int, path []State) (float64, error)
}

// DeterministicState is a state whose successors are chosen by Turn()
type DeterministicState interface {
	State
	Successors() ([]State, error)
}

// ChanceState is a state whose successors are resolved by chance. After a
// branch is drawn, Turn() chooses among the branch outcomes.
type ChanceState interface {
	State
	Branches() ([]Branch, error)
}

// Branch is one probability-weighted outcome group of a chance state
type Branch struct {
	Probability float64 // Must be > 0
	Outcomes    []State // States the turn owner may choose from
}

// extendPath returns a fresh copy of path with s appended, so children never
// share the parent's backing array.
func extendPath(path []State, s State) []State {
	out := make([]State, len(path)+1)
	copy(out, path)
	out[len(path)] = s
	return out
}
