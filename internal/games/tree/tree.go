// Package tree provides explicit in-memory game trees. Nodes carry scripted
// evaluations and optional failures, which makes them convenient fixtures for
// exercising the search engine on exact shapes.
package tree

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/yourusername/abengine/pkg/engine"
)

// Node is one state of a scripted tree. A node with Chance set exposes
// Rolls as its branches; otherwise it exposes Children.
type Node struct {
	Name     string
	Player   engine.Player
	Value    float64 // Returned by Evaluate
	Children []*Node
	Rolls    []Branch
	Chance   bool

	EvalErr      error // Returned by Evaluate when set
	SuccessorErr error // Returned by Successors/Branches when set

	evals atomic.Int64
}

// Branch is a scripted chance outcome group
type Branch struct {
	Probability float64
	Outcomes    []*Node
}

// Leaf creates a node without children
func Leaf(name string, player engine.Player, v float64) *Node {
	return &Node{Name: name, Player: player, Value: v}
}

// MaxNode creates a node where Max chooses among children
func MaxNode(name string, children ...*Node) *Node {
	return &Node{Name: name, Player: engine.Max, Children: children}
}

// MinNode creates a node where Min chooses among children
func MinNode(name string, children ...*Node) *Node {
	return &Node{Name: name, Player: engine.Min, Children: children}
}

// ChanceNode creates a chance node whose outcomes are chosen by player
func ChanceNode(name string, player engine.Player, branches ...Branch) *Node {
	return &Node{Name: name, Player: player, Chance: true, Rolls: branches}
}

// WithValue sets the static evaluation of n and returns it
func (n *Node) WithValue(v float64) *Node {
	n.Value = v
	return n
}

// Key returns the node name
func (n *Node) Key() string { return n.Name }

// Turn returns the player to move
func (n *Node) Turn() engine.Player { return n.Player }

// Kind returns KindChance for chance nodes
func (n *Node) Kind() engine.StateKind {
	if n.Chance {
		return engine.KindChance
	}
	return engine.KindDeterministic
}

// Evaluate returns the scripted value
func (n *Node) Evaluate(int, []engine.State) (float64, error) {
	n.evals.Add(1)
	if n.EvalErr != nil {
		return 0, n.EvalErr
	}
	return n.Value, nil
}

// Evaluations returns how many times Evaluate was called on n
func (n *Node) Evaluations() int64 {
	return n.evals.Load()
}

// Successors returns the children
func (n *Node) Successors() ([]engine.State, error) {
	if n.SuccessorErr != nil {
		return nil, n.SuccessorErr
	}
	out := make([]engine.State, len(n.Children))
	for i, c := range n.Children {
		out[i] = c
	}
	return out, nil
}

// Branches returns the chance outcome groups
func (n *Node) Branches() ([]engine.Branch, error) {
	if n.SuccessorErr != nil {
		return nil, n.SuccessorErr
	}
	out := make([]engine.Branch, len(n.Rolls))
	for i, b := range n.Rolls {
		states := make([]engine.State, len(b.Outcomes))
		for j, o := range b.Outcomes {
			states[j] = o
		}
		out[i] = engine.Branch{Probability: b.Probability, Outcomes: states}
	}
	return out, nil
}

// Walk calls fn for n and every node below it, depth first
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
	for _, b := range n.Rolls {
		for _, o := range b.Outcomes {
			o.Walk(fn)
		}
	}
}

// TotalEvaluations sums Evaluations over the whole tree
func (n *Node) TotalEvaluations() int64 {
	var total int64
	n.Walk(func(m *Node) { total += m.Evaluations() })
	return total
}

// Random builds a uniform tree of the given depth and width with
// alternating players, starting with Max. Every node gets a value drawn
// from [-100, 100), so interior nodes have meaningful horizon evaluations.
// Names are unique, so state keying never merges distinct nodes.
func Random(seed uint64, depth, width int) *Node {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return randomNode(rng, "r", engine.Max, depth, width)
}

func randomNode(rng *rand.Rand, name string, player engine.Player, depth, width int) *Node {
	n := &Node{
		Name:   name,
		Player: player,
		Value:  float64(rng.IntN(200) - 100),
	}
	if depth == 0 {
		return n
	}
	n.Children = make([]*Node, width)
	for i := range n.Children {
		n.Children[i] = randomNode(rng, fmt.Sprintf("%s.%d", name, i), player.Opponent(), depth-1, width)
	}
	return n
}

// RandomWithTies is Random with values drawn from a small range, so many
// siblings share the same value.
func RandomWithTies(seed uint64, depth, width, spread int) *Node {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	root := randomNode(rng, "t", engine.Max, depth, width)
	root.Walk(func(m *Node) {
		m.Value = float64(rng.IntN(spread))
	})
	return root
}
