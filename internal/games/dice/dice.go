// Package dice implements a two-player dice race used to exercise chance
// nodes. On each turn the player to move rolls one die and then either
// advances their own pawn by the roll or, when the roll is at least two,
// pushes the opponent back by half of it. The first pawn to reach the
// target wins.
package dice

import (
	"fmt"
	"strings"

	"github.com/yourusername/abengine/pkg/engine"
)

// Defaults for New
const (
	DefaultTarget = 12
	DefaultSides  = 3
)

// Rules fixes the race length and the die
type Rules struct {
	Target int // Distance to win
	Sides  int // Faces of the die, each equally likely
}

// Validate checks the rules
func (r Rules) Validate() error {
	if r.Target < 1 {
		return fmt.Errorf("target must be positive, got %d", r.Target)
	}
	if r.Sides < 1 {
		return fmt.Errorf("die must have at least one side, got %d", r.Sides)
	}
	return nil
}

// State is a position before the player to move rolls. It is a chance
// state: its branches are the die faces and each branch lists the choices
// available after that roll.
type State struct {
	rules Rules
	pos   [2]int // Pawn positions of Max and Min
	turn  engine.Player
}

// New returns the start of a race with Max to roll
func New(rules Rules) (*State, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &State{rules: rules, turn: engine.Max}, nil
}

// At returns a position with the given pawn positions
func At(rules Rules, maxPos, minPos int, turn engine.Player) (*State, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if turn != engine.Max && turn != engine.Min {
		return nil, fmt.Errorf("invalid player %v", turn)
	}
	return &State{rules: rules, pos: [2]int{maxPos, minPos}, turn: turn}, nil
}

// Parse reads a key such as "3-7:min" back into a position
func Parse(rules Rules, key string) (*State, error) {
	var maxPos, minPos int
	var turn string
	if _, err := fmt.Sscanf(strings.Replace(key, ":", " ", 1), "%d-%d %s", &maxPos, &minPos, &turn); err != nil {
		return nil, fmt.Errorf("invalid dice position %q: %w", key, err)
	}
	if maxPos < 0 || minPos < 0 {
		return nil, fmt.Errorf("invalid dice position %q: negative pawn", key)
	}
	switch turn {
	case engine.Max.String():
		return At(rules, maxPos, minPos, engine.Max)
	case engine.Min.String():
		return At(rules, maxPos, minPos, engine.Min)
	}
	return nil, fmt.Errorf("invalid dice position %q: unknown player %q", key, turn)
}

func index(p engine.Player) int {
	if p == engine.Min {
		return 1
	}
	return 0
}

// Position returns the pawn position of p
func (s *State) Position(p engine.Player) int { return s.pos[index(p)] }

// Key identifies the position and the player to roll
func (s *State) Key() string {
	return fmt.Sprintf("%d-%d:%s", s.pos[0], s.pos[1], s.turn)
}

// Turn returns the player about to roll
func (s *State) Turn() engine.Player { return s.turn }

// Kind reports a chance state
func (s *State) Kind() engine.StateKind { return engine.KindChance }

// Winner returns the player whose pawn reached the target, or NoPlayer
func (s *State) Winner() engine.Player {
	switch {
	case s.pos[0] >= s.rules.Target:
		return engine.Max
	case s.pos[1] >= s.rules.Target:
		return engine.Min
	}
	return engine.NoPlayer
}

// Evaluate scores a finished race +1 or -1 and otherwise the pawn lead as
// a fraction of the target, kept inside (-0.5, 0.5).
func (s *State) Evaluate(int, []engine.State) (float64, error) {
	switch s.Winner() {
	case engine.Max:
		return 1, nil
	case engine.Min:
		return -1, nil
	}
	return float64(s.pos[0]-s.pos[1]) / float64(2*s.rules.Target+1), nil
}

// Choices returns the positions the player to move may pick after roll
func (s *State) Choices(roll int) []engine.State {
	me, them := index(s.turn), 1-index(s.turn)

	advance := *s
	advance.pos[me] += roll
	advance.turn = s.turn.Opponent()
	out := []engine.State{&advance}

	if push := roll / 2; push > 0 && s.pos[them] > 0 {
		back := *s
		back.pos[them] = max(0, back.pos[them]-push)
		back.turn = s.turn.Opponent()
		out = append(out, &back)
	}
	return out
}

// Branches returns one equally likely branch per die face. A finished race
// has none.
func (s *State) Branches() ([]engine.Branch, error) {
	if s.Winner() != engine.NoPlayer {
		return nil, nil
	}
	p := 1 / float64(s.rules.Sides)
	out := make([]engine.Branch, s.rules.Sides)
	for i := range out {
		out[i] = engine.Branch{Probability: p, Outcomes: s.Choices(i + 1)}
	}
	return out, nil
}

func (s *State) String() string {
	return fmt.Sprintf("max %d/%d, min %d/%d, %s to roll", s.pos[0], s.rules.Target, s.pos[1], s.rules.Target, s.turn)
}
