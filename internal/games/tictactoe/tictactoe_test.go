package tictactoe

import (
	"testing"

	"github.com/yourusername/abengine/pkg/engine"
)

func TestNewBoard(t *testing.T) {
	s := New()
	if s.Turn() != engine.Max {
		t.Errorf("first player: got %v, want max", s.Turn())
	}
	children, err := s.Successors()
	if err != nil {
		t.Fatalf("Successors failed: %v", err)
	}
	if len(children) != 9 {
		t.Errorf("empty board has %d successors, want 9", len(children))
	}
	for _, c := range children {
		if c.Turn() != engine.Min {
			t.Errorf("successor %s has turn %v, want min", c.Key(), c.Turn())
		}
	}
}

func TestWinnerAndEvaluate(t *testing.T) {
	tests := []struct {
		diagram string
		winner  engine.Player
		value   float64
	}{
		{"XXX/OO./...", engine.Max, 1},
		{"XX./OOO/X..", engine.Min, -1},
		{"X.O/.XO/..X", engine.Max, 1},
		{"XOX/XOO/OXX", engine.NoPlayer, 0},
		{".../.../...", engine.NoPlayer, 0},
	}

	for _, tt := range tests {
		s, err := FromDiagram(tt.diagram)
		if err != nil {
			t.Fatalf("FromDiagram(%q) failed: %v", tt.diagram, err)
		}
		if got := s.Winner(); got != tt.winner {
			t.Errorf("%s: winner %v, want %v", tt.diagram, got, tt.winner)
		}
		v, _ := s.Evaluate(0, nil)
		if v != tt.value {
			t.Errorf("%s: evaluation %g, want %g", tt.diagram, v, tt.value)
		}
	}
}

func TestFinishedGameHasNoSuccessors(t *testing.T) {
	for _, d := range []string{"XXX/OO./...", "XOX/XOO/OXX"} {
		s, err := FromDiagram(d)
		if err != nil {
			t.Fatalf("FromDiagram(%q) failed: %v", d, err)
		}
		children, _ := s.Successors()
		if len(children) != 0 {
			t.Errorf("%s: got %d successors, want none", d, len(children))
		}
		if !s.Terminal() {
			t.Errorf("%s: not terminal", d)
		}
	}
}

func TestFromDiagramErrors(t *testing.T) {
	for _, d := range []string{"XX./.../...", "O../.../...", "..../..../....", "X../..."} {
		if _, err := FromDiagram(d); err == nil {
			t.Errorf("FromDiagram(%q) succeeded, want error", d)
		}
	}
}

func TestKeyRoundTrip(t *testing.T) {
	s, err := FromDiagram("X.O/.X./...")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := FromID(s.Key())
	if err != nil {
		t.Fatalf("FromID failed: %v", err)
	}
	if s2.String() != s.String() || s2.Turn() != s.Turn() {
		t.Errorf("round-trip: got %s (%v), want %s (%v)", s2, s2.Turn(), s, s.Turn())
	}
}
