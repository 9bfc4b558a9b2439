package games

import (
	"testing"

	"github.com/yourusername/abengine/pkg/engine"
)

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		g, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		s, err := g.Position("")
		if err != nil {
			t.Fatalf("%s start position: %v", name, err)
		}
		if s.Turn() != engine.Max {
			t.Errorf("%s: start turn = %v, want max", name, s.Turn())
		}
		if w := g.Winner(s); w != engine.NoPlayer {
			t.Errorf("%s: start winner = %v", name, w)
		}

		// Keys read back as the same position
		back, err := g.Position(s.Key())
		if err != nil {
			t.Fatalf("%s: Position(%q): %v", name, s.Key(), err)
		}
		if back.Key() != s.Key() {
			t.Errorf("%s: key round trip %q != %q", name, back.Key(), s.Key())
		}
	}

	if _, err := Lookup("chess"); err == nil {
		t.Error("Lookup(chess) succeeded")
	}
	if _, err := Lookup("TicTacToe"); err != nil {
		t.Errorf("lookup is case-insensitive: %v", err)
	}
}

func TestPositionDiagram(t *testing.T) {
	g, _ := Lookup("tictactoe")
	s, err := g.Position("XXX/OO./...")
	if err != nil {
		t.Fatal(err)
	}
	if w := g.Winner(s); w != engine.Max {
		t.Errorf("winner = %v, want max", w)
	}

	c4, _ := Lookup("connect4")
	if _, err := c4.Position("..../..../X.../XO.O"); err != nil {
		t.Errorf("small connect4 diagram: %v", err)
	}
	if _, err := c4.Position("not a position"); err == nil {
		t.Error("garbage position accepted")
	}
}
