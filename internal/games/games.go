// Package games registers the bundled games by name so the CLI and the
// server can build positions from user input.
package games

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yourusername/abengine/internal/games/connect4"
	"github.com/yourusername/abengine/internal/games/dice"
	"github.com/yourusername/abengine/internal/games/tictactoe"
	"github.com/yourusername/abengine/internal/positionid"
	"github.com/yourusername/abengine/pkg/engine"
)

// Game builds positions of one game
type Game struct {
	Name        string
	Description string

	// Position parses a diagram or a key; the empty string is the start
	Position func(position string) (engine.State, error)

	// Winner reports the winner of a finished position, NoPlayer otherwise
	Winner func(engine.State) engine.Player
}

var registry = map[string]Game{
	"tictactoe": {
		Name:        "tictactoe",
		Description: "3x3 tic-tac-toe, diagram \"X.O/.X./...\" or position ID",
		Position: func(position string) (engine.State, error) {
			switch {
			case position == "":
				return tictactoe.New(), nil
			case isDiagram(position):
				return tictactoe.FromDiagram(position)
			}
			return tictactoe.FromID(position)
		},
		Winner: func(s engine.State) engine.Player { return s.(*tictactoe.State).Winner() },
	},
	"connect4": {
		Name:        "connect4",
		Description: "connect four, 6x7 unless a diagram gives another size",
		Position: func(position string) (engine.State, error) {
			switch {
			case position == "":
				return connect4.New(connect4.DefaultRows, connect4.DefaultCols)
			case isDiagram(position):
				return connect4.FromDiagram(position)
			}
			return connect4.FromID(position, connect4.DefaultRows, connect4.DefaultCols)
		},
		Winner: func(s engine.State) engine.Player { return s.(*connect4.State).Winner() },
	},
	"dice": {
		Name:        "dice",
		Description: "dice race to 12 with a 3-sided die, position \"max-min:turn\"",
		Position: func(position string) (engine.State, error) {
			rules := dice.Rules{Target: dice.DefaultTarget, Sides: dice.DefaultSides}
			if position == "" {
				return dice.New(rules)
			}
			return dice.Parse(rules, position)
		},
		Winner: func(s engine.State) engine.Player { return s.(*dice.State).Winner() },
	},
}

// Lookup returns the game registered under name
func Lookup(name string) (Game, error) {
	g, ok := registry[strings.ToLower(name)]
	if !ok {
		return Game{}, fmt.Errorf("unknown game %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return g, nil
}

// Names lists the registered games in order
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe renders a state for humans
func Describe(s engine.State) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return s.Key()
}

// isDiagram reports whether position is a board diagram rather than an ID.
func isDiagram(position string) bool {
	b, err := positionid.Parse(position)
	return err == nil && b.Rows > 1
}
