// Package tictactoe implements 3x3 tic-tac-toe on the engine's state
// contract. Max plays X, Min plays O; a win scores +1 for Max and -1 for Min.
package tictactoe

import (
	"fmt"

	"github.com/yourusername/abengine/internal/positionid"
	"github.com/yourusername/abengine/pkg/engine"
)

// Size is the board edge length
const Size = 3

// lines lists every winning row, column and diagonal as cell indices
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// State is an immutable tic-tac-toe position
type State struct {
	board positionid.Board
	turn  engine.Player
}

// New returns the empty board with Max to move
func New() *State {
	return &State{board: positionid.NewBoard(Size, Size), turn: engine.Max}
}

// FromDiagram parses a board such as "X.O/.X./..O". The player to move is
// derived from the piece counts: Max moves when both have played equally.
func FromDiagram(diagram string) (*State, error) {
	b, err := positionid.Parse(diagram)
	if err != nil {
		return nil, err
	}
	if b.Rows != Size || b.Cols != Size {
		return nil, fmt.Errorf("tic-tac-toe board must be %dx%d, got %dx%d", Size, Size, b.Rows, b.Cols)
	}
	xCount, oCount := b.Count(positionid.MaxCell), b.Count(positionid.MinCell)
	switch xCount - oCount {
	case 0:
		return &State{board: b, turn: engine.Max}, nil
	case 1:
		return &State{board: b, turn: engine.Min}, nil
	}
	return nil, fmt.Errorf("invalid piece counts: %d X, %d O", xCount, oCount)
}

// FromID decodes a position ID produced by Key
func FromID(id string) (*State, error) {
	b, err := positionid.DecodeBoard(id, Size, Size)
	if err != nil {
		return nil, err
	}
	return FromDiagram(b.String())
}

// Board returns the position
func (s *State) Board() positionid.Board { return s.board }

// Key returns the position ID; the player to move follows from the board
func (s *State) Key() string { return s.board.ID() }

// Turn returns the player to move
func (s *State) Turn() engine.Player { return s.turn }

// Kind reports a deterministic state
func (s *State) Kind() engine.StateKind { return engine.KindDeterministic }

// Winner returns the player with three in a row, or NoPlayer
func (s *State) Winner() engine.Player {
	for _, l := range lines {
		c := s.board.Cells[l[0]]
		if c != positionid.Empty && c == s.board.Cells[l[1]] && c == s.board.Cells[l[2]] {
			if c == positionid.MaxCell {
				return engine.Max
			}
			return engine.Min
		}
	}
	return engine.NoPlayer
}

// Terminal reports whether the game is over
func (s *State) Terminal() bool {
	return s.Winner() != engine.NoPlayer || s.board.Count(positionid.Empty) == 0
}

// Evaluate scores a won position +1 or -1 and anything else 0
func (s *State) Evaluate(int, []engine.State) (float64, error) {
	switch s.Winner() {
	case engine.Max:
		return 1, nil
	case engine.Min:
		return -1, nil
	}
	return 0, nil
}

// Successors returns one state per empty cell, in board order
func (s *State) Successors() ([]engine.State, error) {
	if s.Winner() != engine.NoPlayer {
		return nil, nil
	}
	piece := positionid.MaxCell
	if s.turn == engine.Min {
		piece = positionid.MinCell
	}
	var out []engine.State
	for i, c := range s.board.Cells {
		if c != positionid.Empty {
			continue
		}
		out = append(out, &State{
			board: s.board.Set(i/Size, i%Size, piece),
			turn:  s.turn.Opponent(),
		})
	}
	return out, nil
}

func (s *State) String() string {
	return s.board.String()
}
