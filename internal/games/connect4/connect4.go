// Package connect4 implements connect-four on a configurable grid. Pieces
// drop to the lowest empty cell of a column and four in a line wins.
package connect4

import (
	"fmt"
	"math"

	"github.com/yourusername/abengine/internal/positionid"
	"github.com/yourusername/abengine/pkg/engine"
)

const (
	// Connect is the line length that wins
	Connect = 4

	// DefaultRows and DefaultCols give the classic board
	DefaultRows = 6
	DefaultCols = 7

	// heuristicWeight scales open-window counts so they stay below a win
	heuristicWeight = 0.001
)

var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// State is an immutable connect-four position
type State struct {
	board positionid.Board
	turn  engine.Player
	order []int // Column order tried by Successors
}

// New returns an empty rows x cols board with Max to move
func New(rows, cols int) (*State, error) {
	if rows < Connect && cols < Connect {
		return nil, fmt.Errorf("board %dx%d cannot fit %d in a row", rows, cols, Connect)
	}
	b := positionid.NewBoard(rows, cols)
	return &State{board: b, turn: engine.Max, order: centerOrder(cols)}, nil
}

// FromDiagram parses a board diagram, top row first. The player to move is
// derived from the piece counts and floating pieces are rejected.
func FromDiagram(diagram string) (*State, error) {
	b, err := positionid.Parse(diagram)
	if err != nil {
		return nil, err
	}
	return fromBoard(b)
}

// FromID decodes a position ID for a rows x cols board
func FromID(id string, rows, cols int) (*State, error) {
	b, err := positionid.DecodeBoard(id, rows, cols)
	if err != nil {
		return nil, err
	}
	return fromBoard(b)
}

func fromBoard(b positionid.Board) (*State, error) {
	for c := 0; c < b.Cols; c++ {
		for r := 0; r < b.Rows-1; r++ {
			if b.At(r, c) != positionid.Empty && b.At(r+1, c) == positionid.Empty {
				return nil, fmt.Errorf("floating piece at row %d, column %d", r, c)
			}
		}
	}
	xCount, oCount := b.Count(positionid.MaxCell), b.Count(positionid.MinCell)
	s := &State{board: b, order: centerOrder(b.Cols)}
	switch xCount - oCount {
	case 0:
		s.turn = engine.Max
	case 1:
		s.turn = engine.Min
	default:
		return nil, fmt.Errorf("invalid piece counts: %d X, %d O", xCount, oCount)
	}
	return s, nil
}

// centerOrder lists columns from the center outwards
func centerOrder(cols int) []int {
	order := make([]int, 0, cols)
	mid := (cols - 1) / 2
	order = append(order, mid)
	for d := 1; len(order) < cols; d++ {
		if mid+d < cols {
			order = append(order, mid+d)
		}
		if mid-d >= 0 {
			order = append(order, mid-d)
		}
	}
	return order
}

// Board returns the position
func (s *State) Board() positionid.Board { return s.board }

// Key returns the position ID
func (s *State) Key() string { return s.board.ID() }

// Turn returns the player to move
func (s *State) Turn() engine.Player { return s.turn }

// Kind reports a deterministic state
func (s *State) Kind() engine.StateKind { return engine.KindDeterministic }

// Drop returns the state after the player to move plays column col
func (s *State) Drop(col int) (*State, error) {
	if col < 0 || col >= s.board.Cols {
		return nil, fmt.Errorf("column %d out of range", col)
	}
	row := s.landing(col)
	if row < 0 {
		return nil, fmt.Errorf("column %d is full", col)
	}
	piece := positionid.MaxCell
	if s.turn == engine.Min {
		piece = positionid.MinCell
	}
	return &State{
		board: s.board.Set(row, col, piece),
		turn:  s.turn.Opponent(),
		order: s.order,
	}, nil
}

// landing returns the row a piece dropped in col lands on, or -1
func (s *State) landing(col int) int {
	for r := s.board.Rows - 1; r >= 0; r-- {
		if s.board.At(r, col) == positionid.Empty {
			return r
		}
	}
	return -1
}

// Winner returns the player with four in a line, or NoPlayer
func (s *State) Winner() engine.Player {
	b := s.board
	for r := 0; r < b.Rows; r++ {
		for c := 0; c < b.Cols; c++ {
			v := b.At(r, c)
			if v == positionid.Empty {
				continue
			}
			for _, d := range directions {
				if s.run(r, c, d[0], d[1], v) >= Connect {
					if v == positionid.MaxCell {
						return engine.Max
					}
					return engine.Min
				}
			}
		}
	}
	return engine.NoPlayer
}

// run counts consecutive v cells starting at (r, c) in direction (dr, dc)
func (s *State) run(r, c, dr, dc int, v positionid.Cell) int {
	n := 0
	for r >= 0 && r < s.board.Rows && c >= 0 && c < s.board.Cols && s.board.At(r, c) == v {
		n++
		r += dr
		c += dc
	}
	return n
}

// Evaluate scores a win +1 or -1. Other positions get a small score from
// the lines still open to each side.
func (s *State) Evaluate(int, []engine.State) (float64, error) {
	switch s.Winner() {
	case engine.Max:
		return 1, nil
	case engine.Min:
		return -1, nil
	}
	v := heuristicWeight * float64(s.openWindows(positionid.MaxCell)-s.openWindows(positionid.MinCell))
	return math.Max(-0.5, math.Min(0.5, v)), nil
}

// openWindows counts length-4 windows holding at least two of v's pieces
// and none of the opponent's
func (s *State) openWindows(v positionid.Cell) int {
	b := s.board
	n := 0
	for r := 0; r < b.Rows; r++ {
		for c := 0; c < b.Cols; c++ {
			for _, d := range directions {
				er, ec := r+d[0]*(Connect-1), c+d[1]*(Connect-1)
				if er < 0 || er >= b.Rows || ec < 0 || ec >= b.Cols {
					continue
				}
				own, blocked := 0, false
				for i := 0; i < Connect; i++ {
					switch b.At(r+d[0]*i, c+d[1]*i) {
					case v:
						own++
					case positionid.Empty:
					default:
						blocked = true
					}
				}
				if !blocked && own >= 2 {
					n++
				}
			}
		}
	}
	return n
}

// Successors returns one state per playable column, center first
func (s *State) Successors() ([]engine.State, error) {
	if s.Winner() != engine.NoPlayer {
		return nil, nil
	}
	var out []engine.State
	for _, col := range s.order {
		if s.landing(col) < 0 {
			continue
		}
		next, err := s.Drop(col)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
	}
	return out, nil
}

// LastMove returns the column where next differs from s, or -1
func (s *State) LastMove(next *State) int {
	for i, c := range next.board.Cells {
		if c != s.board.Cells[i] {
			return i % s.board.Cols
		}
	}
	return -1
}

func (s *State) String() string {
	return s.board.String()
}
