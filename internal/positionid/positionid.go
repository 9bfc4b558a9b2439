// Package positionid implements compact position IDs for grid boards.
//
// Every cell is empty, held by Max or held by Min. Five cells are packed
// base-3 into one byte and the bytes are written with a base64 alphabet,
// four characters per three bytes, so IDs are short, printable and usable
// as map keys.
package positionid

import (
	"errors"
	"fmt"
	"strings"
)

// Cell is the content of one board square
type Cell uint8

const (
	Empty   Cell = iota // No piece
	MaxCell             // Piece of the maximizing player
	MinCell             // Piece of the minimizing player
)

// cellsPerByte is the number of base-3 digits packed into one byte (3^5 = 243)
const cellsPerByte = 5

// Base64 alphabet used for position ID encoding
const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// ErrInvalidPositionID is returned when a position ID is invalid
var ErrInvalidPositionID = errors.New("invalid position ID")

// ErrInvalidDiagram is returned when a board diagram cannot be parsed
var ErrInvalidDiagram = errors.New("invalid board diagram")

// Board is a rectangular grid stored row by row, row 0 at the top
type Board struct {
	Rows  int
	Cols  int
	Cells []Cell
}

// NewBoard creates an empty rows x cols board
func NewBoard(rows, cols int) Board {
	return Board{Rows: rows, Cols: cols, Cells: make([]Cell, rows*cols)}
}

// At returns the cell at row r, column c
func (b Board) At(r, c int) Cell {
	return b.Cells[r*b.Cols+c]
}

// Set returns a copy of b with the cell at row r, column c replaced
func (b Board) Set(r, c int, v Cell) Board {
	cells := make([]Cell, len(b.Cells))
	copy(cells, b.Cells)
	cells[r*b.Cols+c] = v
	return Board{Rows: b.Rows, Cols: b.Cols, Cells: cells}
}

// Count returns the number of cells holding v
func (b Board) Count(v Cell) int {
	n := 0
	for _, c := range b.Cells {
		if c == v {
			n++
		}
	}
	return n
}

// ID returns the position ID of the board
func (b Board) ID() string {
	return Encode(b.Cells)
}

// EncodedLength returns the ID length for a board of n cells
func EncodedLength(n int) int {
	nBytes := (n + cellsPerByte - 1) / cellsPerByte
	return (nBytes + 2) / 3 * 4
}

// pack converts cells to base-3 packed bytes, padded to a multiple of 3
func pack(cells []Cell) []byte {
	nBytes := (len(cells) + cellsPerByte - 1) / cellsPerByte
	data := make([]byte, (nBytes+2)/3*3)
	for i := 0; i < nBytes; i++ {
		var v byte
		for j := cellsPerByte - 1; j >= 0; j-- {
			idx := i*cellsPerByte + j
			v *= 3
			if idx < len(cells) {
				v += byte(cells[idx])
			}
		}
		data[i] = v
	}
	return data
}

// Encode generates a position ID from board cells
func Encode(cells []Cell) string {
	data := pack(cells)
	result := make([]byte, len(data)/3*4)

	puch := data
	for i := 0; i < len(data)/3; i++ {
		result[i*4] = base64Chars[puch[0]>>2]
		result[i*4+1] = base64Chars[((puch[0]&0x03)<<4)|(puch[1]>>4)]
		result[i*4+2] = base64Chars[((puch[1]&0x0F)<<2)|(puch[2]>>6)]
		result[i*4+3] = base64Chars[puch[2]&0x3F]
		puch = puch[3:]
	}

	return string(result)
}

// base64Decode decodes a base64 character to its value
func base64Decode(ch byte) uint8 {
	if ch >= 'A' && ch <= 'Z' {
		return ch - 'A'
	}
	if ch >= 'a' && ch <= 'z' {
		return ch - 'a' + 26
	}
	if ch >= '0' && ch <= '9' {
		return ch - '0' + 52
	}
	if ch == '+' {
		return 62
	}
	if ch == '/' {
		return 63
	}
	return 255
}

// Decode converts a position ID back into n cells
func Decode(posID string, n int) ([]Cell, error) {
	if n < 0 || len(posID) != EncodedLength(n) {
		return nil, fmt.Errorf("%w: %q has length %d, want %d", ErrInvalidPositionID, posID, len(posID), EncodedLength(n))
	}

	ach := make([]uint8, len(posID))
	for i := 0; i < len(posID); i++ {
		ach[i] = base64Decode(posID[i])
		if ach[i] == 255 {
			return nil, fmt.Errorf("%w: bad character %q", ErrInvalidPositionID, posID[i])
		}
	}

	data := make([]byte, len(posID)/4*3)
	pch := ach
	for i := 0; i < len(posID)/4; i++ {
		data[i*3] = (pch[0] << 2) | (pch[1] >> 4)
		data[i*3+1] = (pch[1] << 4) | (pch[2] >> 2)
		data[i*3+2] = (pch[2] << 6) | pch[3]
		pch = pch[4:]
	}

	cells := make([]Cell, n)
	for i, v := range data {
		if v >= 243 {
			return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidPositionID, i)
		}
		for j := 0; j < cellsPerByte; j++ {
			idx := i*cellsPerByte + j
			d := Cell(v % 3)
			v /= 3
			if idx >= n {
				if d != Empty {
					return nil, fmt.Errorf("%w: padding is not empty", ErrInvalidPositionID)
				}
				continue
			}
			cells[idx] = d
		}
	}
	return cells, nil
}

// DecodeBoard decodes a position ID for a rows x cols board
func DecodeBoard(posID string, rows, cols int) (Board, error) {
	cells, err := Decode(posID, rows*cols)
	if err != nil {
		return Board{}, err
	}
	return Board{Rows: rows, Cols: cols, Cells: cells}, nil
}

// Parse reads a diagram of rows separated by '/', top row first, using
// 'X' for Max, 'O' for Min and '.' for empty cells, e.g. "X.O/.X./..O".
func Parse(diagram string) (Board, error) {
	rows := strings.Split(strings.TrimSpace(diagram), "/")
	cols := len(rows[0])
	if cols == 0 {
		return Board{}, fmt.Errorf("%w: empty row", ErrInvalidDiagram)
	}

	b := NewBoard(len(rows), cols)
	for r, row := range rows {
		if len(row) != cols {
			return Board{}, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidDiagram, r, len(row), cols)
		}
		for c := 0; c < cols; c++ {
			switch row[c] {
			case '.', '-', '_':
				b.Cells[r*cols+c] = Empty
			case 'X', 'x':
				b.Cells[r*cols+c] = MaxCell
			case 'O', 'o':
				b.Cells[r*cols+c] = MinCell
			default:
				return Board{}, fmt.Errorf("%w: unexpected %q at row %d", ErrInvalidDiagram, row[c], r)
			}
		}
	}
	return b, nil
}

// Format writes the board in the diagram notation read by Parse
func Format(b Board) string {
	var sb strings.Builder
	for r := 0; r < b.Rows; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		for c := 0; c < b.Cols; c++ {
			switch b.At(r, c) {
			case MaxCell:
				sb.WriteByte('X')
			case MinCell:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}

// String returns the board diagram
func (b Board) String() string {
	return Format(b)
}
