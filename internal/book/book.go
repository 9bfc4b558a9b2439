// Package book stores exact game values found by exhaustive search, so later
// searches can score known positions without expanding them.
//
// A book file starts with a 40 byte ASCII header
//
//	abbook-EX-01 <game name, space padded>
//
// followed by a little-endian uint32 entry count and the entries in key
// order. Each entry is a uint16 key length, the key bytes and the value as a
// float64.
package book

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/yourusername/abengine/pkg/engine"
)

const (
	headerSize    = 40
	magic         = "abbook"
	formatVersion = 1
	maxGameName   = headerSize - 13
	maxKeyLen     = math.MaxUint16
)

// ErrFormat reports a file that is not a book
var ErrFormat = errors.New("not a book file")

// Book maps state keys to exact values of one game
type Book struct {
	Game string

	keys   []string
	values []float64
}

// New creates an empty book for game
func New(game string) *Book {
	return &Book{Game: game}
}

// FromCache collects the exhausted subtrees of a search cache. Only exact
// entries whose subtree was searched to the end are true game values; bounds
// and horizon-limited values are skipped.
func FromCache(game string, c *engine.BoundCache) *Book {
	b := New(game)
	c.Each(func(k engine.CacheKey, e engine.CacheEntry) bool {
		if e.Range.IsExact() && e.DeadEnd {
			b.Add(k.State, e.Range.Min)
		}
		return true
	})
	return b
}

// Len returns the number of entries
func (b *Book) Len() int {
	return len(b.keys)
}

// Add stores v for key, replacing any earlier value
func (b *Book) Add(key string, v float64) {
	i, found := slices.BinarySearch(b.keys, key)
	if found {
		b.values[i] = v
		return
	}
	b.keys = slices.Insert(b.keys, i, key)
	b.values = slices.Insert(b.values, i, v)
}

// Merge adds every entry of other and returns the number of new keys
func (b *Book) Merge(other *Book) (int, error) {
	if other.Game != b.Game {
		return 0, fmt.Errorf("cannot merge a %s book into a %s book", other.Game, b.Game)
	}
	before := b.Len()
	for i, k := range other.keys {
		b.Add(k, other.values[i])
	}
	return b.Len() - before, nil
}

// Lookup returns the value stored for key
func (b *Book) Lookup(key string) (float64, bool) {
	i, found := slices.BinarySearch(b.keys, key)
	if !found {
		return 0, false
	}
	return b.values[i], true
}

// Evaluator returns a leaf evaluation that answers from the book and falls
// back to next, or to State.Evaluate when next is nil.
func (b *Book) Evaluator(next engine.EvaluateFunc) engine.EvaluateFunc {
	return func(state engine.State, depth int, path []engine.State) (float64, error) {
		if v, ok := b.Lookup(state.Key()); ok {
			return v, nil
		}
		if next != nil {
			return next(state, depth, path)
		}
		return state.Evaluate(depth, path)
	}
}

// Apply routes the leaf evaluation of opts through the book
func (b *Book) Apply(opts *engine.Options) {
	opts.Evaluate = b.Evaluator(opts.Evaluate)
}

func header(game string) ([]byte, error) {
	if game == "" || len(game) > maxGameName || strings.ContainsAny(game, " \n") {
		return nil, fmt.Errorf("invalid game name %q", game)
	}
	h := fmt.Sprintf("%s-EX-%02d %-*s", magic, formatVersion, maxGameName, game)
	return []byte(h), nil
}

// WriteTo encodes the book
func (b *Book) WriteTo(w io.Writer) (int64, error) {
	h, err := header(b.Game)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(w)
	n, _ := bw.Write(h)
	written := int64(n)

	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(b.keys)))
	bw.Write(buf[:4])
	written += 4

	for i, k := range b.keys {
		if len(k) > maxKeyLen {
			return written, fmt.Errorf("key %q too long", k)
		}
		binary.LittleEndian.PutUint16(buf[:2], uint16(len(k)))
		bw.Write(buf[:2])
		bw.WriteString(k)
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(b.values[i]))
		bw.Write(buf[:])
		written += int64(2 + len(k) + 8)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to write book: %w", err)
	}
	return written, nil
}

// Read decodes a book written by WriteTo
func Read(r io.Reader) (*Book, error) {
	br := bufio.NewReader(r)

	h := make([]byte, headerSize)
	if _, err := io.ReadFull(br, h); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrFormat)
	}
	if string(h[:6]) != magic || string(h[6:10]) != "-EX-" {
		return nil, ErrFormat
	}
	var version int
	if _, err := fmt.Sscanf(string(h[10:12]), "%02d", &version); err != nil {
		return nil, fmt.Errorf("%w: bad version: %v", ErrFormat, err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported book version %d", version)
	}
	b := New(strings.TrimRight(string(h[13:]), " "))

	var buf [8]byte
	if _, err := io.ReadFull(br, buf[:4]); err != nil {
		return nil, fmt.Errorf("%w: missing entry count", ErrFormat)
	}
	count := int(binary.LittleEndian.Uint32(buf[:4]))

	b.keys = make([]string, 0, min(count, 1<<16))
	b.values = make([]float64, 0, min(count, 1<<16))
	for i := range count {
		if _, err := io.ReadFull(br, buf[:2]); err != nil {
			return nil, fmt.Errorf("%w: entry %d truncated", ErrFormat, i)
		}
		key := make([]byte, binary.LittleEndian.Uint16(buf[:2]))
		if _, err := io.ReadFull(br, key); err != nil {
			return nil, fmt.Errorf("%w: entry %d truncated", ErrFormat, i)
		}
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: entry %d truncated", ErrFormat, i)
		}
		k := string(key)
		if n := len(b.keys); n > 0 && b.keys[n-1] >= k {
			return nil, fmt.Errorf("%w: entry %d out of order", ErrFormat, i)
		}
		b.keys = append(b.keys, k)
		b.values = append(b.values, math.Float64frombits(binary.LittleEndian.Uint64(buf[:])))
	}
	return b, nil
}

// Load reads a book file from disk
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open book: %w", err)
	}
	defer f.Close()

	b, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Save writes the book to path, replacing any existing file
func (b *Book) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	if _, err := b.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
