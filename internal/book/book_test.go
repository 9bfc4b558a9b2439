package book

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/yourusername/abengine/internal/games/tictactoe"
	"github.com/yourusername/abengine/pkg/engine"
)

func mustState(t *testing.T, diagram string) *tictactoe.State {
	t.Helper()
	s, err := tictactoe.FromDiagram(diagram)
	if err != nil {
		t.Fatalf("FromDiagram(%q): %v", diagram, err)
	}
	return s
}

func TestAddAndLookup(t *testing.T) {
	b := New("tictactoe")
	b.Add("c", 3)
	b.Add("a", 1)
	b.Add("b", 2)
	b.Add("a", -1)

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, expected 3", b.Len())
	}
	tests := []struct {
		key   string
		value float64
		found bool
	}{
		{"a", -1, true},
		{"b", 2, true},
		{"c", 3, true},
		{"d", 0, false},
	}
	for _, tt := range tests {
		v, ok := b.Lookup(tt.key)
		if ok != tt.found || v != tt.value {
			t.Errorf("Lookup(%q) = %v, %v; expected %v, %v", tt.key, v, ok, tt.value, tt.found)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	b := New("dice")
	b.Add("3-4:max", 0.25)
	b.Add("0-0:max", math.Inf(1))
	b.Add("1-11:min", -0.5)

	path := filepath.Join(t.TempDir(), "dice.book")
	if err := b.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Game != "dice" || got.Len() != 3 {
		t.Fatalf("loaded %s book with %d entries", got.Game, got.Len())
	}
	if v, _ := got.Lookup("0-0:max"); !math.IsInf(v, 1) {
		t.Errorf("infinite value came back as %v", v)
	}
	if v, _ := got.Lookup("1-11:min"); v != -0.5 {
		t.Errorf("Lookup = %v, expected -0.5", v)
	}
}

func TestReadRejectsBadInput(t *testing.T) {
	var good bytes.Buffer
	b := New("tictactoe")
	b.Add("k", 1)
	if _, err := b.WriteTo(&good); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	tests := map[string][]byte{
		"empty":     nil,
		"magic":     append([]byte("xxxxx"), good.Bytes()[5:]...),
		"truncated": good.Bytes()[:good.Len()-3],
		"no count":  good.Bytes()[:headerSize],
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(bytes.NewReader(data)); !errors.Is(err, ErrFormat) {
				t.Errorf("Read() error = %v, expected ErrFormat", err)
			}
		})
	}

	if _, err := New("a game").WriteTo(&bytes.Buffer{}); err == nil {
		t.Error("expected an error for a game name with spaces")
	}
}

func TestMerge(t *testing.T) {
	a := New("tictactoe")
	a.Add("x", 1)
	b := New("tictactoe")
	b.Add("x", 1)
	b.Add("y", 0)

	n, err := a.Merge(b)
	if err != nil || n != 1 {
		t.Fatalf("Merge() = %d, %v; expected 1 new key", n, err)
	}
	if _, err := a.Merge(New("dice")); err == nil {
		t.Error("expected an error merging books of different games")
	}
}

func TestFromCache(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.CacheMode = engine.CacheReuse
	opts.DisableAlphaBeta = true
	e, err := engine.NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	root := mustState(t, "XX./OO./...")
	if err := e.FillCache(context.Background(), root, 9); err != nil {
		t.Fatalf("FillCache: %v", err)
	}
	b := FromCache("tictactoe", e.Cache())
	if b.Len() == 0 {
		t.Fatal("expected exhausted subtrees in the book")
	}
	if v, ok := b.Lookup(root.Key()); !ok || v != 1 {
		t.Errorf("root value = %v, %v; expected a win for X", v, ok)
	}

	// Horizon-limited values never enter the book
	shallow, err := engine.NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := shallow.FillCache(context.Background(), tictactoe.New(), 2); err != nil {
		t.Fatalf("FillCache: %v", err)
	}
	if n := FromCache("tictactoe", shallow.Cache()).Len(); n != 0 {
		t.Errorf("shallow search produced %d book entries", n)
	}
}

func TestEvaluatorConsultsBook(t *testing.T) {
	win := mustState(t, "XXX/OO./...")
	b := New("tictactoe")
	b.Add(win.Key(), 0.5)

	eval := b.Evaluator(nil)
	if v, err := eval(win, 1, nil); err != nil || v != 0.5 {
		t.Errorf("book entry evaluated to %v, %v", v, err)
	}
	if v, err := eval(mustState(t, "XX./OO./..."), 0, nil); err != nil || v != 0 {
		t.Errorf("fallback evaluated to %v, %v", v, err)
	}

	opts := engine.DefaultOptions()
	b.Apply(&opts)
	e, err := engine.NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	r, err := e.Search(context.Background(), mustState(t, "XX./OO./..."), 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if r.Evaluation != 0.5 {
		t.Errorf("Evaluation = %v, expected the book value", r.Evaluation)
	}
}
