package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// EvaluationRange bounds the value of a subtree. Min <= Max always holds;
// Min == Max is an exact value.
type EvaluationRange struct {
	Min float64
	Max float64
}

// UnboundedRange returns (-inf, +inf)
func UnboundedRange() EvaluationRange {
	return EvaluationRange{Min: math.Inf(-1), Max: math.Inf(1)}
}

// ExactRange returns [v, v]
func ExactRange(v float64) EvaluationRange {
	return EvaluationRange{Min: v, Max: v}
}

// IsExact reports whether the range has collapsed to a single value
func (r EvaluationRange) IsExact() bool {
	return r.Min == r.Max
}

// Contains reports whether v lies within the range
func (r EvaluationRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// RaiseMin narrows the lower bound to v. Lower values are ignored.
func (r EvaluationRange) RaiseMin(v float64) (EvaluationRange, bool) {
	if v <= r.Min {
		return r, true
	}
	if v > r.Max {
		return r, false
	}
	r.Min = v
	return r, true
}

// LowerMax narrows the upper bound to v. Higher values are ignored.
func (r EvaluationRange) LowerMax(v float64) (EvaluationRange, bool) {
	if v >= r.Max {
		return r, true
	}
	if v < r.Min {
		return r, false
	}
	r.Max = v
	return r, true
}

func (r EvaluationRange) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// CacheKey identifies a cached subtree. Depth is the number of remaining
// plies and Path the ancestor keys; both are zero under KeyState.
type CacheKey struct {
	State string
	Depth int
	Path  string
}

// makeCacheKey builds the key for state at the given keying granularity
func makeCacheKey(keying CacheKeying, state State, remaining int, path []State) CacheKey {
	key := CacheKey{State: state.Key()}
	switch keying {
	case KeyStateDepth:
		key.Depth = remaining
	case KeyStatePath:
		key.Depth = remaining
		var b strings.Builder
		for i, s := range path {
			if i > 0 {
				b.WriteByte('/')
			}
			b.WriteString(s.Key())
		}
		key.Path = b.String()
	}
	return key
}

// CacheEntry stores what is known about one subtree
type CacheEntry struct {
	State    State           // State the entry belongs to
	Range    EvaluationRange // Known bounds
	Sequence []State         // Best line below State (exact entries only)
	Sound    bool            // Produced without horizon cuts
	DeadEnd  bool            // Subtree was exhausted (exact entries only)
}

// BoundCache is a thread-safe store of subtree evaluations. Bounds only ever
// narrow; a narrowing that would invert a range is reported as an
// inconsistency in the hosted game.
type BoundCache struct {
	entries map[CacheKey]*CacheEntry

	// Statistics
	lookups atomic.Uint64
	hits    atomic.Uint64
	adds    atomic.Uint64

	mu sync.RWMutex
}

// NewBoundCache creates an empty cache
func NewBoundCache() *BoundCache {
	return &BoundCache{entries: make(map[CacheKey]*CacheEntry)}
}

// Flush clears all entries and statistics
func (c *BoundCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[CacheKey]*CacheEntry)
	c.lookups.Store(0)
	c.hits.Store(0)
	c.adds.Store(0)
}

// ClearIf removes every entry whose state matches pred and returns the count
func (c *BoundCache) ClearIf(pred func(State) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if pred(e.State) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries
func (c *BoundCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Each calls fn with a copy of every entry until fn returns false. The
// cache is read-locked for the duration, so fn must not modify it.
func (c *BoundCache) Each(fn func(CacheKey, CacheEntry) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, e := range c.entries {
		if !fn(k, *e) {
			return
		}
	}
}

// Get returns the current range stored for key
func (c *BoundCache) Get(key CacheKey) (EvaluationRange, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return EvaluationRange{}, false
	}
	return e.Range, true
}

// AddExact overwrites the entry for key with [v, v]
func (c *BoundCache) AddExact(key CacheKey, state State, v float64) {
	c.addExactLine(key, state, v, nil, true, false)
}

func (c *BoundCache) addExactLine(key CacheKey, state State, v float64, seq []State, sound, deadEnd bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &CacheEntry{
		State:    state,
		Range:    ExactRange(v),
		Sequence: seq,
		Sound:    sound || deadEnd,
		DeadEnd:  deadEnd,
	}
	c.adds.Add(1)
}

// AddMin records that the value for key is at least v
func (c *BoundCache) AddMin(key CacheKey, state State, v float64) error {
	return c.addBound(key, state, v, true, true)
}

// AddMax records that the value for key is at most v
func (c *BoundCache) AddMax(key CacheKey, state State, v float64) error {
	return c.addBound(key, state, v, false, true)
}

func (c *BoundCache) addBound(key CacheKey, state State, v float64, lower, sound bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		r := EvaluationRange{Min: math.Inf(-1), Max: v}
		if lower {
			r = EvaluationRange{Min: v, Max: math.Inf(1)}
		}
		c.entries[key] = &CacheEntry{State: state, Range: r, Sound: sound}
		c.adds.Add(1)
		return nil
	}

	var r EvaluationRange
	if lower {
		r, ok = e.Range.RaiseMin(v)
	} else {
		r, ok = e.Range.LowerMax(v)
	}
	if !ok {
		bound := "max"
		if lower {
			bound = "min"
		}
		return &InconsistencyError{Key: key, Range: e.Range, Value: v, Bound: bound}
	}
	if r != e.Range {
		e.Range = r
		e.Sound = e.Sound && sound
		if !r.IsExact() {
			e.Sequence = nil
			e.DeadEnd = false
		}
		c.adds.Add(1)
	}
	return nil
}

// cacheHit is a usable cached value for a child
type cacheHit struct {
	value    float64
	exact    bool
	sequence []State
	sound    bool
	deadEnd  bool
}

// lookup returns a value for key that is safe to use inside the window
// [alpha, beta]: an exact value, a bound already outside the window, or a
// bound that reaches a win/loss sentinel. Bounds inside the window miss.
func (c *BoundCache) lookup(key CacheKey, alpha, beta, minScore, maxScore float64) (cacheHit, bool) {
	c.lookups.Add(1)

	c.mu.RLock()
	e, ok := c.entries[key]
	var r EvaluationRange
	var hit cacheHit
	if ok {
		r = e.Range
		hit = cacheHit{sequence: e.Sequence, sound: e.Sound, deadEnd: e.DeadEnd}
	}
	c.mu.RUnlock()

	if !ok {
		return cacheHit{}, false
	}

	switch {
	case r.IsExact():
		hit.value, hit.exact = r.Min, true
	case r.Min >= maxScore, r.Min >= beta:
		hit = cacheHit{value: r.Min, sound: hit.sound}
	case r.Max <= minScore, r.Max <= alpha:
		hit = cacheHit{value: r.Max, sound: hit.sound}
	default:
		return cacheHit{}, false
	}
	c.hits.Add(1)
	return hit, true
}

// Stats returns cache statistics
func (c *BoundCache) Stats() (lookups, hits, adds uint64) {
	return c.lookups.Load(), c.hits.Load(), c.adds.Load()
}

// HitRate returns the cache hit rate as a percentage
func (c *BoundCache) HitRate() float64 {
	lookups := c.lookups.Load()
	if lookups == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(lookups) * 100
}

func (k CacheKey) String() string {
	if k.Path == "" && k.Depth == 0 {
		return k.State
	}
	return k.State + "@" + strconv.Itoa(k.Depth) + "|" + k.Path
}
