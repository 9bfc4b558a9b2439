package engine

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// ParallelismMode selects how child expansions are distributed
type ParallelismMode int

const (
	ParallelismNone       ParallelismMode = iota // Everything inline
	ParallelismFirstLevel                        // Fork the root's children only
	ParallelismLevel                             // Fork at Options.ParallelismLevel only
	ParallelismTotal                             // Fork whenever the in-flight budget allows
)

func (m ParallelismMode) String() string {
	switch m {
	case ParallelismNone:
		return "none"
	case ParallelismFirstLevel:
		return "first-level"
	case ParallelismLevel:
		return "level"
	case ParallelismTotal:
		return "total"
	}
	return fmt.Sprintf("ParallelismMode(%d)", int(m))
}

// CacheMode selects the lifetime of the bound cache
type CacheMode int

const (
	CacheNone         CacheMode = iota // No caching
	CacheNewPerSearch                  // Fresh cache per search call
	CacheReuse                         // Cache persists on the engine until cleared
)

func (m CacheMode) String() string {
	switch m {
	case CacheNone:
		return "none"
	case CacheNewPerSearch:
		return "new-per-search"
	case CacheReuse:
		return "reuse"
	}
	return fmt.Sprintf("CacheMode(%d)", int(m))
}

// CacheKeying selects the granularity of cache keys
type CacheKeying int

const (
	KeyState      CacheKeying = iota // State only
	KeyStateDepth                    // State + remaining depth
	KeyStatePath                     // State + remaining depth + ancestor path
)

func (k CacheKeying) String() string {
	switch k {
	case KeyState:
		return "state"
	case KeyStateDepth:
		return "state-depth"
	case KeyStatePath:
		return "state-path"
	}
	return fmt.Sprintf("CacheKeying(%d)", int(k))
}

// EvaluateFunc replaces State.Evaluate at the leaves when set
type EvaluateFunc func(state State, depth int, path []State) (float64, error)

// InstabilityFunc reports whether a horizon state must be searched further
type InstabilityFunc func(state State, depth int, path []State) bool

// Options controls search behavior. The engine copies it at the start of
// every call; changes never affect a search that is already running.
type Options struct {
	MaxDegreeOfParallelism int             // In-flight forked work budget (>= 1)
	Parallelism            ParallelismMode // Work distribution strategy
	ParallelismLevel       int             // Depth level forked by ParallelismLevel (1 = root's children)

	DieEarly        bool    // Stop expanding once a decisive score is found
	FavorShortPaths bool    // Prefer quick wins and slow losses among equal scores
	PreventLoops    bool    // Prune states already on the ancestor path
	MaxScore        float64 // Win sentinel: scores >= MaxScore are decisive for Max
	MinScore        float64 // Loss sentinel: scores <= MinScore are decisive for Min

	IsUnstable      InstabilityFunc // Horizon states reported unstable keep expanding
	QuiescenceLimit int             // Extra plies allowed past the horizon (0 = unbounded)
	Evaluate        EvaluateFunc    // Alternate leaf evaluation
	Pruners         []Pruner        // Consulted before expanding any non-root node

	CacheMode   CacheMode   // Cache lifetime
	CacheKeying CacheKeying // Cache key granularity

	PruneAtMaxDepth  bool // Count a horizon cut as a sound (pruned) result
	DisableAlphaBeta bool // Expand every child with an unbounded window

	Logger *slog.Logger // Defaults to slog.Default()
}

// DefaultOptions returns sequential search without caching or score thresholds
func DefaultOptions() Options {
	return Options{
		MaxDegreeOfParallelism: 1,
		Parallelism:            ParallelismNone,
		ParallelismLevel:       1,
		MaxScore:               math.Inf(1),
		MinScore:               math.Inf(-1),
		CacheMode:              CacheNone,
		CacheKeying:            KeyState,
	}
}

// Validate checks the options for configuration errors
func (o Options) Validate() error {
	if o.MaxDegreeOfParallelism < 1 {
		return fmt.Errorf("%w: got %d", ErrBadParallelism, o.MaxDegreeOfParallelism)
	}
	if o.Parallelism == ParallelismLevel && o.ParallelismLevel < 1 {
		return fmt.Errorf("parallelism level must be at least 1, got %d", o.ParallelismLevel)
	}
	if o.Parallelism < ParallelismNone || o.Parallelism > ParallelismTotal {
		return fmt.Errorf("unknown parallelism mode %v", o.Parallelism)
	}
	if o.CacheMode < CacheNone || o.CacheMode > CacheReuse {
		return fmt.Errorf("unknown cache mode %v", o.CacheMode)
	}
	if o.CacheKeying < KeyState || o.CacheKeying > KeyStatePath {
		return fmt.Errorf("unknown cache keying %v", o.CacheKeying)
	}
	if o.MinScore > o.MaxScore {
		return fmt.Errorf("min score %g exceeds max score %g", o.MinScore, o.MaxScore)
	}
	if o.QuiescenceLimit < 0 {
		return fmt.Errorf("quiescence limit must not be negative, got %d", o.QuiescenceLimit)
	}
	return nil
}

// clone returns a copy that does not share mutable slices with o
func (o Options) clone() Options {
	o.Pruners = slices.Clone(o.Pruners)
	return o
}

// snapshot freezes o for one search call
func (o Options) snapshot() Options {
	o = o.clone()
	if o.PreventLoops {
		o.Pruners = append(o.Pruners, LoopPruner{})
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// isWin reports whether v is decisive in favor of p
func (o *Options) isWin(p Player, v float64) bool {
	if p == Max {
		return v >= o.MaxScore
	}
	return v <= o.MinScore
}
