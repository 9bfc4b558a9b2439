// Package api provides the HTTP/JSON and WebSocket API of the search engine.
package api

import (
	"math"
	"time"

	"github.com/yourusername/abengine/internal/games"
	"github.com/yourusername/abengine/pkg/engine"
)

// ============================================================================
// Request Types
// ============================================================================

// OptionOverrides adjusts the server's engine options for one request.
// A request with overrides runs on its own engine with a private cache.
type OptionOverrides struct {
	Parallelism            *string `json:"parallelism,omitempty"` // none, first-level, level, total
	MaxDegreeOfParallelism *int    `json:"max_degree_of_parallelism,omitempty"`
	ParallelismLevel       *int    `json:"parallelism_level,omitempty"`
	DieEarly               *bool   `json:"die_early,omitempty"`
	FavorShortPaths        *bool   `json:"favor_short_paths,omitempty"`
	PreventLoops           *bool   `json:"prevent_loops,omitempty"`
	CacheKeying            *string `json:"cache_keying,omitempty"` // state, state-depth, state-path
	QuiescenceLimit        *int    `json:"quiescence_limit,omitempty"`
	PruneAtMaxDepth        *bool   `json:"prune_at_max_depth,omitempty"`
	DisableAlphaBeta       *bool   `json:"disable_alpha_beta,omitempty"`
}

// SearchRequest is the request body for a depth-bounded search
type SearchRequest struct {
	Game     string           `json:"game"`               // Registered game name
	Position string           `json:"position,omitempty"` // Diagram or key (empty = start)
	Depth    int              `json:"depth"`              // Plies to search
	Options  *OptionOverrides `json:"options,omitempty"`
}

// IterateRequest is the request body for iterative deepening. Depths takes
// precedence over StartDepth/MaxDepth.
type IterateRequest struct {
	Game       string           `json:"game"`
	Position   string           `json:"position,omitempty"`
	StartDepth int              `json:"start_depth,omitempty"` // Default 1
	MaxDepth   int              `json:"max_depth"`
	Depths     []int            `json:"depths,omitempty"`
	TimeoutMS  int              `json:"timeout_ms,omitempty"` // 0 = server limit
	Options    *OptionOverrides `json:"options,omitempty"`
}

// ============================================================================
// Response Types
// ============================================================================

// SearchResponse reports one search result
type SearchResponse struct {
	ID       string `json:"id"` // Request ID
	Game     string `json:"game"`
	Position string `json:"position"` // Key of the searched state

	Evaluation float64  `json:"evaluation"`
	BestMove   string   `json:"best_move,omitempty"`  // Key of the chosen successor
	BestBoard  string   `json:"best_board,omitempty"` // Human-readable chosen successor
	Line       []string `json:"line,omitempty"`       // Keys of the principal variation

	Leaves        int64 `json:"leaves"`
	InternalNodes int64 `json:"internal_nodes"`
	Forks         int64 `json:"forks"`

	FullTreeSearchedOrPruned bool `json:"full_tree_searched_or_pruned"`
	AllChildrenAreDeadEnds   bool `json:"all_children_are_dead_ends"`
	ChildrenPruned           bool `json:"children_pruned"`

	MaxDepth     int     `json:"max_depth"`
	DepthReached int     `json:"depth_reached,omitempty"`
	Completed    bool    `json:"completed"`
	ElapsedMS    float64 `json:"elapsed_ms"`
}

// RoundResponse is streamed after every completed iterative round
type RoundResponse struct {
	Depth      int     `json:"depth"`
	Evaluation float64 `json:"evaluation"`
	BestMove   string  `json:"best_move,omitempty"`
	Leaves     int64   `json:"leaves"`
	ElapsedMS  float64 `json:"elapsed_ms"`
}

// CacheResponse describes the shared cache
type CacheResponse struct {
	Mode string `json:"mode"`
	engine.CacheStats
}

// ClearCacheResponse reports a cache clear
type ClearCacheResponse struct {
	Cleared bool   `json:"cleared"`
	Removed int    `json:"removed,omitempty"`
	Key     string `json:"key,omitempty"`
}

// GameInfo describes a registered game
type GameInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Start       string `json:"start"` // Key of the starting position
}

// ErrorResponse is returned when an error occurs
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version"`
	Ready   bool       `json:"ready"`
	Games   []string   `json:"games"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

// finite keeps JSON encodable values; unbounded sentinels become the
// largest float
func finite(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	case math.IsNaN(v):
		return 0
	}
	return v
}

// ResultToResponse converts an engine result
func ResultToResponse(id, game string, state engine.State, r *engine.SearchResult) SearchResponse {
	resp := SearchResponse{
		ID:                       id,
		Game:                     game,
		Position:                 state.Key(),
		Evaluation:               finite(r.Evaluation),
		Leaves:                   r.Leaves,
		InternalNodes:            r.InternalNodes,
		Forks:                    r.Forks,
		FullTreeSearchedOrPruned: r.FullTreeSearchedOrPruned,
		AllChildrenAreDeadEnds:   r.AllChildrenAreDeadEnds,
		ChildrenPruned:           r.ChildrenPruned,
		MaxDepth:                 r.MaxDepth,
		DepthReached:             r.DepthReached,
		Completed:                r.Completed,
		ElapsedMS:                float64(r.SearchTime) / float64(time.Millisecond),
	}
	if next := r.NextMove(); next != nil {
		resp.BestMove = next.Key()
		resp.BestBoard = games.Describe(next)
	}
	for _, s := range r.StateSequence {
		resp.Line = append(resp.Line, s.Key())
	}
	return resp
}

func roundToResponse(depth int, r *engine.SearchResult) RoundResponse {
	resp := RoundResponse{
		Depth:      depth,
		Evaluation: finite(r.Evaluation),
		Leaves:     r.Leaves,
		ElapsedMS:  float64(r.SearchTime) / float64(time.Millisecond),
	}
	if next := r.NextMove(); next != nil {
		resp.BestMove = next.Key()
	}
	return resp
}
