package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yourusername/abengine/internal/config"
	"github.com/yourusername/abengine/internal/games"
	"github.com/yourusername/abengine/pkg/engine"
)

// Limits caps what a single request may ask for
type Limits struct {
	MaxDepth       int           // Deepest search a request may ask for
	MaxSearchTime  time.Duration // Budget of a single search
	MaxIterateTime time.Duration // Budget of an iterative search
	QueueTimeout   time.Duration // Longest wait for a worker slot
}

// DefaultLimits returns the limits used when none are configured
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:       12,
		MaxSearchTime:  30 * time.Second,
		MaxIterateTime: 30 * time.Second,
		QueueTimeout:   5 * time.Second,
	}
}

// Handlers holds the HTTP handlers and engine reference
type Handlers struct {
	engine  *engine.Engine
	version string
	pool    *WorkerPool
	limits  Limits
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance without a worker pool
func NewHandlers(e *engine.Engine, version string) *Handlers {
	return NewHandlersWithPool(e, version, nil)
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool
func NewHandlersWithPool(e *engine.Engine, version string, pool *WorkerPool) *Handlers {
	return &Handlers{
		engine:  e,
		version: version,
		pool:    pool,
		limits:  DefaultLimits(),
		logger:  slog.Default(),
	}
}

// SetLimits replaces the request limits
func (h *Handlers) SetLimits(l Limits) {
	def := DefaultLimits()
	if l.MaxDepth <= 0 {
		l.MaxDepth = def.MaxDepth
	}
	if l.MaxSearchTime <= 0 {
		l.MaxSearchTime = def.MaxSearchTime
	}
	if l.MaxIterateTime <= 0 {
		l.MaxIterateTime = def.MaxIterateTime
	}
	if l.QueueTimeout <= 0 {
		l.QueueTimeout = def.QueueTimeout
	}
	h.limits = l
}

// SetLogger replaces the request logger
func (h *Handlers) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// Reconfigure installs new engine options for subsequent requests.
// Requests already searching keep the options they started with.
func (h *Handlers) Reconfigure(opts engine.Options) error {
	return h.engine.Configure(func(o *engine.Options) { *o = opts })
}

// apiError is a failure mapped to an HTTP status and an error code
type apiError struct {
	status int
	code   string
	err    error
}

func (e *apiError) Error() string { return e.err.Error() }

func badRequest(code string, err error) *apiError {
	return &apiError{status: http.StatusBadRequest, code: code, err: err}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: requestIDFrom(r.Context()),
	})
}

func writeAPIError(w http.ResponseWriter, r *http.Request, e *apiError) {
	writeError(w, r, e.status, e.err.Error(), e.code)
}

// searchError maps engine errors to API errors
func searchError(err error) *apiError {
	switch {
	case errors.Is(err, engine.ErrNoNeighbors):
		return &apiError{status: http.StatusUnprocessableEntity, code: "NO_MOVES", err: err}
	case errors.Is(err, engine.ErrBadDepth),
		errors.Is(err, engine.ErrBadDepthRange),
		errors.Is(err, engine.ErrBadDepthList):
		return badRequest("INVALID_DEPTH", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &apiError{status: http.StatusServiceUnavailable, code: "CANCELLED", err: err}
	}
	return &apiError{status: http.StatusInternalServerError, code: "SEARCH_ERROR", err: err}
}

// acquire takes a pool slot when a pool is configured. The returned
// function releases it.
func (h *Handlers) acquire(ctx context.Context, kind WorkKind) (func(), *apiError) {
	if h.pool == nil {
		return func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.limits.QueueTimeout)
	defer cancel()
	if err := h.pool.Acquire(ctx, kind); err != nil {
		return nil, &apiError{status: http.StatusServiceUnavailable, code: "SERVER_BUSY", err: errors.New("server busy")}
	}
	return func() { h.pool.Release(kind) }, nil
}

// target resolves the game, the position and the engine of a request
func (h *Handlers) target(gameName, position string, o *OptionOverrides) (engine.State, *engine.Engine, *apiError) {
	if gameName == "" {
		return nil, nil, badRequest("MISSING_GAME", errors.New("game is required"))
	}
	g, err := games.Lookup(gameName)
	if err != nil {
		return nil, nil, badRequest("UNKNOWN_GAME", err)
	}
	state, err := g.Position(position)
	if err != nil {
		return nil, nil, badRequest("INVALID_POSITION", fmt.Errorf("invalid position: %w", err))
	}
	e, err := h.engineFor(o)
	if err != nil {
		return nil, nil, badRequest("INVALID_OPTIONS", err)
	}
	return state, e, nil
}

// engineFor returns the shared engine, or a private one when the request
// overrides options
func (h *Handlers) engineFor(o *OptionOverrides) (*engine.Engine, error) {
	if o == nil {
		return h.engine, nil
	}
	opts := h.engine.Options()
	if o.Parallelism != nil {
		m, err := config.ParseParallelism(*o.Parallelism)
		if err != nil {
			return nil, err
		}
		opts.Parallelism = m
	}
	if o.CacheKeying != nil {
		k, err := config.ParseCacheKeying(*o.CacheKeying)
		if err != nil {
			return nil, err
		}
		opts.CacheKeying = k
	}
	if o.MaxDegreeOfParallelism != nil {
		opts.MaxDegreeOfParallelism = *o.MaxDegreeOfParallelism
	}
	if o.ParallelismLevel != nil {
		opts.ParallelismLevel = *o.ParallelismLevel
	}
	if o.DieEarly != nil {
		opts.DieEarly = *o.DieEarly
	}
	if o.FavorShortPaths != nil {
		opts.FavorShortPaths = *o.FavorShortPaths
	}
	if o.PreventLoops != nil {
		opts.PreventLoops = *o.PreventLoops
	}
	if o.QuiescenceLimit != nil {
		opts.QuiescenceLimit = *o.QuiescenceLimit
	}
	if o.PruneAtMaxDepth != nil {
		opts.PruneAtMaxDepth = *o.PruneAtMaxDepth
	}
	if o.DisableAlphaBeta != nil {
		opts.DisableAlphaBeta = *o.DisableAlphaBeta
	}
	// Overridden searches must not mix results into the shared cache
	if opts.CacheMode == engine.CacheReuse {
		opts.CacheMode = engine.CacheNewPerSearch
	}
	return engine.NewEngine(opts)
}

// search runs one bounded search on behalf of any transport
func (h *Handlers) search(ctx context.Context, req SearchRequest) (SearchResponse, *apiError) {
	if req.Depth < 1 || req.Depth > h.limits.MaxDepth {
		return SearchResponse{}, badRequest("INVALID_DEPTH", fmt.Errorf("depth must be between 1 and %d", h.limits.MaxDepth))
	}
	state, e, aerr := h.target(req.Game, req.Position, req.Options)
	if aerr != nil {
		return SearchResponse{}, aerr
	}
	release, aerr := h.acquire(ctx, WorkSearch)
	if aerr != nil {
		return SearchResponse{}, aerr
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, h.limits.MaxSearchTime)
	defer cancel()
	r, err := e.Search(ctx, state, req.Depth)
	if err != nil {
		return SearchResponse{}, searchError(err)
	}
	return ResultToResponse(requestIDFrom(ctx), req.Game, state, r), nil
}

// iterate runs iterative deepening, reporting every completed round
func (h *Handlers) iterate(ctx context.Context, req IterateRequest, progress func(RoundResponse)) (SearchResponse, *apiError) {
	depths := req.Depths
	if len(depths) == 0 {
		start := req.StartDepth
		if start == 0 {
			start = 1
		}
		if req.MaxDepth <= start {
			return SearchResponse{}, badRequest("INVALID_DEPTH", fmt.Errorf("max_depth must exceed start depth %d", start))
		}
		for d := start; d <= req.MaxDepth; d++ {
			depths = append(depths, d)
		}
	}
	if depths[len(depths)-1] > h.limits.MaxDepth {
		return SearchResponse{}, badRequest("INVALID_DEPTH", fmt.Errorf("depth must not exceed %d", h.limits.MaxDepth))
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	if timeout <= 0 || timeout > h.limits.MaxIterateTime {
		timeout = h.limits.MaxIterateTime
	}

	state, e, aerr := h.target(req.Game, req.Position, req.Options)
	if aerr != nil {
		return SearchResponse{}, aerr
	}
	release, aerr := h.acquire(ctx, WorkIterate)
	if aerr != nil {
		return SearchResponse{}, aerr
	}
	defer release()

	iopts := engine.IterativeOptions{Depths: depths, Timeout: timeout}
	if progress != nil {
		iopts.Progress = func(depth int, r *engine.SearchResult) {
			progress(roundToResponse(depth, r))
		}
	}
	r, err := e.Iterate(ctx, state, iopts)
	if err != nil {
		return SearchResponse{}, searchError(err)
	}
	return ResultToResponse(requestIDFrom(ctx), req.Game, state, r), nil
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Ready:   h.engine != nil,
		Games:   games.Names(),
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// Games handles GET /api/games
func (h *Handlers) Games(w http.ResponseWriter, r *http.Request) {
	var out []GameInfo
	for _, name := range games.Names() {
		g, _ := games.Lookup(name)
		info := GameInfo{Name: g.Name, Description: g.Description}
		if s, err := g.Position(""); err == nil {
			info.Start = s.Key()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// Search handles POST /api/search
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	resp, aerr := h.search(r.Context(), req)
	if aerr != nil {
		writeAPIError(w, r, aerr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Iterate handles POST /api/iterate
func (h *Handlers) Iterate(w http.ResponseWriter, r *http.Request) {
	var req IterateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	resp, aerr := h.iterate(r.Context(), req, nil)
	if aerr != nil {
		writeAPIError(w, r, aerr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CacheStats handles GET /api/cache
func (h *Handlers) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CacheResponse{
		Mode:       h.engine.Options().CacheMode.String(),
		CacheStats: h.engine.CacheStats(),
	})
}

// ClearCache handles DELETE /api/cache
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearCache()
	h.logger.Info("cache cleared", slog.String("request_id", requestIDFrom(r.Context())))
	writeJSON(w, http.StatusOK, ClearCacheResponse{Cleared: true})
}

// ClearCacheKey handles DELETE /api/cache/{key}. Keys containing '/' must
// be escaped as %2F.
func (h *Handlers) ClearCacheKey(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		writeError(w, r, http.StatusBadRequest, "invalid key", "INVALID_KEY")
		return
	}
	removed := h.engine.ClearCacheIf(func(s engine.State) bool { return s.Key() == key })
	writeJSON(w, http.StatusOK, ClearCacheResponse{Cleared: removed > 0, Removed: removed, Key: key})
}

type ctxKey int

const requestIDKey ctxKey = iota

// requestIDFrom returns the ID set by the request ID middleware, or a new one
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return uuid.NewString()
}
