// Package config loads search profiles and server settings from YAML files
// and maps them onto engine options.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/abengine/pkg/engine"
)

// Config is the top-level configuration shared by the CLI and the server
type Config struct {
	Search SearchConfig `json:"search" yaml:"search"`
	Server ServerConfig `json:"server" yaml:"server"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// SearchConfig is a search profile. Mode fields use the names printed by the
// engine's String methods ("first-level", "reuse", "state-depth", ...).
type SearchConfig struct {
	Depth                  int           `json:"depth" yaml:"depth"`
	Timeout                time.Duration `json:"timeout" yaml:"timeout"` // Iterative deepening budget (0 = none)
	Parallelism            string        `json:"parallelism" yaml:"parallelism"`
	MaxDegreeOfParallelism int           `json:"max_degree_of_parallelism" yaml:"max_degree_of_parallelism"`
	ParallelismLevel       int           `json:"parallelism_level" yaml:"parallelism_level"`
	DieEarly               bool          `json:"die_early" yaml:"die_early"`
	FavorShortPaths        bool          `json:"favor_short_paths" yaml:"favor_short_paths"`
	PreventLoops           bool          `json:"prevent_loops" yaml:"prevent_loops"`
	MaxScore               float64       `json:"max_score" yaml:"max_score"` // Both scores zero means no sentinels
	MinScore               float64       `json:"min_score" yaml:"min_score"`
	QuiescenceLimit        int           `json:"quiescence_limit" yaml:"quiescence_limit"`
	CacheMode              string        `json:"cache_mode" yaml:"cache_mode"`
	CacheKeying            string        `json:"cache_keying" yaml:"cache_keying"`
	PruneAtMaxDepth        bool          `json:"prune_at_max_depth" yaml:"prune_at_max_depth"`
	DisableAlphaBeta       bool          `json:"disable_alpha_beta" yaml:"disable_alpha_beta"`
	Book                   string        `json:"book" yaml:"book"` // Exact-value book file consulted at the leaves
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host              string        `json:"host" yaml:"host"`
	Port              int           `json:"port" yaml:"port"`
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout"`
	MaxSearchWorkers  int           `json:"max_search_workers" yaml:"max_search_workers"`
	MaxIterateWorkers int           `json:"max_iterate_workers" yaml:"max_iterate_workers"`
	RateLimit         float64       `json:"rate_limit" yaml:"rate_limit"` // Requests per second (0 = unlimited)
	RateBurst         int           `json:"rate_burst" yaml:"rate_burst"`
	MaxDepth          int           `json:"max_depth" yaml:"max_depth"`               // Deepest search a request may ask for
	MaxSearchTime     time.Duration `json:"max_search_time" yaml:"max_search_time"`   // Budget of one API search
	MaxIterateTime    time.Duration `json:"max_iterate_time" yaml:"max_iterate_time"` // Budget of one API iterative search
	ExternalAddr      string        `json:"external_addr" yaml:"external_addr"`       // Line protocol listener (empty = off)
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Search: SearchConfig{
			Depth:                  6,
			Parallelism:            engine.ParallelismFirstLevel.String(),
			MaxDegreeOfParallelism: 4,
			ParallelismLevel:       1,
			DieEarly:               true,
			FavorShortPaths:        true,
			MaxScore:               1,
			MinScore:               -1,
			CacheMode:              engine.CacheNewPerSearch.String(),
			CacheKeying:            engine.KeyState.String(),
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			MaxSearchWorkers:  8,
			MaxIterateWorkers: 2,
			RateLimit:         20,
			RateBurst:         40,
			MaxDepth:          12,
			MaxSearchTime:     30 * time.Second,
			MaxIterateTime:    30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, applies ABENGINE_* environment
// overrides and validates the result. An empty path or a missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	loadEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML (or JSON) over the defaults and validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return decode(data, cfg)
}

func decode(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("ABENGINE_DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Search.Depth = i
		}
	}
	if v := os.Getenv("ABENGINE_PARALLELISM"); v != "" {
		cfg.Search.Parallelism = v
	}
	if v := os.Getenv("ABENGINE_MAX_DEGREE_OF_PARALLELISM"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxDegreeOfParallelism = i
		}
	}
	if v := os.Getenv("ABENGINE_CACHE_MODE"); v != "" {
		cfg.Search.CacheMode = v
	}
	if v := os.Getenv("ABENGINE_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = i
		}
	}
	if v := os.Getenv("ABENGINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks every section
func (c Config) Validate() error {
	if c.Search.Depth < 1 {
		return fmt.Errorf("search depth must be >= 1, got %d", c.Search.Depth)
	}
	if c.Search.Timeout < 0 {
		return fmt.Errorf("search timeout must not be negative")
	}
	if _, err := c.Search.Options(nil); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxSearchWorkers < 1 || c.Server.MaxIterateWorkers < 1 {
		return fmt.Errorf("server worker limits must be >= 1")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.Server.MaxDepth < 1 {
		return fmt.Errorf("server max depth must be >= 1, got %d", c.Server.MaxDepth)
	}
	if c.Server.MaxSearchTime < 0 || c.Server.MaxIterateTime < 0 {
		return fmt.Errorf("server search budgets must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Options maps the profile onto engine options
func (s SearchConfig) Options(logger *slog.Logger) (engine.Options, error) {
	opts := engine.DefaultOptions()

	var err error
	if opts.Parallelism, err = ParseParallelism(s.Parallelism); err != nil {
		return opts, err
	}
	if opts.CacheMode, err = ParseCacheMode(s.CacheMode); err != nil {
		return opts, err
	}
	if opts.CacheKeying, err = ParseCacheKeying(s.CacheKeying); err != nil {
		return opts, err
	}
	opts.MaxDegreeOfParallelism = s.MaxDegreeOfParallelism
	if s.ParallelismLevel > 0 {
		opts.ParallelismLevel = s.ParallelismLevel
	}
	opts.DieEarly = s.DieEarly
	opts.FavorShortPaths = s.FavorShortPaths
	opts.PreventLoops = s.PreventLoops
	opts.MaxScore = s.MaxScore
	opts.MinScore = s.MinScore
	if s.MaxScore == 0 && s.MinScore == 0 {
		opts.MaxScore, opts.MinScore = math.Inf(1), math.Inf(-1)
	}
	opts.QuiescenceLimit = s.QuiescenceLimit
	opts.PruneAtMaxDepth = s.PruneAtMaxDepth
	opts.DisableAlphaBeta = s.DisableAlphaBeta
	opts.Logger = logger

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// ParseParallelism accepts the names printed by engine.ParallelismMode
func ParseParallelism(s string) (engine.ParallelismMode, error) {
	for m := engine.ParallelismNone; m <= engine.ParallelismTotal; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	if s == "" {
		return engine.ParallelismNone, nil
	}
	return 0, fmt.Errorf("unknown parallelism %q", s)
}

// ParseCacheMode accepts the names printed by engine.CacheMode
func ParseCacheMode(s string) (engine.CacheMode, error) {
	for m := engine.CacheNone; m <= engine.CacheReuse; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	if s == "" {
		return engine.CacheNone, nil
	}
	return 0, fmt.Errorf("unknown cache mode %q", s)
}

// ParseCacheKeying accepts the names printed by engine.CacheKeying
func ParseCacheKeying(s string) (engine.CacheKeying, error) {
	for k := engine.KeyState; k <= engine.KeyStatePath; k++ {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	if s == "" {
		return engine.KeyState, nil
	}
	return 0, fmt.Errorf("unknown cache keying %q", s)
}

// Logger builds a slog logger writing to w
func (l LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
