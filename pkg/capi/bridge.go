package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/yourusername/abengine/internal/config"
	"github.com/yourusername/abengine/internal/games"
	"github.com/yourusername/abengine/pkg/api"
	"github.com/yourusername/abengine/pkg/engine"
)

var (
	globalEngine *engine.Engine
	engineMutex  sync.RWMutex
	lastError    string
	errorMutex   sync.Mutex
)

var errNotInitialized = errors.New("engine not initialized")

// setError stores an error message for later retrieval.
func setError(err error) {
	errorMutex.Lock()
	defer errorMutex.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getError() string {
	errorMutex.Lock()
	defer errorMutex.Unlock()
	return lastError
}

// initEngine replaces the global engine. data is a YAML or JSON
// configuration document; empty data selects the defaults.
func initEngine(data string) error {
	cfg := config.Default()
	if data != "" {
		var err error
		if cfg, err = config.Parse([]byte(data)); err != nil {
			return err
		}
	}
	logger := cfg.Log.Logger(os.Stderr)
	opts, err := cfg.Search.Options(logger)
	if err != nil {
		return err
	}
	eng, err := engine.NewEngine(opts)
	if err != nil {
		return err
	}

	engineMutex.Lock()
	globalEngine = eng
	engineMutex.Unlock()
	return nil
}

func shutdownEngine() {
	engineMutex.Lock()
	defer engineMutex.Unlock()
	globalEngine = nil
}

func currentEngine() (*engine.Engine, error) {
	engineMutex.RLock()
	defer engineMutex.RUnlock()
	if globalEngine == nil {
		return nil, errNotInitialized
	}
	return globalEngine, nil
}

func resolve(game, position string) (engine.State, error) {
	g, err := games.Lookup(game)
	if err != nil {
		return nil, err
	}
	s, err := g.Position(position)
	if err != nil {
		return nil, fmt.Errorf("invalid position: %w", err)
	}
	return s, nil
}

// searchJSON runs a depth-bounded search and encodes the result
func searchJSON(game, position string, depth int) (string, error) {
	eng, err := currentEngine()
	if err != nil {
		return "", err
	}
	state, err := resolve(game, position)
	if err != nil {
		return "", err
	}
	r, err := eng.Search(context.Background(), state, depth)
	if err != nil {
		return "", err
	}
	return encode(game, state, r)
}

// iterateJSON runs iterative deepening from depth 1 to maxDepth. A single
// round is a plain search, still bounded by timeout.
func iterateJSON(game, position string, maxDepth int, timeout time.Duration) (string, error) {
	eng, err := currentEngine()
	if err != nil {
		return "", err
	}
	state, err := resolve(game, position)
	if err != nil {
		return "", err
	}

	ctx := context.Background()
	var r *engine.SearchResult
	if maxDepth <= 1 {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		r, err = eng.Search(ctx, state, maxDepth)
	} else {
		r, err = eng.IterativeSearchTimeout(ctx, state, 1, maxDepth, timeout)
	}
	if err != nil {
		return "", err
	}
	return encode(game, state, r)
}

func clearCache() error {
	eng, err := currentEngine()
	if err != nil {
		return err
	}
	eng.ClearCache()
	return nil
}

func encode(game string, state engine.State, r *engine.SearchResult) (string, error) {
	data, err := json.Marshal(api.ResultToResponse("", game, state, r))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// errorJSON is returned through the result pointer on failure
func errorJSON(err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(data)
}
