package engine

import (
	"errors"
	"fmt"
)

// Configuration errors, returned at the call boundary before any search runs
var (
	ErrBadParallelism = errors.New("max degree of parallelism must be at least 1")
	ErrBadDepth       = errors.New("search depth must be positive")
	ErrBadDepthRange  = errors.New("start depth must be lower than max depth")
	ErrBadDepthList   = errors.New("depth sequence must be non-empty, positive and increasing")
	ErrFillCacheMode  = errors.New("cache pre-fill requires reuse cache mode")
	ErrNoNeighbors    = errors.New("root state has no successors")
	ErrNilState       = errors.New("state is nil")
)

// Contract violations by the hosted game. These are never retried.
var (
	ErrEmptyPlayer       = errors.New("state has no player to move")
	ErrBadStateKind      = errors.New("unrecognized state kind")
	ErrBadProbability    = errors.New("chance branch probability must be positive")
	ErrInconsistentRange = errors.New("inconsistent evaluation range")
)

// InconsistencyError reports a cache narrowing that contradicts a bound
// already installed for the same key.
type InconsistencyError struct {
	Key   CacheKey
	Range EvaluationRange
	Value float64
	Bound string // "min" or "max"
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("cannot set %s=%g on %v for state %q: %v", e.Bound, e.Value, e.Range, e.Key.State, ErrInconsistentRange)
}

func (e *InconsistencyError) Unwrap() error {
	return ErrInconsistentRange
}
