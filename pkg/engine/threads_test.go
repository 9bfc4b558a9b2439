package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func work(v float64) func() (*SearchResult, error) {
	return func() (*SearchResult, error) {
		return leafResult(v, true, false), nil
	}
}

func TestNewThreadManager(t *testing.T) {
	opts := DefaultOptions()
	assert.IsType(t, sequentialManager{}, newThreadManager(&opts, 4))

	opts.Parallelism = ParallelismFirstLevel
	lm, ok := newThreadManager(&opts, 4).(*levelManager)
	require.True(t, ok)
	assert.Equal(t, 1, lm.level)

	opts.Parallelism = ParallelismLevel
	opts.ParallelismLevel = 3
	lm, ok = newThreadManager(&opts, 4).(*levelManager)
	require.True(t, ok)
	assert.Equal(t, 3, lm.level)

	opts.Parallelism = ParallelismTotal
	_, ok = newThreadManager(&opts, 4).(*totalManager)
	assert.True(t, ok)
}

func TestSequentialManagerRunsInline(t *testing.T) {
	var m sequentialManager
	f := m.Invoke(0, work(3))
	require.True(t, f.Ready())
	r, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3.0, r.Evaluation)
	assert.Zero(t, m.Forks())
}

func TestLevelManagerForksOnlyAtLevel(t *testing.T) {
	m := &levelManager{level: 2}

	for depth := 0; depth < 4; depth++ {
		r, err := m.Invoke(depth, work(float64(depth))).Wait()
		require.NoError(t, err)
		assert.Equal(t, float64(depth), r.Evaluation)
	}
	assert.Equal(t, int64(1), m.Forks(), "only depth level-1 forks")
}

func TestTotalManagerRespectsBudget(t *testing.T) {
	const degree = 3
	m := newTotalManager(degree, 10)

	var peak atomic.Int64
	release := make(chan struct{})
	block := func() (*SearchResult, error) {
		n := m.InFlight()
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		return leafResult(1, true, false), nil
	}

	var futures []*Future
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < degree; i++ {
		futures = append(futures, m.Invoke(0, block))
	}
	assert.Equal(t, int64(degree), m.Forks())

	// Over budget: runs inline on the caller, so it must not block here
	wg.Add(1)
	go func() {
		defer wg.Done()
		f := m.Invoke(0, work(2))
		mu.Lock()
		futures = append(futures, f)
		mu.Unlock()
	}()
	wg.Wait()
	assert.Equal(t, int64(degree), m.Forks(), "no fork beyond the budget")

	close(release)
	for _, f := range futures {
		_, err := f.Wait()
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, peak.Load(), int64(degree))

	// Slots are released once forked work completes
	require.Eventually(t, func() bool { return m.InFlight() == 0 }, time.Second, time.Millisecond)
	_, err := m.Invoke(0, work(1)).Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(degree+1), m.Forks())
}

func TestTotalManagerInlineAboveHorizon(t *testing.T) {
	m := newTotalManager(4, 3)

	// Children of depth 2 nodes are leaves at maxDepth 3
	f := m.Invoke(2, work(1))
	assert.True(t, f.Ready())
	assert.Zero(t, m.Forks())

	_, err := m.Invoke(1, work(1)).Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Forks())
}
