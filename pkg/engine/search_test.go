package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/abengine/internal/games/connect4"
	"github.com/yourusername/abengine/internal/games/dice"
	"github.com/yourusername/abengine/internal/games/tictactoe"
	"github.com/yourusername/abengine/internal/games/tree"
	"github.com/yourusername/abengine/pkg/engine"
)

func quietOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

func newEngine(t *testing.T, configure func(*engine.Options)) *engine.Engine {
	t.Helper()
	opts := quietOptions()
	if configure != nil {
		configure(&opts)
	}
	e, err := engine.NewEngine(opts)
	require.NoError(t, err)
	return e
}

func search(t *testing.T, e *engine.Engine, s engine.State, depth int) *engine.SearchResult {
	t.Helper()
	r, err := e.Search(context.Background(), s, depth)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}

func TestTerminalChild(t *testing.T) {
	leaf := tree.Leaf("leaf", engine.Min, 7)
	root := tree.MaxNode("root", leaf)

	r := search(t, newEngine(t, nil), root, 3)
	assert.Equal(t, 7.0, r.Evaluation)
	assert.Equal(t, int64(1), r.Leaves)
	assert.Equal(t, int64(1), r.InternalNodes, "only the root is expanded")
	assert.True(t, r.AllChildrenAreDeadEnds)
	assert.True(t, r.FullTreeSearchedOrPruned)
	assert.True(t, r.Completed)
	assert.Same(t, leaf, r.NextMove())
	assert.Equal(t, int64(1), leaf.Evaluations())
}

func TestRootWithoutSuccessors(t *testing.T) {
	_, err := newEngine(t, nil).Search(context.Background(), tree.Leaf("closed", engine.Max, 1), 2)
	assert.ErrorIs(t, err, engine.ErrNoNeighbors)
}

func TestConfigurationErrors(t *testing.T) {
	opts := quietOptions()
	opts.MaxDegreeOfParallelism = 0
	_, err := engine.NewEngine(opts)
	assert.ErrorIs(t, err, engine.ErrBadParallelism)

	e := newEngine(t, nil)
	root := tree.MaxNode("root", tree.Leaf("a", engine.Min, 1))

	_, err = e.Search(context.Background(), root, 0)
	assert.ErrorIs(t, err, engine.ErrBadDepth)
	_, err = e.Search(context.Background(), nil, 1)
	assert.ErrorIs(t, err, engine.ErrNilState)

	err = e.Configure(func(o *engine.Options) { o.MaxDegreeOfParallelism = -1 })
	assert.ErrorIs(t, err, engine.ErrBadParallelism)
	assert.Equal(t, 1, e.Options().MaxDegreeOfParallelism, "rejected configuration is not installed")
}

func TestHorizonLeafIsNotSound(t *testing.T) {
	root := tree.MaxNode("root",
		tree.MinNode("a", tree.Leaf("a1", engine.Max, 1)).WithValue(4),
	)

	r := search(t, newEngine(t, nil), root, 1)
	assert.Equal(t, 4.0, r.Evaluation, "horizon uses the static value")
	assert.False(t, r.FullTreeSearchedOrPruned)
	assert.False(t, r.AllChildrenAreDeadEnds)

	pruned := search(t, newEngine(t, func(o *engine.Options) { o.PruneAtMaxDepth = true }), root, 1)
	assert.True(t, pruned.FullTreeSearchedOrPruned)
	assert.False(t, pruned.AllChildrenAreDeadEnds)
}

func TestAlphaBetaSoundness(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		root := tree.Random(seed, 5, 4)
		for _, depth := range []int{2, 3, 5} {
			full := search(t, newEngine(t, func(o *engine.Options) { o.DisableAlphaBeta = true }), root, depth)
			pruned := search(t, newEngine(t, nil), root, depth)
			early := search(t, newEngine(t, func(o *engine.Options) {
				o.DieEarly = true
				o.MaxScore = 99
				o.MinScore = -100
			}), root, depth)

			assert.Equal(t, full.Evaluation, pruned.Evaluation, "seed %d depth %d", seed, depth)
			assert.Equal(t, full.Evaluation, early.Evaluation, "seed %d depth %d", seed, depth)
			assert.LessOrEqual(t, pruned.Leaves, full.Leaves)
			assert.Equal(t, full.NextMove().Key(), pruned.NextMove().Key(), "seed %d depth %d", seed, depth)
		}
	}
}

func TestAlphaBetaPrunes(t *testing.T) {
	root := tree.Random(7, 6, 5)
	full := search(t, newEngine(t, func(o *engine.Options) { o.DisableAlphaBeta = true }), root, 6)
	pruned := search(t, newEngine(t, nil), root, 6)

	assert.False(t, full.ChildrenPruned)
	assert.True(t, pruned.ChildrenPruned)
	assert.Less(t, pruned.Leaves, full.Leaves)
	assert.Equal(t, int64(5*5*5*5*5*5), full.Leaves)
}

func TestDisableAlphaBetaKeepsEveryValueExact(t *testing.T) {
	s, err := tictactoe.FromDiagram("X../.O./...")
	require.NoError(t, err)

	e := newEngine(t, func(o *engine.Options) {
		o.DisableAlphaBeta = true
		o.CacheMode = engine.CacheReuse
		o.CacheKeying = engine.KeyState
	})
	r := search(t, e, s, 9)

	assert.False(t, r.ChildrenPruned)
	assert.True(t, r.FullTreeSearchedOrPruned)
	assert.True(t, r.AllChildrenAreDeadEnds, "transposed cache hits must stay dead ends")

	reference := search(t, newEngine(t, nil), s, 9)
	assert.Equal(t, reference.Evaluation, r.Evaluation)

	require.Positive(t, e.Cache().Len())
	e.Cache().Each(func(k engine.CacheKey, entry engine.CacheEntry) bool {
		assert.True(t, entry.Range.IsExact(), "state %s stored as %v", k.State, entry.Range)
		assert.True(t, entry.DeadEnd, "state %s", k.State)
		return true
	})
}

func TestFavorShortPathsRecomputesTiedCacheBound(t *testing.T) {
	short := tree.Leaf("short", engine.Min, 1)
	root := tree.MaxNode("root",
		tree.MinNode("long", tree.MaxNode("long2", tree.Leaf("long3", engine.Min, 1))),
		short,
	)

	e := newEngine(t, func(o *engine.Options) {
		o.FavorShortPaths = true
		o.CacheMode = engine.CacheReuse
	})
	// An upper bound equal to the value of the first child
	require.NoError(t, e.Cache().AddMax(engine.CacheKey{State: "short"}, short, 1))

	r := search(t, e, root, 4)
	assert.Equal(t, 1.0, r.Evaluation)
	assert.Equal(t, "short", r.NextMove().Key())
	assert.Len(t, r.StateSequence, 1)
}

func TestCacheSoundness(t *testing.T) {
	keyings := []engine.CacheKeying{engine.KeyState, engine.KeyStateDepth, engine.KeyStatePath}

	for seed := uint64(1); seed <= 10; seed++ {
		root := tree.Random(seed, 5, 3)
		for _, depth := range []int{3, 5} {
			fresh := search(t, newEngine(t, nil), root, depth)

			for _, keying := range keyings {
				e := newEngine(t, func(o *engine.Options) {
					o.CacheMode = engine.CacheReuse
					o.CacheKeying = keying
				})
				first := search(t, e, root, depth)
				second := search(t, e, root, depth)

				assert.Equal(t, fresh.Evaluation, first.Evaluation, "seed %d depth %d keying %v", seed, depth, keying)
				assert.Equal(t, fresh.Evaluation, second.Evaluation, "seed %d depth %d keying %v", seed, depth, keying)
				assert.Equal(t, fresh.NextMove().Key(), second.NextMove().Key(), "seed %d depth %d keying %v", seed, depth, keying)
			}
		}
	}
}

func TestCacheReuseAcrossCalls(t *testing.T) {
	e := newEngine(t, func(o *engine.Options) {
		o.CacheMode = engine.CacheReuse
		o.MaxScore = 1
		o.MinScore = -1
	})

	first := search(t, e, tictactoe.New(), 10)
	require.Positive(t, e.CacheStats().Entries)
	second := search(t, e, tictactoe.New(), 10)

	assert.Equal(t, first.Evaluation, second.Evaluation)
	assert.Equal(t, first.NextMove().Key(), second.NextMove().Key())
	assert.Less(t, second.Leaves, first.Leaves, "second call is answered from the cache")
	assert.Positive(t, e.CacheStats().Hits)

	e.ClearCache()
	assert.Zero(t, e.CacheStats().Entries)
}

func TestCacheNewPerSearch(t *testing.T) {
	e := newEngine(t, func(o *engine.Options) { o.CacheMode = engine.CacheNewPerSearch })
	root := tree.Random(3, 4, 3)

	first := search(t, e, root, 4)
	second := search(t, e, root, 4)
	assert.Equal(t, first.Leaves, second.Leaves, "nothing survives between calls")
	assert.Zero(t, e.CacheStats().Entries)
}

func TestClearCacheIf(t *testing.T) {
	e := newEngine(t, func(o *engine.Options) {
		o.CacheMode = engine.CacheReuse
		o.CacheKeying = engine.KeyStateDepth
	})
	search(t, e, tree.Random(5, 3, 3), 3)

	before := e.CacheStats().Entries
	require.Positive(t, before)
	removed := e.ClearCacheIf(func(s engine.State) bool { return len(s.Key()) > 3 })
	assert.Positive(t, removed)
	assert.Equal(t, before-removed, e.CacheStats().Entries)
}

func TestFillCache(t *testing.T) {
	root := tree.Random(9, 4, 3)

	e := newEngine(t, nil)
	err := e.FillCache(context.Background(), root, 3)
	assert.ErrorIs(t, err, engine.ErrFillCacheMode)
	_, err = e.FillCacheInBackground(context.Background(), 3, root)
	assert.ErrorIs(t, err, engine.ErrFillCacheMode)

	e = newEngine(t, func(o *engine.Options) {
		o.CacheMode = engine.CacheReuse
		o.CacheKeying = engine.KeyStateDepth
		o.MaxDegreeOfParallelism = 2
	})
	done, err := e.FillCacheInBackground(context.Background(), 4, root, root.Children[0])
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Positive(t, e.CacheStats().Entries)

	fresh := search(t, newEngine(t, nil), root, 4)
	cached := search(t, e, root, 4)
	assert.Equal(t, fresh.Evaluation, cached.Evaluation)
	assert.Less(t, cached.Leaves, fresh.Leaves)
}

func TestFavorShortPaths(t *testing.T) {
	// long reaches the same terminal value as short, three plies later
	build := func(owner engine.Player, v float64, shortFirst bool) (*tree.Node, *tree.Node) {
		next := owner.Opponent()
		short := tree.Leaf("short", next, v)
		long := &tree.Node{Name: "long", Player: next, Children: []*tree.Node{
			{Name: "long.1", Player: owner, Children: []*tree.Node{
				tree.Leaf("long.2", next, v),
			}},
		}}
		root := &tree.Node{Name: "root", Player: owner}
		if shortFirst {
			root.Children = []*tree.Node{short, long}
		} else {
			root.Children = []*tree.Node{long, short}
		}
		return root, short
	}

	favor := func(o *engine.Options) { o.FavorShortPaths = true }

	t.Run("max wins sooner", func(t *testing.T) {
		root, short := build(engine.Max, 1, false)
		r := search(t, newEngine(t, favor), root, 5)
		assert.Equal(t, 1.0, r.Evaluation)
		assert.Same(t, short, r.NextMove())
		assert.Len(t, r.StateSequence, 1)
	})

	t.Run("min loses later", func(t *testing.T) {
		root, _ := build(engine.Min, 1, true)
		r := search(t, newEngine(t, favor), root, 5)
		assert.Equal(t, 1.0, r.Evaluation)
		assert.Equal(t, "long", r.NextMove().Key())
		assert.Len(t, r.StateSequence, 3)
	})

	t.Run("first child kept without tie-break", func(t *testing.T) {
		root, _ := build(engine.Max, 1, false)
		r := search(t, newEngine(t, nil), root, 5)
		assert.Equal(t, "long", r.NextMove().Key())
	})
}

func TestCancelledSearchStillReturnsResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := tree.Random(1, 4, 3)
	r, err := newEngine(t, nil).Search(ctx, root, 4)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.False(t, r.Completed)
	assert.False(t, r.FullTreeSearchedOrPruned)
	assert.Equal(t, root.Value, r.Evaluation)
}

func TestChanceExpectation(t *testing.T) {
	root := tree.ChanceNode("roll", engine.Max,
		tree.Branch{Probability: 0.5, Outcomes: []*tree.Node{tree.Leaf("up", engine.Min, 2)}},
		tree.Branch{Probability: 0.5, Outcomes: []*tree.Node{tree.Leaf("down", engine.Min, -2)}},
	)

	r := search(t, newEngine(t, nil), root, 2)
	assert.Equal(t, 0.0, r.Evaluation)
	assert.Empty(t, r.StateSequence)
	assert.Equal(t, int64(2), r.Leaves)
	assert.True(t, r.AllChildrenAreDeadEnds)
}

func TestChanceOwnerChoosesOutcome(t *testing.T) {
	branch := func(p float64, a, b float64) tree.Branch {
		return tree.Branch{Probability: p, Outcomes: []*tree.Node{
			tree.Leaf("x", engine.Min, a), tree.Leaf("y", engine.Min, b),
		}}
	}
	maxRoll := tree.ChanceNode("max", engine.Max, branch(0.25, 4, 8), branch(0.75, -4, 0))
	minRoll := tree.ChanceNode("min", engine.Min, branch(0.25, 4, 8), branch(0.75, -4, 0))

	assert.Equal(t, 0.25*8+0.75*0, search(t, newEngine(t, nil), maxRoll, 2).Evaluation)
	assert.Equal(t, 0.25*4+0.75*-4, search(t, newEngine(t, nil), minRoll, 2).Evaluation)
}

func TestChanceDeadEnds(t *testing.T) {
	open := tree.MinNode("open", tree.Leaf("deep", engine.Max, 0))
	root := tree.ChanceNode("roll", engine.Max,
		tree.Branch{Probability: 0.5, Outcomes: []*tree.Node{tree.Leaf("done", engine.Min, 1)}},
		tree.Branch{Probability: 0.5, Outcomes: []*tree.Node{open}},
	)

	r := search(t, newEngine(t, nil), root, 1)
	assert.False(t, r.AllChildrenAreDeadEnds, "one branch was cut by the horizon")
	assert.False(t, r.FullTreeSearchedOrPruned)

	r = search(t, newEngine(t, nil), root, 3)
	assert.True(t, r.AllChildrenAreDeadEnds)
}

func TestChanceBadProbability(t *testing.T) {
	root := tree.ChanceNode("roll", engine.Max,
		tree.Branch{Probability: 0, Outcomes: []*tree.Node{tree.Leaf("a", engine.Min, 1)}},
	)
	_, err := newEngine(t, nil).Search(context.Background(), root, 2)
	assert.ErrorIs(t, err, engine.ErrBadProbability)
}

func TestContractViolations(t *testing.T) {
	e := newEngine(t, nil)

	noTurn := tree.MaxNode("root", tree.MinNode("a", tree.Leaf("b", engine.NoPlayer, 0)))
	_, err := e.Search(context.Background(), noTurn, 3)
	assert.ErrorIs(t, err, engine.ErrEmptyPlayer)

	boom := errors.New("boom")
	failing := tree.MaxNode("root", tree.Leaf("a", engine.Min, 0), &tree.Node{Name: "b", Player: engine.Min, EvalErr: boom})
	_, err = e.Search(context.Background(), failing, 2)
	assert.ErrorIs(t, err, boom)

	badChildren := tree.MaxNode("root", &tree.Node{Name: "a", Player: engine.Min, SuccessorErr: boom})
	_, err = e.Search(context.Background(), badChildren, 3)
	assert.ErrorIs(t, err, boom)
}

func TestPrunersSkipRoot(t *testing.T) {
	calls := 0
	always := engine.PrunerFunc(func(engine.State, int, []engine.State) (bool, error) {
		calls++
		return true, nil
	})
	e := newEngine(t, func(o *engine.Options) { o.Pruners = []engine.Pruner{always} })

	root := tree.Random(2, 3, 3)
	r := search(t, e, root, 3)
	assert.Equal(t, int64(1), r.InternalNodes, "children are pruned, the root is not")
	assert.Equal(t, int64(3), r.Leaves)
	assert.Equal(t, 3, calls)
	assert.True(t, r.FullTreeSearchedOrPruned)
	assert.False(t, r.AllChildrenAreDeadEnds)
}

func TestPrunerErrorPropagates(t *testing.T) {
	boom := errors.New("pruner failed")
	e := newEngine(t, func(o *engine.Options) {
		o.Pruners = []engine.Pruner{engine.PrunerFunc(func(engine.State, int, []engine.State) (bool, error) {
			return false, boom
		})}
	})
	_, err := e.Search(context.Background(), tree.Random(2, 2, 2), 2)
	assert.ErrorIs(t, err, boom)
}

func TestDepthAndScorePruners(t *testing.T) {
	root := tree.Random(4, 5, 3)

	capped := search(t, newEngine(t, func(o *engine.Options) {
		o.Pruners = []engine.Pruner{engine.DepthPruner{MaxDepth: 2}}
	}), root, 5)
	horizon := search(t, newEngine(t, nil), root, 2)
	assert.Equal(t, horizon.Evaluation, capped.Evaluation)
	assert.True(t, capped.FullTreeSearchedOrPruned)
	assert.False(t, horizon.FullTreeSearchedOrPruned)

	decisive := tree.MaxNode("root",
		tree.MinNode("won", tree.Leaf("x", engine.Max, -1)).WithValue(100),
		tree.MinNode("open", tree.Leaf("y", engine.Max, 3)).WithValue(0),
	)
	r := search(t, newEngine(t, func(o *engine.Options) {
		o.Pruners = []engine.Pruner{engine.ScorePruner{MaxScore: 100, MinScore: -100}}
	}), decisive, 3)
	assert.Equal(t, 100.0, r.Evaluation)
	assert.Equal(t, "won", r.NextMove().Key())
}

func TestPreventLoops(t *testing.T) {
	a := &tree.Node{Name: "a", Player: engine.Max, Value: 1}
	b := &tree.Node{Name: "b", Player: engine.Min, Value: 2}
	a.Children = []*tree.Node{b}
	b.Children = []*tree.Node{a}

	r := search(t, newEngine(t, nil), a, 10)
	assert.False(t, r.FullTreeSearchedOrPruned, "the cycle runs into the horizon")

	r = search(t, newEngine(t, func(o *engine.Options) { o.PreventLoops = true }), a, 10)
	assert.True(t, r.FullTreeSearchedOrPruned, "the revisit is pruned")
	assert.Equal(t, 1.0, r.Evaluation)
	assert.Equal(t, int64(1), r.Leaves)
}

func TestQuiescence(t *testing.T) {
	root := tree.Random(11, 6, 3)
	always := func(engine.State, int, []engine.State) bool { return true }

	extended := search(t, newEngine(t, func(o *engine.Options) {
		o.IsUnstable = always
		o.QuiescenceLimit = 2
	}), root, 2)
	deeper := search(t, newEngine(t, nil), root, 4)
	assert.Equal(t, deeper.Evaluation, extended.Evaluation)
}

func TestEvaluateHook(t *testing.T) {
	e := newEngine(t, func(o *engine.Options) {
		o.Evaluate = func(s engine.State, depth int, path []engine.State) (float64, error) {
			return float64(depth*10 + len(path)), nil
		}
	})
	r := search(t, e, tree.Random(1, 3, 2), 2)
	assert.Equal(t, 22.0, r.Evaluation)
}

func TestParallelismMatchesSequential(t *testing.T) {
	modes := []struct {
		name      string
		configure func(*engine.Options)
	}{
		{"first level", func(o *engine.Options) { o.Parallelism = engine.ParallelismFirstLevel }},
		{"level 2", func(o *engine.Options) {
			o.Parallelism = engine.ParallelismLevel
			o.ParallelismLevel = 2
		}},
		{"total", func(o *engine.Options) {
			o.Parallelism = engine.ParallelismTotal
			o.MaxDegreeOfParallelism = 4
		}},
		{"total with cache", func(o *engine.Options) {
			o.Parallelism = engine.ParallelismTotal
			o.MaxDegreeOfParallelism = 8
			o.CacheMode = engine.CacheNewPerSearch
			o.CacheKeying = engine.KeyStateDepth
		}},
	}

	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			for seed := uint64(1); seed <= 8; seed++ {
				root := tree.Random(seed, 5, 4)
				want := search(t, newEngine(t, nil), root, 5)
				got := search(t, newEngine(t, m.configure), root, 5)
				assert.Equal(t, want.Evaluation, got.Evaluation, "seed %d", seed)
				assert.Equal(t, want.NextMove().Key(), got.NextMove().Key(), "seed %d", seed)
				assert.Positive(t, got.Forks)
			}
		})
	}
}

func TestFirstLevelForksRootChildren(t *testing.T) {
	e := newEngine(t, func(o *engine.Options) { o.Parallelism = engine.ParallelismFirstLevel })
	r := search(t, e, tree.Random(6, 3, 4), 3)
	assert.Equal(t, int64(4), r.Forks)
}

func TestTicTacToeIsADraw(t *testing.T) {
	configs := map[string]func(*engine.Options){
		"sequential": func(o *engine.Options) {},
		"parallel": func(o *engine.Options) {
			o.Parallelism = engine.ParallelismTotal
			o.MaxDegreeOfParallelism = 4
		},
		"cached": func(o *engine.Options) {
			o.CacheMode = engine.CacheNewPerSearch
		},
	}

	for name, configure := range configs {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t, func(o *engine.Options) {
				o.MaxScore = 1
				o.MinScore = -1
				o.DieEarly = true
				configure(o)
			})
			r := search(t, e, tictactoe.New(), 10)
			assert.Equal(t, 0.0, r.Evaluation)
			assert.True(t, r.Completed)
			assert.NotNil(t, r.NextMove())
		})
	}
}

func TestTicTacToeFindsWin(t *testing.T) {
	s, err := tictactoe.FromDiagram("XX./OO./...")
	require.NoError(t, err)
	require.Equal(t, engine.Max, s.Turn())

	e := newEngine(t, func(o *engine.Options) {
		o.MaxScore = 1
		o.MinScore = -1
		o.DieEarly = true
		o.FavorShortPaths = true
	})
	r := search(t, e, s, 6)
	assert.Equal(t, 1.0, r.Evaluation)
	next := r.NextMove().(*tictactoe.State)
	assert.Equal(t, "XXX/OO./...", next.String())
	assert.Len(t, r.StateSequence, 1)
}

func TestConnect4CompletesColumn(t *testing.T) {
	s, err := connect4.FromDiagram("....../....../....../X...../X...O./X..OO.")
	require.NoError(t, err)
	require.Equal(t, engine.Max, s.Turn())

	for _, depth := range []int{2, 3, 4} {
		e := newEngine(t, func(o *engine.Options) {
			o.MaxScore = 1
			o.MinScore = -1
			o.DieEarly = true
		})
		r := search(t, e, s, depth)
		assert.Equal(t, 1.0, r.Evaluation, "depth %d", depth)
		next := r.NextMove().(*connect4.State)
		assert.Equal(t, 0, s.LastMove(next), "depth %d", depth)
		assert.Equal(t, engine.Max, next.Winner())
	}
}

func TestDiceRace(t *testing.T) {
	rules := dice.Rules{Target: 6, Sides: 3}
	s, err := dice.New(rules)
	require.NoError(t, err)

	seq := search(t, newEngine(t, nil), s, 4)
	par := search(t, newEngine(t, func(o *engine.Options) {
		o.Parallelism = engine.ParallelismTotal
		o.MaxDegreeOfParallelism = 4
	}), s, 4)
	assert.InDelta(t, seq.Evaluation, par.Evaluation, 1e-12)
	assert.Greater(t, seq.Evaluation, -1.0)
	assert.Less(t, seq.Evaluation, 1.0)
	assert.Empty(t, seq.StateSequence)

	// One step from the line with any roll: Max always wins
	near, err := dice.At(rules, 5, 0, engine.Max)
	require.NoError(t, err)
	assert.Equal(t, 1.0, search(t, newEngine(t, nil), near, 2).Evaluation)
}
