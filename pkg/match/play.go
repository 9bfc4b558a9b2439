package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/abengine/pkg/engine"
)

// ErrNoMove is returned when a search finds no move from a position that
// still has successors
var ErrNoMove = errors.New("search returned no move")

// Contestant is an engine with its per-decision search budget
type Contestant struct {
	Name    string
	Engine  *engine.Engine
	Depth   int           // Search depth per decision
	Timeout time.Duration // When set, deepen iteratively up to Depth within Timeout
}

// Players assigns contestants to the two sides
type Players struct {
	Max Contestant
	Min Contestant
}

func (p Players) side(player engine.Player) Contestant {
	if player == engine.Min {
		return p.Min
	}
	return p.Max
}

func (p Players) swapped() Players {
	return Players{Max: p.Min, Min: p.Max}
}

// PlayOptions controls a single game
type PlayOptions struct {
	MaxPlies int    // Stop after this many decisions (0 = unlimited)
	Seed     uint64 // Chance seed (0 = random)

	// Winner reports the winner of a terminal state. Defaults to the sign
	// of its static evaluation.
	Winner func(engine.State) engine.Player

	Logger *slog.Logger
}

// rolled is the decision left to the owner of a chance state once an
// outcome group has been drawn
type rolled struct {
	parent   engine.State
	roll     int
	outcomes []engine.State
}

func (r *rolled) Key() string            { return fmt.Sprintf("%s#%d", r.parent.Key(), r.roll) }
func (r *rolled) Turn() engine.Player    { return r.parent.Turn() }
func (r *rolled) Kind() engine.StateKind { return engine.KindDeterministic }

func (r *rolled) Evaluate(depth int, path []engine.State) (float64, error) {
	return r.parent.Evaluate(depth, path)
}

func (r *rolled) Successors() ([]engine.State, error) { return r.outcomes, nil }

// Play alternates the contestants from initial until a terminal state.
// Chance states are resolved by drawing an outcome group with
// engine.SampleBranch; the owner then picks among its outcomes. On error the
// partial game is returned with the error.
func Play(ctx context.Context, players Players, initial engine.State, opts PlayOptions) (*Game, error) {
	if initial == nil {
		return nil, engine.ErrNilState
	}
	for _, c := range []Contestant{players.Max, players.Min} {
		if c.Engine == nil || c.Depth < 1 {
			return nil, fmt.Errorf("contestant %q needs an engine and a positive depth", c.Name)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	src := rand.NewPCG(seed, seed^0x5851f42d4c957f2d)

	start := time.Now()
	g := NewGame(1, orDefault(players.Max.Name, "max"), orDefault(players.Min.Name, "min"), initial.Key())
	defer func() { g.Elapsed = time.Since(start) }()

	state := initial
	for {
		if err := ctx.Err(); err != nil {
			return g, err
		}
		if opts.MaxPlies > 0 && g.Plies() >= opts.MaxPlies {
			g.Result = ResultPlyLimit
			g.Final = state
			return g, nil
		}

		var choices engine.State = state
		var successors []engine.State
		switch state.Kind() {
		case engine.KindChance:
			cs, ok := state.(engine.ChanceState)
			if !ok {
				return g, fmt.Errorf("%w: %s", engine.ErrBadStateKind, state.Key())
			}
			branches, err := cs.Branches()
			if err != nil {
				return g, fmt.Errorf("branches of %s: %w", state.Key(), err)
			}
			if len(branches) == 0 {
				return finish(g, state, opts)
			}
			idx, err := engine.SampleBranchIndex(branches, src)
			if err != nil {
				return g, err
			}
			b := branches[idx]
			owner := state.Turn()
			g.AddRoll(owner, idx, state.Key())
			switch len(b.Outcomes) {
			case 0:
				// An empty group is a leaf to the search as well
				return finish(g, state, opts)
			case 1:
				state = b.Outcomes[0]
				g.AddMove(owner, state.Key(), 0, 0)
				continue
			}
			choices = &rolled{parent: state, roll: idx, outcomes: b.Outcomes}

		case engine.KindDeterministic:
			ds, ok := state.(engine.DeterministicState)
			if !ok {
				return g, fmt.Errorf("%w: %s", engine.ErrBadStateKind, state.Key())
			}
			var err error
			if successors, err = ds.Successors(); err != nil {
				return g, fmt.Errorf("successors of %s: %w", state.Key(), err)
			}
			if len(successors) == 0 {
				return finish(g, state, opts)
			}

		default:
			return g, fmt.Errorf("%w: %s", engine.ErrBadStateKind, state.Key())
		}

		c := players.side(state.Turn())
		r, err := decide(ctx, c, choices)
		if err != nil {
			return g, fmt.Errorf("%s deciding at %s: %w", c.Name, state.Key(), err)
		}
		next := r.NextMove()
		if next == nil {
			if ctx.Err() != nil {
				return g, ctx.Err()
			}
			return g, fmt.Errorf("%w: %s at %s", ErrNoMove, c.Name, state.Key())
		}
		depth := r.DepthReached
		if depth == 0 {
			depth = r.MaxDepth
		}
		g.AddMove(state.Turn(), next.Key(), r.Evaluation, depth)
		logger.Debug("move played",
			slog.String("game", g.ID.String()),
			slog.String("player", c.Name),
			slog.String("state", next.Key()),
			slog.Float64("evaluation", r.Evaluation),
			slog.Int("depth", depth),
		)
		state = next
	}
}

func decide(ctx context.Context, c Contestant, state engine.State) (*engine.SearchResult, error) {
	if c.Timeout > 0 && c.Depth > 1 {
		return c.Engine.IterativeSearchTimeout(ctx, state, 1, c.Depth, c.Timeout)
	}
	return c.Engine.Search(ctx, state, c.Depth)
}

func finish(g *Game, state engine.State, opts PlayOptions) (*Game, error) {
	g.Final = state
	winner, err := winnerOf(state, opts)
	if err != nil {
		return g, err
	}
	g.Winner = winner
	if winner == engine.NoPlayer {
		g.Result = ResultDraw
	} else {
		g.Result = ResultWin
	}
	return g, nil
}

func winnerOf(state engine.State, opts PlayOptions) (engine.Player, error) {
	if opts.Winner != nil {
		return opts.Winner(state), nil
	}
	v, err := state.Evaluate(0, nil)
	if err != nil {
		return engine.NoPlayer, fmt.Errorf("evaluating final state %s: %w", state.Key(), err)
	}
	switch {
	case v > 0:
		return engine.Max, nil
	case v < 0:
		return engine.Min, nil
	}
	return engine.NoPlayer, nil
}

// MatchOptions controls RunMatch
type MatchOptions struct {
	PlayOptions
	Games     int    // Number of games (default 1)
	Workers   int    // Games played concurrently (0 = GOMAXPROCS)
	SwapSides bool   // Contestants change sides in even-numbered games
	GameName  string // Recorded in the match header

	Progress func(MatchProgress) // Called after every finished game
}

// MatchProgress is reported after each game
type MatchProgress struct {
	Completed int
	Total     int
	Summary   Summary
}

// RunMatch plays opts.Games games from initial, opts.Workers at a time.
// Game i uses seed Seed+i*1000000 so a seeded match is reproducible. The
// first error cancels the remaining games.
func RunMatch(ctx context.Context, players Players, initial engine.State, opts MatchOptions) (*Match, error) {
	if opts.Games <= 0 {
		opts.Games = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}

	m := NewMatch(opts.GameName, orDefault(players.Max.Name, "max"), orDefault(players.Min.Name, "min"))
	games := make([]*Game, opts.Games)

	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < opts.Games; i++ {
		g.Go(func() error {
			p := players
			if opts.SwapSides && i%2 == 1 {
				p = players.swapped()
			}
			popts := opts.PlayOptions
			popts.Seed = opts.Seed + uint64(i)*1000000

			game, err := Play(gctx, p, initial, popts)
			if err != nil {
				return fmt.Errorf("game %d: %w", i+1, err)
			}
			game.Number = i + 1

			mu.Lock()
			defer mu.Unlock()
			games[i] = game
			completed++
			if opts.Progress != nil {
				opts.Progress(MatchProgress{
					Completed: completed,
					Total:     opts.Games,
					Summary:   Summarize(finished(games)),
				})
			}
			return nil
		})
	}
	err := g.Wait()
	m.Games = finished(games)
	return m, err
}

func finished(games []*Game) []*Game {
	out := make([]*Game, 0, len(games))
	for _, g := range games {
		if g != nil {
			out = append(out, g)
		}
	}
	return out
}
