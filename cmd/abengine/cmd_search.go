package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/abengine/internal/config"
	"github.com/yourusername/abengine/internal/games"
	"github.com/yourusername/abengine/pkg/engine"
)

// searchFlags are the option overrides accepted by search and iterate
type searchFlags struct {
	parallelism string
	degree      int
	cacheMode   string
	asJSON      bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.parallelism, "parallelism", "", "Override parallelism (none, first-level, level, total)")
	cmd.Flags().IntVar(&f.degree, "degree", 0, "Override max degree of parallelism")
	cmd.Flags().StringVar(&f.cacheMode, "cache", "", "Override cache mode (none, new-per-search, reuse)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the result as JSON")
}

// apply layers the overrides onto opts
func (f *searchFlags) apply(opts *engine.Options) error {
	if f.parallelism != "" {
		m, err := config.ParseParallelism(f.parallelism)
		if err != nil {
			return err
		}
		opts.Parallelism = m
	}
	if f.cacheMode != "" {
		m, err := config.ParseCacheMode(f.cacheMode)
		if err != nil {
			return err
		}
		opts.CacheMode = m
	}
	if f.degree > 0 {
		opts.MaxDegreeOfParallelism = f.degree
	}
	return nil
}

func (c *cli) engineWith(f *searchFlags) (*engine.Engine, error) {
	var applyErr error
	e, err := c.newEngine(func(o *engine.Options) { applyErr = f.apply(o) })
	if applyErr != nil {
		return nil, applyErr
	}
	return e, err
}

func newSearchCmd(c *cli) *cobra.Command {
	var (
		f     searchFlags
		depth int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a position to a fixed depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, state, err := c.start()
			if err != nil {
				return err
			}
			if depth == 0 {
				depth = c.cfg.Search.Depth
			}
			e, err := c.engineWith(&f)
			if err != nil {
				return err
			}
			r, err := e.Search(cmd.Context(), state, depth)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), g, state, r, f.asJSON)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Plies to search (default: configured depth)")
	return cmd
}

func newIterateCmd(c *cli) *cobra.Command {
	var (
		f       searchFlags
		start   int
		last    int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "iterate",
		Short: "Search a position with iterative deepening",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, state, err := c.start()
			if err != nil {
				return err
			}
			if last == 0 {
				last = c.cfg.Search.Depth
			}
			if timeout == 0 {
				timeout = c.cfg.Search.Timeout
			}
			if start >= last {
				return fmt.Errorf("%w: start %d, max %d", engine.ErrBadDepthRange, start, last)
			}
			e, err := c.engineWith(&f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			depths := make([]int, 0, last-start+1)
			for d := start; d <= last; d++ {
				depths = append(depths, d)
			}
			r, err := e.Iterate(cmd.Context(), state, engine.IterativeOptions{
				Depths:  depths,
				Timeout: timeout,
				Progress: func(depth int, r *engine.SearchResult) {
					if f.asJSON {
						return
					}
					move := "-"
					if next := r.NextMove(); next != nil {
						move = next.Key()
					}
					fmt.Fprintf(out, "depth %2d  eval %s  move %s  leaves %d  %v\n",
						depth, formatEval(r.Evaluation), move, r.Leaves, r.SearchTime.Round(time.Microsecond))
				},
			})
			if err != nil {
				return err
			}
			return printResult(out, g, state, r, f.asJSON)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&start, "start", 1, "First depth")
	cmd.Flags().IntVar(&last, "max", 0, "Last depth (default: configured depth)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Time budget (default: configured timeout, 0 = none)")
	return cmd
}

// resultJSON is the machine-readable form of a search result
type resultJSON struct {
	Game          string   `json:"game"`
	Position      string   `json:"position"`
	Evaluation    float64  `json:"evaluation"`
	BestMove      string   `json:"best_move,omitempty"`
	Line          []string `json:"line,omitempty"`
	Leaves        int64    `json:"leaves"`
	InternalNodes int64    `json:"internal_nodes"`
	Forks         int64    `json:"forks"`
	MaxDepth      int      `json:"max_depth"`
	DepthReached  int      `json:"depth_reached,omitempty"`
	Completed     bool     `json:"completed"`
	Exhausted     bool     `json:"exhausted"`
	ElapsedMS     float64  `json:"elapsed_ms"`
}

func printResult(w io.Writer, g games.Game, state engine.State, r *engine.SearchResult, asJSON bool) error {
	if asJSON {
		out := resultJSON{
			Game:          g.Name,
			Position:      state.Key(),
			Evaluation:    r.Evaluation,
			Leaves:        r.Leaves,
			InternalNodes: r.InternalNodes,
			Forks:         r.Forks,
			MaxDepth:      r.MaxDepth,
			DepthReached:  r.DepthReached,
			Completed:     r.Completed,
			Exhausted:     r.AllChildrenAreDeadEnds,
			ElapsedMS:     float64(r.SearchTime) / float64(time.Millisecond),
		}
		if math.IsInf(out.Evaluation, 0) {
			out.Evaluation = math.Copysign(math.MaxFloat64, out.Evaluation)
		}
		if next := r.NextMove(); next != nil {
			out.BestMove = next.Key()
		}
		for _, s := range r.StateSequence {
			out.Line = append(out.Line, s.Key())
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "Game:       %s\n", g.Name)
	fmt.Fprintf(w, "Position:   %s\n", state.Key())
	fmt.Fprintf(w, "Evaluation: %s\n", formatEval(r.Evaluation))
	if next := r.NextMove(); next != nil {
		fmt.Fprintf(w, "Best move:  %s\n", next.Key())
		fmt.Fprintf(w, "%s\n", games.Describe(next))
	} else {
		fmt.Fprintln(w, "Best move:  none")
	}
	fmt.Fprintf(w, "Line:       %d plies\n", len(r.StateSequence))
	fmt.Fprintf(w, "Nodes:      %d leaves, %d internal, %d forks\n", r.Leaves, r.InternalNodes, r.Forks)
	if r.DepthReached > 0 {
		fmt.Fprintf(w, "Depth:      %d of %d\n", r.DepthReached, r.MaxDepth)
	} else {
		fmt.Fprintf(w, "Depth:      %d\n", r.MaxDepth)
	}
	fmt.Fprintf(w, "Completed:  %t (exhausted: %t)\n", r.Completed, r.AllChildrenAreDeadEnds)
	fmt.Fprintf(w, "Time:       %v\n", r.SearchTime.Round(time.Microsecond))
	return nil
}

func formatEval(v float64) string {
	if math.IsInf(v, 0) {
		if v > 0 {
			return "+inf"
		}
		return "-inf"
	}
	return fmt.Sprintf("%+.3f", v)
}
