package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/abengine/pkg/match"
)

func newMatchCmd(c *cli) *cobra.Command {
	var (
		count     int
		workers   int
		maxDepth  int
		minDepth  int
		timeout   time.Duration
		seed      uint64
		maxPlies  int
		swap      bool
		outPath   string
		maxName   string
		minName   string
		showMoves bool
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Play engine-versus-engine games and summarize the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, state, err := c.start()
			if err != nil {
				return err
			}
			if maxDepth == 0 {
				maxDepth = c.cfg.Search.Depth
			}
			if minDepth == 0 {
				minDepth = maxDepth
			}
			if timeout == 0 {
				timeout = c.cfg.Search.Timeout
			}

			// Each side gets its own engine so a reused cache never leaks
			// one contestant's analysis to the other.
			maxEngine, err := c.newEngine(nil)
			if err != nil {
				return err
			}
			minEngine, err := c.newEngine(nil)
			if err != nil {
				return err
			}
			players := match.Players{
				Max: match.Contestant{Name: maxName, Engine: maxEngine, Depth: maxDepth, Timeout: timeout},
				Min: match.Contestant{Name: minName, Engine: minEngine, Depth: minDepth, Timeout: timeout},
			}

			out := cmd.OutOrStdout()
			m, err := match.RunMatch(cmd.Context(), players, state, match.MatchOptions{
				PlayOptions: match.PlayOptions{
					MaxPlies: maxPlies,
					Seed:     seed,
					Winner:   g.Winner,
					Logger:   c.logger,
				},
				Games:     count,
				Workers:   workers,
				SwapSides: swap,
				GameName:  g.Name,
				Progress: func(p match.MatchProgress) {
					fmt.Fprintf(out, "game %d/%d  %s %d  %s %d  draws %d\n",
						p.Completed, p.Total,
						maxName, p.Summary.Wins[maxName],
						minName, p.Summary.Wins[minName],
						p.Summary.Draws)
				},
			})
			if err != nil {
				return err
			}

			if showMoves {
				for _, game := range m.Games {
					fmt.Fprintf(out, "game %d: %v\n", game.Number, game.Moves())
				}
			}
			printSummary(cmd, m)

			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create match record: %w", err)
				}
				defer f.Close()
				if err := match.ExportText(f, m); err != nil {
					return fmt.Errorf("write match record: %w", err)
				}
				fmt.Fprintf(out, "match record written to %s\n", outPath)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&count, "games", "n", 10, "Number of games")
	flags.IntVarP(&workers, "workers", "w", 0, "Games played concurrently (default: GOMAXPROCS)")
	flags.IntVar(&maxDepth, "max-depth", 0, "Search depth of the max player (default: configured depth)")
	flags.IntVar(&minDepth, "min-depth", 0, "Search depth of the min player (default: max-depth)")
	flags.DurationVar(&timeout, "timeout", 0, "Per-decision time budget (default: configured timeout)")
	flags.Uint64Var(&seed, "seed", 0, "Chance seed (0 = random)")
	flags.IntVar(&maxPlies, "max-plies", 500, "Abandon a game after this many decisions")
	flags.BoolVar(&swap, "swap", true, "Swap sides every other game")
	flags.StringVarP(&outPath, "out", "o", "", "Write the match record to this file")
	flags.StringVar(&maxName, "max-name", "alpha", "Name of the first contestant")
	flags.StringVar(&minName, "min-name", "beta", "Name of the second contestant")
	flags.BoolVar(&showMoves, "moves", false, "Print every game's moves")
	return cmd
}

func printSummary(cmd *cobra.Command, m *match.Match) {
	s := m.Summary()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s: %d games\n", m.Game, s.Games)
	fmt.Fprintf(out, "  max wins %d, min wins %d, draws %d, unfinished %d\n",
		s.MaxWins, s.MinWins, s.Draws, s.Unfinished)

	names := make([]string, 0, len(s.Wins))
	for name := range s.Wins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s %d wins\n", name, s.Wins[name])
	}
	fmt.Fprintf(out, "  plies %.1f ± %.1f, %v per game\n",
		s.MeanPlies, s.StdDevPlies, s.MeanElapsed.Round(time.Millisecond))
}
