package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/abengine/internal/config"
	"github.com/yourusername/abengine/pkg/engine"
)

// benchRow is the timing of one parallelism mode
type benchRow struct {
	mode       engine.ParallelismMode
	evaluation float64
	leaves     int64
	forks      int64
	mean       float64 // Milliseconds
	stddev     float64
}

func newBenchCmd(c *cli) *cobra.Command {
	var (
		depth  int
		runs   int
		modes  string
		degree int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time a search under each parallelism mode",
		Long: `Runs the same search several times per parallelism mode and reports
the mean and standard deviation of the wall-clock time. Every mode must
agree on the evaluation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, state, err := c.start()
			if err != nil {
				return err
			}
			if depth == 0 {
				depth = c.cfg.Search.Depth
			}
			if runs < 1 {
				return fmt.Errorf("runs must be >= 1, got %d", runs)
			}

			var rows []benchRow
			for _, name := range strings.Split(modes, ",") {
				mode, err := config.ParseParallelism(strings.TrimSpace(name))
				if err != nil {
					return err
				}
				e, err := c.newEngine(func(o *engine.Options) {
					o.Parallelism = mode
					if degree > 0 {
						o.MaxDegreeOfParallelism = degree
					}
					// Every run must search the full tree
					if o.CacheMode == engine.CacheReuse {
						o.CacheMode = engine.CacheNewPerSearch
					}
				})
				if err != nil {
					return err
				}

				row := benchRow{mode: mode}
				times := make([]float64, 0, runs)
				for i := 0; i < runs; i++ {
					r, err := e.Search(cmd.Context(), state, depth)
					if err != nil {
						return err
					}
					times = append(times, float64(r.SearchTime)/float64(time.Millisecond))
					row.evaluation, row.leaves, row.forks = r.Evaluation, r.Leaves, r.Forks
				}
				row.mean, row.stddev = stat.MeanStdDev(times, nil)
				if runs == 1 {
					row.stddev = 0
				}
				rows = append(rows, row)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODE\tEVAL\tLEAVES\tFORKS\tMEAN (ms)\tSTDDEV (ms)")
			for _, row := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f\t%.2f\n",
					row.mode, formatEval(row.evaluation), row.leaves, row.forks, row.mean, row.stddev)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			for _, row := range rows[1:] {
				if row.evaluation != rows[0].evaluation {
					return fmt.Errorf("%s evaluated %v, %s evaluated %v",
						row.mode, row.evaluation, rows[0].mode, rows[0].evaluation)
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&depth, "depth", "d", 0, "Plies to search (default: configured depth)")
	flags.IntVarP(&runs, "runs", "r", 5, "Searches per mode")
	flags.StringVar(&modes, "modes", "none,first-level,level,total", "Comma-separated parallelism modes")
	flags.IntVar(&degree, "degree", 0, "Override max degree of parallelism")
	return cmd
}
