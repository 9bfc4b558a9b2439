package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/abengine/internal/book"
	"github.com/yourusername/abengine/pkg/engine"
)

func newBookCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Build and inspect exact-value books",
	}
	cmd.AddCommand(newBookBuildCmd(c), newBookInfoCmd(c))
	return cmd
}

func newBookBuildCmd(c *cli) *cobra.Command {
	var (
		depth int
		out   string
		merge bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Search a position exhaustively and store every solved subtree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, state, err := c.start()
			if err != nil {
				return err
			}
			e, err := c.newEngine(func(o *engine.Options) {
				o.CacheMode = engine.CacheReuse
				o.CacheKeying = engine.KeyState
				o.Parallelism = engine.ParallelismNone
				o.DisableAlphaBeta = true
				o.DieEarly = false
				o.PreventLoops = false
			})
			if err != nil {
				return err
			}

			started := time.Now()
			if err := e.FillCache(cmd.Context(), state, depth); err != nil {
				return err
			}
			b := book.FromCache(g.Name, e.Cache())

			added := b.Len()
			if merge {
				prev, err := book.Load(out)
				switch {
				case errors.Is(err, fs.ErrNotExist):
				case err != nil:
					return err
				default:
					if added, err = prev.Merge(b); err != nil {
						return err
					}
					b = prev
				}
			}
			if err := b.Save(out); err != nil {
				return err
			}
			c.logger.Info("book written",
				slog.String("path", out),
				slog.Duration("elapsed", time.Since(started)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries (%d new)\n", out, b.Len(), added)
			return nil
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 9, "Search depth; only subtrees solved within it are stored")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Book file to write")
	cmd.Flags().BoolVar(&merge, "merge", false, "Add to an existing book instead of replacing it")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newBookInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Describe a book, and the --position value when given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := book.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Game:    %s\n", b.Game)
			fmt.Fprintf(out, "Entries: %d\n", b.Len())
			if c.position == "" {
				return nil
			}

			c.gameName = b.Game
			_, state, err := c.start()
			if err != nil {
				return err
			}
			if v, ok := b.Lookup(state.Key()); ok {
				fmt.Fprintf(out, "Value:   %s\n", formatEval(v))
			} else {
				fmt.Fprintln(out, "Value:   not in book")
			}
			return nil
		},
	}
}
