// abengine searches game positions from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/abengine/internal/book"
	"github.com/yourusername/abengine/internal/config"
	"github.com/yourusername/abengine/internal/games"
	"github.com/yourusername/abengine/pkg/engine"
)

const version = "0.1.0"

// cli carries the flags shared by every command and the loaded configuration
type cli struct {
	configPath string
	gameName   string
	position   string
	logLevel   string
	bookPath   string

	cfg    config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "abengine",
		Short:        "Adversarial game-tree search engine",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Path to a YAML or JSON configuration file")
	flags.StringVarP(&c.gameName, "game", "g", "tictactoe", "Game to search")
	flags.StringVarP(&c.position, "position", "p", "", "Position diagram or key (default: starting position)")
	flags.StringVar(&c.logLevel, "log-level", "", "Override the configured log level")
	flags.StringVar(&c.bookPath, "book", "", "Consult this exact-value book at the leaves")

	root.AddCommand(
		newSearchCmd(c),
		newIterateCmd(c),
		newMatchCmd(c),
		newBenchCmd(c),
		newGamesCmd(c),
		newBookCmd(c),
	)
	return root
}

// load reads the configuration and builds the logger
func (c *cli) load(stderr io.Writer) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if c.bookPath != "" {
		cfg.Search.Book = c.bookPath
	}
	c.cfg = cfg
	c.logger = cfg.Log.Logger(stderr)
	return nil
}

// newEngine builds an engine from the search profile, letting mutate adjust
// the options first
func (c *cli) newEngine(mutate func(*engine.Options)) (*engine.Engine, error) {
	opts, err := c.cfg.Search.Options(c.logger)
	if err != nil {
		return nil, err
	}
	if c.cfg.Search.Book != "" {
		b, err := book.Load(c.cfg.Search.Book)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(b.Game, c.gameName) {
			return nil, fmt.Errorf("book %s holds %s positions, not %s", c.cfg.Search.Book, b.Game, c.gameName)
		}
		b.Apply(&opts)
		c.logger.Debug("book loaded", slog.String("path", c.cfg.Search.Book), slog.Int("entries", b.Len()))
	}
	if mutate != nil {
		mutate(&opts)
	}
	return engine.NewEngine(opts)
}

// start resolves the selected game and position
func (c *cli) start() (games.Game, engine.State, error) {
	g, err := games.Lookup(c.gameName)
	if err != nil {
		return games.Game{}, nil, err
	}
	s, err := g.Position(c.position)
	if err != nil {
		return games.Game{}, nil, fmt.Errorf("invalid position: %w", err)
	}
	return g, s, nil
}

func newGamesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List the available games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range games.Names() {
				g, _ := games.Lookup(name)
				fmt.Fprintf(out, "%-10s %s\n", g.Name, g.Description)
			}
			return nil
		},
	}
}
