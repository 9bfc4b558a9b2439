// Command abserver runs the search engine's HTTP and WebSocket API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/abengine/internal/book"
	"github.com/yourusername/abengine/internal/config"
	"github.com/yourusername/abengine/pkg/api"
	"github.com/yourusername/abengine/pkg/engine"
	"github.com/yourusername/abengine/pkg/external"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath   string
		host         string
		port         int
		watch        bool
		externalAddr string
	)
	cmd := &cobra.Command{
		Use:          "abserver",
		Short:        "Serve the search engine over HTTP and WebSocket",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("external") {
				cfg.Server.ExternalAddr = externalAddr
			}
			logger := cfg.Log.Logger(cmd.ErrOrStderr())
			slog.SetDefault(logger)
			return serve(cmd.Context(), cfg, configPath, watch, logger)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON configuration file")
	cmd.Flags().StringVar(&host, "host", "localhost", "Host to bind to (use 0.0.0.0 for all interfaces)")
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	cmd.Flags().StringVar(&externalAddr, "external", "", "Also serve the line protocol on this address, e.g. :1234")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload search options when the configuration file changes")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, configPath string, watch bool, logger *slog.Logger) error {
	opts, err := searchOptions(cfg, logger)
	if err != nil {
		return err
	}
	eng, err := engine.NewEngine(opts)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	server := api.NewServer(eng, serverConfig(cfg, logger), version)

	if cfg.Server.ExternalAddr != "" {
		ext := external.NewServer(eng, external.ServerOptions{
			Addr:          cfg.Server.ExternalAddr,
			Depth:         cfg.Search.Depth,
			MaxDepth:      cfg.Server.MaxDepth,
			Timeout:       cfg.Search.Timeout,
			PromptEnabled: true,
			Logger:        logger,
		})
		if err := ext.Start(); err != nil {
			return err
		}
		defer ext.Stop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if watch && configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, logger, func(next config.Config) {
				opts, err := searchOptions(next, logger)
				if err != nil {
					logger.Warn("ignoring search options", slog.Any("error", err))
					return
				}
				if err := server.Handlers().Reconfigure(opts); err != nil {
					logger.Warn("ignoring search options", slog.Any("error", err))
					return
				}
				logger.Info("search options reloaded",
					slog.String("parallelism", opts.Parallelism.String()),
					slog.String("cache_mode", opts.CacheMode.String()),
				)
			})
			if err != nil {
				logger.Error("config watcher stopped", slog.Any("error", err))
			}
		}()
	}

	return server.ListenAndServeWithGracefulShutdown(ctx)
}

// searchOptions builds the engine options, routing leaf evaluation through
// the configured book
func searchOptions(cfg config.Config, logger *slog.Logger) (engine.Options, error) {
	opts, err := cfg.Search.Options(logger)
	if err != nil || cfg.Search.Book == "" {
		return opts, err
	}
	b, err := book.Load(cfg.Search.Book)
	if err != nil {
		return opts, err
	}
	b.Apply(&opts)
	logger.Info("book loaded",
		slog.String("path", cfg.Search.Book),
		slog.String("game", b.Game),
		slog.Int("entries", b.Len()),
	)
	return opts, nil
}

// serverConfig maps the file configuration onto the API server's
func serverConfig(cfg config.Config, logger *slog.Logger) api.ServerConfig {
	sc := api.DefaultConfig()
	sc.Host = cfg.Server.Host
	sc.Port = cfg.Server.Port
	sc.ReadTimeout = cfg.Server.ReadTimeout
	sc.WriteTimeout = cfg.Server.WriteTimeout
	sc.MaxSearchWorkers = cfg.Server.MaxSearchWorkers
	sc.MaxIterateWorkers = cfg.Server.MaxIterateWorkers
	sc.RateLimit = cfg.Server.RateLimit
	sc.RateBurst = cfg.Server.RateBurst
	sc.Limits.MaxDepth = cfg.Server.MaxDepth
	sc.Limits.MaxSearchTime = cfg.Server.MaxSearchTime
	sc.Limits.MaxIterateTime = cfg.Server.MaxIterateTime
	sc.Logger = logger
	return sc
}
