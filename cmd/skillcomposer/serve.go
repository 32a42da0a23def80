package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/jingkaihe/skillcomposer/pkg/api"
	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/metrics"
	"github.com/jingkaihe/skillcomposer/pkg/presenter"
	"github.com/jingkaihe/skillcomposer/pkg/skills"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	Host    string
	Port    int
	Watch   bool
	History bool
	Metrics bool
}

// NewServeConfig creates a new ServeConfig with default values
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host:    "localhost",
		Port:    8080,
		Watch:   true,
		History: false,
		Metrics: true,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API serving discovery, composition, catalog and history
endpoints. The configured catalog is watched and reloaded when it changes.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getServeConfigFromFlags(cmd)
		runServeCommand(ctx, config)
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the server to")
	serveCmd.Flags().Bool("watch", defaults.Watch, "Reload the catalog when its file or directory changes")
	serveCmd.Flags().Bool("history", defaults.History, "Record compositions and serve the history endpoints")
	serveCmd.Flags().Bool("metrics", defaults.Metrics, "Serve Prometheus metrics at /metrics")
}

// getServeConfigFromFlags extracts serve configuration from command flags.
// catalog.watch and history.enabled apply when the flags are not set.
func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()
	config.Watch = viper.GetBool("catalog.watch")
	config.History = viper.GetBool("history.enabled")

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}
	if cmd.Flags().Changed("watch") {
		if watch, err := cmd.Flags().GetBool("watch"); err == nil {
			config.Watch = watch
		}
	}
	if cmd.Flags().Changed("history") {
		if enabled, err := cmd.Flags().GetBool("history"); err == nil {
			config.History = enabled
		}
	}
	if m, err := cmd.Flags().GetBool("metrics"); err == nil {
		config.Metrics = m
	}

	return config
}

// validateServeConfig validates the serve configuration
func validateServeConfig(config *ServeConfig) error {
	if config.Host == "" {
		return errors.New("host cannot be empty")
	}

	if config.Host != "localhost" && config.Host != "0.0.0.0" {
		if ip := net.ParseIP(config.Host); ip == nil {
			if strings.Contains(config.Host, " ") || strings.Contains(config.Host, ":") {
				return errors.Errorf("invalid host: %s", config.Host)
			}
		}
	}

	if config.Port < 1 || config.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}

	if config.Port < 1024 {
		logger.G(context.Background()).WithField("port", config.Port).Warn("using privileged port (< 1024) may require elevated permissions")
	}

	return nil
}

// watchPath returns the filesystem path behind a catalog source, if any
func watchPath(source catalog.Source) (string, bool) {
	switch s := source.(type) {
	case catalog.FileSource:
		return s.Path, true
	case catalog.DirSource:
		return s.Dir, true
	default:
		return "", false
	}
}

// runServeCommand starts the HTTP API and the catalog watcher
func runServeCommand(ctx context.Context, config *ServeConfig) {
	if err := validateServeConfig(config); err != nil {
		presenter.Error(err, "invalid server configuration")
		os.Exit(1)
	}

	logger.G(ctx).WithField("host", config.Host).
		WithField("port", config.Port).
		Info("starting skill composer API")

	var m *metrics.Metrics
	var opts []api.Option
	if config.Metrics {
		m = metrics.New()
		opts = append(opts, api.WithMetrics(m))
	}

	registry := skills.Initialize(ctx, m)

	if config.History {
		store, err := openHistoryStore(ctx)
		if err != nil {
			presenter.Error(err, "failed to open composition history")
			os.Exit(1)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.G(ctx).WithError(closeErr).Error("failed to close history store")
			}
		}()
		opts = append(opts, api.WithHistory(store))
	}

	serverConfig := &api.ServerConfig{Host: config.Host, Port: config.Port}
	server, err := api.NewServer(serverConfig, registry, opts...)
	if err != nil {
		presenter.Error(err, "failed to create API server")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})

	if path, ok := watchPath(registry.Store().Source()); ok && config.Watch {
		g.Go(func() error {
			if err := catalog.Watch(gctx, registry.Store(), path, catalog.NewWatchConfig()); err != nil {
				// The API keeps serving the installed snapshot
				logger.G(gctx).WithError(err).Warn("catalog watcher stopped")
			}
			return nil
		})
	}

	presenter.Success(fmt.Sprintf("Skill composer API listening on http://%s", serverConfig.Address()))
	presenter.Info("Press Ctrl+C to stop the server")

	if err := g.Wait(); err != nil {
		logger.G(ctx).WithError(err).Error("API server error")
		presenter.Error(err, "API server failed")
		os.Exit(1)
	}

	presenter.Info("API server stopped")
}
