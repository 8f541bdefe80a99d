package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/webdavd/webdavd"
	"github.com/webdavd/webdavd/internal/config"
	"github.com/webdavd/webdavd/internal/logger"
	"github.com/webdavd/webdavd/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebDAV server",
	Long: `Start the WebDAV server with the specified configuration.

Use --config to point at a custom configuration file, or place one at the
default location at $XDG_CONFIG_HOME/webdavd/config.yaml.

Examples:
  # Start with the default config location
  webdavd serve

  # Start with a custom config file
  webdavd serve --config /etc/webdavd/config.yaml

  # Override single settings through the environment
  WEBDAVD_LOGGING_LEVEL=debug webdavd serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info().Str("version", Version).Str("level", cfg.Logging.Level).Msg("webdavd starting")

	fs, err := buildFileSystem(cfg)
	if err != nil {
		return err
	}
	locks := webdavd.NewLockRegistry()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(locks.Len)
	}

	handler := &webdavd.Handler{
		FileSystem:    fs,
		Authenticator: buildAuthenticator(cfg, log),
		Locks:         locks,
	}

	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: webdavd.NewRouter(handler, log, m),
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Server.Listen).Int("shares", len(cfg.Shares)).Msg("webdav listener up")
		serverDone <- srv.ListenAndServe()
	}()

	var metricsSrv *http.Server
	if m != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			log.Info().Str("listen", cfg.Metrics.Listen).Msg("metrics listener up")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		signal.Stop(sigChan)
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info().Msg("server stopped gracefully")
		return nil

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// buildFileSystem assembles the share tree from the configuration: one
// backend per share, multiplexed by prefix. Operators are shared across
// shares that name the same kind.
func buildFileSystem(cfg *config.Config) (webdavd.FileSystem, error) {
	operators := make(map[string]webdavd.Operator)
	operatorFor := func(name string) (webdavd.Operator, error) {
		if name == "" {
			name = "none"
		}
		if op, ok := operators[name]; ok {
			return op, nil
		}
		var (
			op  webdavd.Operator
			err error
		)
		switch name {
		case "unix":
			op, err = webdavd.NewUnixOperator()
		default:
			op = webdavd.NopOperator{}
		}
		if err != nil {
			return nil, err
		}
		operators[name] = op
		return op, nil
	}

	mounts := make(map[string]webdavd.FileSystem, len(cfg.Shares))
	for _, share := range cfg.Shares {
		op, err := operatorFor(share.Operator)
		if err != nil {
			return nil, fmt.Errorf("share %s: %w", share.Prefix, err)
		}
		if share.Home {
			mounts[share.Prefix] = webdavd.NewHomeFileSystem(op)
		} else {
			mounts[share.Prefix] = webdavd.NewDirectoryFileSystem(share.Path, share.AllowedPaths, op)
		}
	}
	return webdavd.NewMultiplexFileSystem(mounts), nil
}

func buildAuthenticator(cfg *config.Config, log zerolog.Logger) webdavd.Authenticator {
	if cfg.Auth.Mode == "debug" {
		log.Warn().Msg("debug authentication enabled, never use this outside local testing")
		return webdavd.DebugAuthenticator{}
	}
	return webdavd.NewStaticAuthenticator(cfg.Auth.Users)
}
