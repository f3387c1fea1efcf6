// watcher polls announcement pages, listens to a push relay and buys each
// newly listed symbol once.
//
// Usage: go run ./cmd/watcher --config configs/watcher.yaml [--dry-run]
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/rickgao/listing-watch/internal/config"
	"github.com/rickgao/listing-watch/internal/orchestrator"
	"github.com/rickgao/listing-watch/internal/version"
)

func main() {
	configPath := pflag.String("config", "configs/watcher.yaml", "path to config file")
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before the config (ignored if missing)")
	logLevel := pflag.String("log-level", "info", "log level: debug, info, warn, error")
	dryRun := pflag.Bool("dry-run", false, "use the paper backend regardless of config")
	pflag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	logger.Info("starting watcher",
		"version", version.String(),
		"config", *configPath,
		"dry_run", *dryRun,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, err := orchestrator.New(ctx, cfg, orchestrator.Options{DryRun: *dryRun}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := orch.Close(); err != nil {
			logger.Warn("close", "error", err)
		}
	}()

	if err := orch.Run(ctx); err != nil {
		logger.Error("run", "error", err)
	}

	stats := orch.Dispatcher().Stats()
	logger.Info("watcher stopped",
		"executed", stats.Executed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
}
