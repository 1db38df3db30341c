package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"manualgen/internal/app"
	"manualgen/internal/config"
	"manualgen/internal/logger"
)

func main() {
	// Initialize structured logger
	slog.SetDefault(logger.New("info", "json", os.Stdout))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	application, err := app.New(cfg, deps, log)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}
