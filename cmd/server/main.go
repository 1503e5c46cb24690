package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"affiliate_shoppe/internal/app"
	"affiliate_shoppe/internal/config"
	"affiliate_shoppe/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	a, err := app.New(cfg, nil, log)
	if err != nil {
		log.Error("create app", "error", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting server",
		"addr", cfg.ListenAddr,
		"backend", a.Docs.Backend(),
		"gemini", a.Generator.Configured(),
		"publisher", a.Publisher.Configured(),
	)

	if err := a.Run(ctx); err != nil {
		log.Error("run server", "error", err)
		cancel()
		_ = a.Close()
		os.Exit(1)
	}

	log.Info("server stopped")
}
