package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/chatlens/internal/api"
	"github.com/MikeSquared-Agency/chatlens/internal/backend"
	"github.com/MikeSquared-Agency/chatlens/internal/config"
	"github.com/MikeSquared-Agency/chatlens/internal/explorer"
	"github.com/MikeSquared-Agency/chatlens/internal/hermes"
	"github.com/MikeSquared-Agency/chatlens/internal/multiwoz"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("chatlens starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Remote rows
	rows, closeRows, err := backend.Open(ctx, backend.FromConfig(cfg), slog.Default())
	if err != nil {
		slog.Error("failed to open row backend", "error", err)
		os.Exit(1)
	}
	defer closeRows()

	lens := explorer.New(
		explorer.WithRows(rows),
		explorer.WithStreaming(cfg.Streaming),
		explorer.WithDefaultSource(cfg.DefaultSource),
		explorer.WithDataDir(cfg.DataDir),
		explorer.WithLogger(slog.Default()),
	)

	// MultiWOZ (optional)
	var corpus *multiwoz.Corpus
	if info, err := os.Stat(cfg.MultiWOZDir); err == nil && info.IsDir() {
		corpus = multiwoz.New(cfg.MultiWOZDir)
		slog.Info("multiwoz corpus ready", "dir", cfg.MultiWOZDir)
	} else {
		slog.Warn("multiwoz corpus not found, routes disabled", "dir", cfg.MultiWOZDir)
	}

	// NATS/Hermes (optional)
	var events api.EventPublisher
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		events = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, lens, corpus, events, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	slog.Info("chatlens ready", "port", cfg.Port, "backend", cfg.RowBackend, "streaming", cfg.Streaming)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
	cancel()
	slog.Info("chatlens stopped")
}

func setupLogging(level string) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)})))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
