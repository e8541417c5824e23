package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading_go/internal/app"
	"trading_go/internal/infra"
	"trading_go/internal/ordermanager"
)

func main() {
	bootstrap := app.NewBootstrap("ordermanager")
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal, err := ordermanager.NewJournal(cfg.OrderManager.JournalPath)
	if err != nil {
		slog.Error("❌ Journal unavailable", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("✅ Journal ready", slog.String("path", cfg.OrderManager.JournalPath))

	srv := ordermanager.NewServer(cfg.OrderAddr(), cfg.Gateway.Symbols, journal)
	if err := srv.Start(ctx); err != nil {
		slog.Error("❌ Order manager startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer srv.Stop()

	go infra.GlobalMetrics.LogLoop(ctx, 30*time.Second)

	slog.InfoContext(ctx, "✅ Order manager operational. Press Ctrl+C to exit.")
	<-ctx.Done()
	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}
