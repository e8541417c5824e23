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
	"trading_go/internal/strategy"
)

func main() {
	bootstrap := app.NewBootstrap("strategy")
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strat, err := strategy.NewStrategy(cfg)
	if err != nil {
		slog.Error("❌ Strategy selection failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Strategy selected", slog.String("name", cfg.Strategy.Name))

	go infra.GlobalMetrics.LogLoop(ctx, 30*time.Second)

	trader := strategy.NewTrader(cfg, strat)
	slog.InfoContext(ctx, "✅ Strategy operational. Press Ctrl+C to exit.")
	if err := trader.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("❌ Trader stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}
