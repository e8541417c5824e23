package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading_go/internal/app"
	"trading_go/internal/gateway"
	"trading_go/internal/infra"
)

func main() {
	bootstrap := app.NewBootstrap("gateway")
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := gateway.NewFeed(cfg.Gateway.Symbols, cfg.Gateway.BasePrices,
		cfg.Gateway.StepPct, time.Now().UnixNano())
	if cfg.Gateway.HistoryCSV != "" {
		if err := feed.SeedFromCSV(cfg.Gateway.HistoryCSV); err != nil {
			slog.Warn("Historical seed unavailable, using base prices", slog.Any("error", err))
		}
	}

	srv := gateway.NewServer(cfg, feed)
	if err := srv.Start(ctx, cfg.PriceAddr(), cfg.SentimentAddr()); err != nil {
		slog.Error("❌ Gateway startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer srv.Stop()

	go infra.GlobalMetrics.LogLoop(ctx, 30*time.Second)

	slog.InfoContext(ctx, "✅ Gateway operational. Press Ctrl+C to exit.")
	<-ctx.Done()
	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}
