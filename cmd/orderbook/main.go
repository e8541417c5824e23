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
	"trading_go/internal/orderbook"
)

func main() {
	bootstrap := app.NewBootstrap("orderbook")
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := orderbook.NewConsumer(cfg.PriceAddr(), cfg.Store.Name)
	consumer.Connect(ctx)

	go infra.GlobalMetrics.LogLoop(ctx, 30*time.Second)

	slog.InfoContext(ctx, "✅ OrderBook operational. Press Ctrl+C to exit.")
	<-ctx.Done()
	slog.InfoContext(ctx, "👋 Shutting down gracefully...")

	consumer.Disconnect()
	// Explicit teardown: the region does not outlive a clean shutdown.
	consumer.Teardown()
}
