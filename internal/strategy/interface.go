package strategy

import (
	"fmt"

	"trading_go/internal/domain"
	"trading_go/internal/infra"
)

// Strategy turns one price refresh for a symbol into a trading signal.
// Implementations are stateful per symbol and are called from a single
// goroutine (the trader's evaluation loop).
type Strategy interface {
	// Evaluate consumes the freshest price and sentiment score for symbol
	// and returns BUY, SELL or HOLD. HOLD never produces an order.
	Evaluate(symbol string, price float64, sentiment int) domain.Signal
}

// NewStrategy selects the configured implementation. Selection happens once
// at startup; there is no runtime type switching.
func NewStrategy(cfg *infra.Config) (Strategy, error) {
	switch cfg.Strategy.Name {
	case "ma_cross":
		return NewMACross(cfg.Strategy.ShortWindow, cfg.Strategy.LongWindow,
			cfg.Strategy.SentimentThreshold), nil
	case "sentiment":
		return NewSentimentOnly(cfg.Strategy.SentimentThreshold), nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", cfg.Strategy.Name)
	}
}
