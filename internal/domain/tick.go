package domain

import "math"

// PriceTick is a single market data point emitted by the gateway.
// Immutable once emitted; never persisted.
type PriceTick struct {
	Ts     int64   `json:"ts"` // Unix milliseconds
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Valid reports whether the tick may be propagated downstream.
// Non-finite or non-positive prices are discarded at the point of receipt.
func (t PriceTick) Valid() bool {
	return t.Symbol != "" && t.Price > 0 && !math.IsInf(t.Price, 0) && !math.IsNaN(t.Price)
}

// SentimentTick is a per-symbol news sentiment score in [0, 100].
type SentimentTick struct {
	Ts     int64  `json:"ts"`
	Symbol string `json:"symbol"`
	Score  int    `json:"score"`
}

// Valid reports whether the score is within the declared range.
func (t SentimentTick) Valid() bool {
	return t.Symbol != "" && t.Score >= 0 && t.Score <= 100
}

// Signal is the outcome of one strategy evaluation for one symbol.
type Signal int

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

// String returns the string representation of Signal
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	case SignalHold:
		return "HOLD"
	default:
		return "UNKNOWN"
	}
}
