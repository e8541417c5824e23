package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPriceTickValid(t *testing.T) {
	cases := []struct {
		name  string
		tick  PriceTick
		valid bool
	}{
		{"ok", PriceTick{Ts: 1, Symbol: "AAPL", Price: 181.5}, true},
		{"zero price", PriceTick{Ts: 1, Symbol: "AAPL", Price: 0}, false},
		{"negative price", PriceTick{Ts: 1, Symbol: "AAPL", Price: -1}, false},
		{"nan", PriceTick{Ts: 1, Symbol: "AAPL", Price: math.NaN()}, false},
		{"inf", PriceTick{Ts: 1, Symbol: "AAPL", Price: math.Inf(1)}, false},
		{"empty symbol", PriceTick{Ts: 1, Symbol: "", Price: 100}, false},
	}
	for _, tc := range cases {
		if got := tc.tick.Valid(); got != tc.valid {
			t.Errorf("%s: Valid() = %v, want %v", tc.name, got, tc.valid)
		}
	}
}

func TestSentimentTickValid(t *testing.T) {
	cases := []struct {
		score int
		valid bool
	}{
		{0, true}, {50, true}, {100, true}, {-1, false}, {101, false},
	}
	for _, tc := range cases {
		tick := SentimentTick{Ts: 1, Symbol: "AAPL", Score: tc.score}
		if got := tick.Valid(); got != tc.valid {
			t.Errorf("score %d: Valid() = %v, want %v", tc.score, got, tc.valid)
		}
	}
}

func TestSignalString(t *testing.T) {
	if SignalBuy.String() != "BUY" || SignalSell.String() != "SELL" || SignalHold.String() != "HOLD" {
		t.Error("signal strings wrong")
	}
	if Signal(42).String() != "UNKNOWN" {
		t.Error("unknown signal should stringify as UNKNOWN")
	}
}

func TestNewOrder(t *testing.T) {
	a := NewOrder(SideBuy, "AAPL", 10, decimal.NewFromFloat(181.5))
	b := NewOrder(SideBuy, "AAPL", 10, decimal.NewFromFloat(181.5))

	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Errorf("orders need unique correlation ids: %q vs %q", a.ID, b.ID)
	}
	if a.Ts <= 0 {
		t.Errorf("order timestamp not set: %d", a.Ts)
	}
}
