package strategy

import (
	"testing"

	"trading_go/internal/domain"
	"trading_go/internal/infra"
)

func TestSentimentOnlySignals(t *testing.T) {
	s := NewSentimentOnly(50)

	cases := []struct {
		sentiment int
		want      domain.Signal
	}{
		{80, domain.SignalBuy},
		{51, domain.SignalBuy},
		{50, domain.SignalHold},
		{49, domain.SignalSell},
		{0, domain.SignalSell},
	}
	for _, tc := range cases {
		if got := s.Evaluate("AAPL", 100, tc.sentiment); got != tc.want {
			t.Errorf("sentiment=%d: expected %v, got %v", tc.sentiment, tc.want, got)
		}
	}
}

func TestNewStrategyFactory(t *testing.T) {
	cfg := &infra.Config{}
	cfg.Strategy.Name = "ma_cross"
	cfg.Strategy.ShortWindow = 5
	cfg.Strategy.LongWindow = 20
	cfg.Strategy.SentimentThreshold = 50

	s, err := NewStrategy(cfg)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}
	if _, ok := s.(*MACross); !ok {
		t.Errorf("expected *MACross, got %T", s)
	}

	cfg.Strategy.Name = "sentiment"
	s, err = NewStrategy(cfg)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}
	if _, ok := s.(*SentimentOnly); !ok {
		t.Errorf("expected *SentimentOnly, got %T", s)
	}

	cfg.Strategy.Name = "martingale"
	if _, err := NewStrategy(cfg); err == nil {
		t.Error("expected error for unknown strategy name")
	}
}
