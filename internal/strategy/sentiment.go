package strategy

import (
	"trading_go/internal/domain"
)

// SentimentOnly ignores price history entirely and trades on the sentiment
// score alone. Mostly useful for exercising the pipeline end to end, since
// it signals on every evaluation once the score leaves the threshold.
type SentimentOnly struct {
	threshold int
}

// NewSentimentOnly creates the strategy.
func NewSentimentOnly(threshold int) *SentimentOnly {
	return &SentimentOnly{threshold: threshold}
}

// Evaluate returns BUY above the threshold, SELL below it, HOLD exactly on it.
func (s *SentimentOnly) Evaluate(_ string, _ float64, sentiment int) domain.Signal {
	switch {
	case sentiment > s.threshold:
		return domain.SignalBuy
	case sentiment < s.threshold:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
