package strategy

import (
	"trading_go/internal/domain"
)

// windowState holds the per-symbol sliding window. One fixed ring buffer of
// the long window length carries both averages; running sums make every
// update O(1) regardless of how many ticks came before.
type windowState struct {
	prices []float64
	head   int // next write position
	count  int // elements filled

	shortSum float64
	longSum  float64
}

func newWindowState(longWindow int) *windowState {
	return &windowState{prices: make([]float64, longWindow)}
}

// push appends a price, evicting from both running sums as the windows slide.
func (w *windowState) push(price float64, shortWindow int) {
	size := len(w.prices)

	// Oldest element leaves the long window once it is full.
	if w.count == size {
		w.longSum -= w.prices[w.head]
	}
	// The element shortWindow pushes ago leaves the short window.
	if w.count >= shortWindow {
		w.shortSum -= w.prices[(w.head-shortWindow+size)%size]
	}

	w.prices[w.head] = price
	w.head = (w.head + 1) % size
	if w.count < size {
		w.count++
	}

	w.shortSum += price
	w.longSum += price
}

// warm reports whether both windows are full.
func (w *windowState) warm() bool {
	return w.count == len(w.prices)
}

// MACross combines a dual moving-average comparison with a sentiment
// threshold. The two inputs must agree or the evaluation holds.
type MACross struct {
	shortWindow int
	longWindow  int
	threshold   int

	state map[string]*windowState
}

// NewMACross creates the strategy. shortWindow must be less than longWindow.
func NewMACross(shortWindow, longWindow, threshold int) *MACross {
	if shortWindow <= 0 || shortWindow >= longWindow {
		panic("MACross: need 0 < shortWindow < longWindow")
	}
	return &MACross{
		shortWindow: shortWindow,
		longWindow:  longWindow,
		threshold:   threshold,
		state:       make(map[string]*windowState),
	}
}

// Evaluate updates the symbol's windows with the fresh price and applies the
// signal table: BUY iff short avg > long avg and sentiment >= threshold,
// SELL iff short avg < long avg and sentiment < threshold, otherwise HOLD.
func (s *MACross) Evaluate(symbol string, price float64, sentiment int) domain.Signal {
	w, ok := s.state[symbol]
	if !ok {
		w = newWindowState(s.longWindow)
		s.state[symbol] = w
	}

	w.push(price, s.shortWindow)
	if !w.warm() {
		return domain.SignalHold
	}

	shortAvg := w.shortSum / float64(s.shortWindow)
	longAvg := w.longSum / float64(s.longWindow)

	switch {
	case shortAvg > longAvg && sentiment >= s.threshold:
		return domain.SignalBuy
	case shortAvg < longAvg && sentiment < s.threshold:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
