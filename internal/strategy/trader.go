package strategy

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trading_go/internal/domain"
	"trading_go/internal/infra"
	"trading_go/internal/shm"
	"trading_go/internal/wire"
)

const (
	dialTimeout = 5 * time.Second

	// neutralSentiment stands in until the first score for a symbol arrives.
	neutralSentiment = 50
)

// Trader is the strategy process core: it attaches to the shared price
// store, tracks the latest sentiment per symbol, evaluates the configured
// strategy on every refresh cycle, and submits resulting orders to the
// order manager.
type Trader struct {
	cfg   *infra.Config
	strat Strategy

	store *shm.Store

	sentMu     sync.RWMutex
	sentiments map[string]int

	connMu    sync.Mutex
	omConn    net.Conn
	omScanner *bufio.Scanner // persists across submits so buffered acks survive

	breaker *infra.CircuitBreaker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTrader wires a strategy implementation into the pipeline.
func NewTrader(cfg *infra.Config, strat Strategy) *Trader {
	return &Trader{
		cfg:        cfg,
		strat:      strat,
		sentiments: make(map[string]int),
		breaker:    infra.NewCircuitBreaker("order-manager", 5, 2, 30*time.Second),
	}
}

// Run blocks until ctx is done. It first waits (with backoff) for the order
// book to publish the shared store, then runs the sentiment subscriber and
// the evaluation loop.
func (t *Trader) Run(ctx context.Context) error {
	ctx, t.cancel = context.WithCancel(ctx)

	store, err := t.attachStore(ctx)
	if err != nil {
		return err
	}
	t.store = store
	slog.Info("Attached to shared price store",
		slog.String("name", t.cfg.Store.Name),
		slog.Int("symbols", len(store.Symbols())))

	t.wg.Add(1)
	go t.sentimentLoop(ctx)

	t.evalLoop(ctx)

	t.wg.Wait()
	t.closeOrderConn()
	t.store.Close()
	return nil
}

// Stop cancels Run.
func (t *Trader) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

// attachStore retries until the order book has created the region. The
// strategy process may legitimately start first.
func (t *Trader) attachStore(ctx context.Context) (*shm.Store, error) {
	retryCount := 0
	for {
		store, err := shm.Attach(t.cfg.Store.Name)
		if err == nil {
			return store, nil
		}
		slog.Warn("Shared store not ready",
			slog.Any("error", err), slog.Int("retry", retryCount))
		delay := infra.BackoffWithJitter(retryCount)
		retryCount++
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// sentimentLoop keeps the latest score per symbol, reconnecting with backoff
// when the gateway goes away.
func (t *Trader) sentimentLoop(ctx context.Context) {
	defer t.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		dialer := net.Dialer{Timeout: dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", t.cfg.SentimentAddr())
		if err != nil {
			err = domain.NewNetworkError("dial "+t.cfg.SentimentAddr(), err)
			if !domain.IsRetriable(err) {
				slog.Error("Sentiment stream failed permanently", slog.Any("error", err))
				return
			}
			slog.Warn("Sentiment stream unavailable",
				slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.BackoffWithJitter(retryCount)
			retryCount++
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}
		retryCount = 0
		slog.Info("Connected to gateway sentiment stream")

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		sc := wire.NewScanner(conn)
		for sc.Scan() {
			tick, err := wire.ParseSentimentTick(sc.Bytes())
			if err != nil || !tick.Valid() {
				infra.GlobalMetrics.RecordTickDropped()
				continue
			}
			t.sentMu.Lock()
			t.sentiments[tick.Symbol] = tick.Score
			t.sentMu.Unlock()
		}
		conn.Close()
		if err := sc.Err(); err != nil {
			slog.Warn("Sentiment stream read failed", slog.Any("error", err))
		}
	}
}

func (t *Trader) latestSentiment(symbol string) int {
	t.sentMu.RLock()
	defer t.sentMu.RUnlock()
	if score, ok := t.sentiments[symbol]; ok {
		return score
	}
	return neutralSentiment
}

// refreshStore re-attaches when the order book has recreated the region (a
// changed symbol set bumps the generation counter); reading on would silently
// serve prices from the unlinked stale mapping.
func (t *Trader) refreshStore(ctx context.Context) error {
	if !t.store.Stale() {
		return nil
	}
	slog.Warn("Shared store recreated, re-attaching",
		slog.Uint64("generation", t.store.Generation()))
	t.store.Close()
	store, err := t.attachStore(ctx)
	if err != nil {
		return err
	}
	t.store = store
	return nil
}

// evalLoop reads a consistent price snapshot once per cycle (one lock hold)
// and evaluates every symbol against it.
func (t *Trader) evalLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(t.cfg.Strategy.EvalIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.refreshStore(ctx); err != nil {
				return
			}
			snapshot, err := t.store.ReadAll()
			if err != nil {
				slog.Error("Store read failed", slog.Any("error", err))
				continue
			}
			for _, sym := range t.store.Symbols() {
				price := snapshot[sym]
				if price <= 0 {
					continue // symbol has not ticked yet
				}
				sentiment := t.latestSentiment(sym)
				signal := t.strat.Evaluate(sym, price, sentiment)
				if signal == domain.SignalHold {
					continue
				}
				t.submit(signal, sym, price)
			}
		}
	}
}

// submit sends one order and waits for its ack. An unacknowledged order is
// logged and never retried; retrying would risk duplicate execution.
func (t *Trader) submit(signal domain.Signal, symbol string, price float64) {
	if !t.breaker.Allow() {
		slog.Debug("Order suppressed, circuit open", slog.String("symbol", symbol))
		return
	}

	order := domain.NewOrder(signal.String(), symbol, t.cfg.Strategy.Qty,
		decimal.NewFromFloat(price))

	ack, err := t.sendAndAwait(order)
	if err != nil {
		infra.GlobalMetrics.RecordAckTimeout()
		t.breaker.RecordFailure()
		slog.Warn("Order delivery failed",
			slog.String("order_id", order.ID),
			slog.String("symbol", symbol),
			slog.Any("error", err))
		return
	}

	t.breaker.RecordSuccess()
	if ack.Accepted() {
		infra.GlobalMetrics.RecordOrderAccepted()
		slog.Info("Order accepted",
			slog.String("order_id", order.ID),
			slog.String("side", order.Side),
			slog.String("symbol", order.Symbol),
			slog.Int64("qty", order.Qty),
			slog.String("price", order.Price.String()))
	} else {
		infra.GlobalMetrics.RecordOrderRejected()
		slog.Warn("Order rejected",
			slog.String("order_id", order.ID),
			slog.String("reason", ack.Reason))
	}
}

// sendAndAwait frames the order, then scans acks until the matching
// correlation id arrives or the timeout passes.
func (t *Trader) sendAndAwait(order domain.Order) (domain.OrderAck, error) {
	conn, sc, err := t.orderConn()
	if err != nil {
		return domain.OrderAck{}, err
	}

	payload, err := wire.EncodeOrder(order)
	if err != nil {
		return domain.OrderAck{}, fmt.Errorf("encode order: %w", err)
	}

	timeout := time.Duration(t.cfg.Strategy.AckTimeoutMS) * time.Millisecond
	deadline := time.Now().Add(timeout)

	conn.SetWriteDeadline(deadline)
	if err := wire.WriteFrame(conn, payload); err != nil {
		t.closeOrderConn()
		return domain.OrderAck{}, fmt.Errorf("write order: %w", err)
	}
	infra.GlobalMetrics.RecordFrameSent()

	conn.SetReadDeadline(deadline)
	for sc.Scan() {
		ack, err := wire.ParseAck(sc.Bytes())
		if err != nil {
			continue // not an ack frame; keep scanning until the deadline
		}
		if ack.OrderID == order.ID {
			return ack, nil
		}
		// Stale ack from an earlier timed-out order; ignore it.
	}
	t.closeOrderConn()
	if err := sc.Err(); err != nil {
		return domain.OrderAck{}, fmt.Errorf("%w: %v", domain.ErrAckTimeout, err)
	}
	return domain.OrderAck{}, domain.ErrAckTimeout
}

// orderConn returns the cached order manager connection, dialing on demand.
func (t *Trader) orderConn() (net.Conn, *bufio.Scanner, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.omConn != nil {
		return t.omConn, t.omScanner, nil
	}
	conn, err := net.DialTimeout("tcp", t.cfg.OrderAddr(), dialTimeout)
	if err != nil {
		return nil, nil, domain.NewNetworkError("dial order manager "+t.cfg.OrderAddr(), err)
	}
	t.omConn = conn
	t.omScanner = wire.NewScanner(conn)
	slog.Info("Connected to order manager", slog.String("addr", t.cfg.OrderAddr()))
	return conn, t.omScanner, nil
}

func (t *Trader) closeOrderConn() {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.omConn != nil {
		t.omConn.Close()
		t.omConn = nil
		t.omScanner = nil
	}
}
