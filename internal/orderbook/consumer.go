// Package orderbook bridges the gateway's price stream into the shared price
// store. It is the store's creator and sole writer.
package orderbook

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"trading_go/internal/domain"
	"trading_go/internal/infra"
	"trading_go/internal/shm"
	"trading_go/internal/wire"
)

const dialTimeout = 5 * time.Second

// Consumer subscribes to the gateway price port and applies every valid tick
// to the shared store, in arrival order, from a single goroutine.
type Consumer struct {
	priceAddr string
	storeName string

	mu    sync.Mutex
	conn  net.Conn
	store *shm.Store

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer creates a consumer. The store is created lazily from the first
// bootstrap frame so its symbol set always matches the gateway's.
func NewConsumer(priceAddr, storeName string) *Consumer {
	return &Consumer{priceAddr: priceAddr, storeName: storeName}
}

// Connect starts the connection loop. Transient failures are retried with
// backoff forever; downstream strategies keep reading last known prices from
// the store while the gateway is away.
func (c *Consumer) Connect(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.connectionLoop(ctx)
}

func (c *Consumer) connectionLoop(ctx context.Context) {
	defer c.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.dial(ctx); err != nil {
			if !domain.IsRetriable(err) {
				slog.Error("Gateway connection failed permanently", slog.Any("error", err))
				return
			}
			slog.Warn("Gateway connection failed",
				slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.BackoffWithJitter(retryCount)
			retryCount++
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			c.readLoop(ctx)
		}
	}
}

func (c *Consumer) dial(ctx context.Context) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.priceAddr)
	if err != nil {
		return domain.NewNetworkError("dial "+c.priceAddr, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	slog.Info("Connected to gateway price stream", slog.String("addr", c.priceAddr))
	return nil
}

// readLoop consumes frames until the connection breaks. The first frame must
// be the bootstrap; everything after is ticks.
func (c *Consumer) readLoop(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	defer c.closeConnection()

	sc := wire.NewScanner(conn)

	if !sc.Scan() {
		slog.Warn("Gateway closed before bootstrap", slog.Any("error", sc.Err()))
		return
	}
	symbols, err := wire.ParseBootstrap(sc.Bytes())
	if err != nil {
		slog.Warn("Bad bootstrap frame, reconnecting", slog.Any("error", err))
		return
	}
	if err := c.ensureStore(symbols); err != nil {
		slog.Error("Shared store unavailable", slog.Any("error", err))
		return
	}

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.handleTick(sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		slog.Warn("Price stream read failed", slog.Any("error", err))
	}
}

// ensureStore creates the store on first bootstrap, reuses it when the symbol
// set is unchanged across a reconnect, and recreates it (a structural change)
// when the gateway announces a different set.
func (c *Consumer) ensureStore(symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		if equalSymbols(c.store.Symbols(), symbols) {
			return nil
		}
		// Close but do not unlink: Create recycles the old region in place,
		// bumping the generation counter so attached readers notice.
		slog.Warn("Gateway symbol set changed, recreating store",
			slog.Int("old", len(c.store.Symbols())), slog.Int("new", len(symbols)))
		c.store.Close()
		c.store = nil
	}

	store, err := shm.Create(c.storeName, symbols)
	if err != nil {
		return err
	}
	c.store = store
	slog.Info("Shared price store ready",
		slog.String("name", c.storeName), slog.Int("symbols", len(symbols)))
	return nil
}

// handleTick applies one tick. Unknown symbols and invalid values are
// dropped; the store stays untouched for them.
func (c *Consumer) handleTick(frame []byte) {
	tick, err := wire.ParsePriceTick(frame)
	if err != nil || !tick.Valid() {
		infra.GlobalMetrics.RecordTickDropped()
		return
	}

	c.mu.Lock()
	store := c.store
	c.mu.Unlock()

	if err := store.Update(tick.Symbol, tick.Price); err != nil {
		infra.GlobalMetrics.RecordTickDropped()
		slog.Debug("Tick dropped", slog.String("symbol", tick.Symbol), slog.Any("error", err))
		return
	}
	infra.GlobalMetrics.RecordTickApplied()
}

func (c *Consumer) closeConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Store exposes the current store attachment (nil before first bootstrap).
func (c *Consumer) Store() *shm.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// Disconnect stops the connection loop and waits for it to drain. The store
// is left in place; Teardown removes it.
func (c *Consumer) Disconnect() {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConnection()
	c.wg.Wait()
}

// Teardown unlinks and closes the store. Call only on a clean shutdown of
// the owning process; attached readers lose the region.
func (c *Consumer) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return
	}
	if err := c.store.Unlink(); err != nil {
		slog.Warn("Store unlink failed", slog.Any("error", err))
	}
	c.store.Close()
	c.store = nil
}

func equalSymbols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
