package infra

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksApplied   atomic.Uint64 // price ticks written to the shared store
	ticksDropped   atomic.Uint64 // unknown symbol / invalid value / bad frame
	ordersAccepted atomic.Uint64
	ordersRejected atomic.Uint64
	ackTimeouts    atomic.Uint64
	framesSent     atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTickApplied counts a price tick applied to the shared store.
func (m *Metrics) RecordTickApplied() { m.ticksApplied.Add(1) }

// RecordTickDropped counts a discarded tick or frame.
func (m *Metrics) RecordTickDropped() { m.ticksDropped.Add(1) }

// RecordOrderAccepted counts an accepted order.
func (m *Metrics) RecordOrderAccepted() { m.ordersAccepted.Add(1) }

// RecordOrderRejected counts a rejected order.
func (m *Metrics) RecordOrderRejected() { m.ordersRejected.Add(1) }

// RecordAckTimeout counts an order whose ack never arrived in time.
func (m *Metrics) RecordAckTimeout() { m.ackTimeouts.Add(1) }

// RecordFrameSent counts an outbound frame.
func (m *Metrics) RecordFrameSent() { m.framesSent.Add(1) }

// ConnOpened / ConnClosed track the active connection gauge.
func (m *Metrics) ConnOpened() { m.activeConnections.Add(1) }
func (m *Metrics) ConnClosed() { m.activeConnections.Add(-1) }

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	TicksApplied      uint64
	TicksDropped      uint64
	OrdersAccepted    uint64
	OrdersRejected    uint64
	AckTimeouts       uint64
	FramesSent        uint64
	ActiveConnections int32
}

// Snapshot reads all counters atomically (individually, not as a group).
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TicksApplied:      m.ticksApplied.Load(),
		TicksDropped:      m.ticksDropped.Load(),
		OrdersAccepted:    m.ordersAccepted.Load(),
		OrdersRejected:    m.ordersRejected.Load(),
		AckTimeouts:       m.ackTimeouts.Load(),
		FramesSent:        m.framesSent.Load(),
		ActiveConnections: m.activeConnections.Load(),
	}
}

// LogLoop periodically logs a snapshot until ctx is done. Run it in its own
// goroutine from each process main.
func (m *Metrics) LogLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Snapshot()
			slog.Info("metrics",
				slog.Uint64("ticks_applied", s.TicksApplied),
				slog.Uint64("ticks_dropped", s.TicksDropped),
				slog.Uint64("orders_accepted", s.OrdersAccepted),
				slog.Uint64("orders_rejected", s.OrdersRejected),
				slog.Uint64("ack_timeouts", s.AckTimeouts),
				slog.Uint64("frames_sent", s.FramesSent),
				slog.Int("active_connections", int(s.ActiveConnections)))
		}
	}
}
