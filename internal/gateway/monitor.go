package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trading_go/internal/domain"
)

// Monitor is a read-only websocket fanout of the live price stream for
// operator dashboards. It rides alongside the framed TCP streams and has no
// subscribers on the trading path.
type Monitor struct {
	addr     string
	upgrader websocket.Upgrader
	srv      *http.Server

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewMonitor creates a monitor bound to addr when started.
func NewMonitor(addr string) *Monitor {
	return &Monitor{
		addr: addr,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// Local operator tooling only; the port binds to the gateway host.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Start serves the /ws endpoint until ctx is done. Monitor failures are
// logged, never fatal: the trading streams do not depend on it.
func (m *Monitor) Start(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", m.handleWS)
	m.srv = &http.Server{Addr: m.addr, Handler: mux}

	go func() {
		slog.Info("Gateway monitor listening", slog.String("addr", m.addr))
		if err := m.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("Gateway monitor stopped", slog.Any("error", err))
		}
	}()
	go func() {
		<-ctx.Done()
		m.srv.Close()
		m.mu.Lock()
		for conn := range m.conns {
			conn.Close()
		}
		m.mu.Unlock()
	}()
}

func (m *Monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Monitor upgrade failed", slog.Any("error", err))
		return
	}
	m.mu.Lock()
	m.conns[conn] = struct{}{}
	m.mu.Unlock()

	// Drain (and ignore) client messages to notice a closed peer.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				m.drop(conn)
				return
			}
		}
	}()
}

// Broadcast pushes one tick to every dashboard; failed peers are dropped.
func (m *Monitor) Broadcast(tick domain.PriceTick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(tick); err != nil {
			conn.Close()
			delete(m.conns, conn)
		}
	}
}

func (m *Monitor) drop(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn.Close()
	delete(m.conns, conn)
}
