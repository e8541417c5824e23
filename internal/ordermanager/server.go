package ordermanager

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"trading_go/internal/domain"
	"trading_go/internal/infra"
	"trading_go/internal/wire"
)

const ackWriteTimeout = 2 * time.Second

// Server accepts any number of strategy connections and serves each from its
// own goroutine, so one slow client cannot stall the others.
type Server struct {
	addr    string
	symbols map[string]struct{}
	journal *Journal

	ln     net.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server validating against the given tracked symbols.
func NewServer(addr string, symbols []string, journal *Journal) *Server {
	known := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		known[sym] = struct{}{}
	}
	return &Server{addr: addr, symbols: known, journal: journal}
}

// Start binds the port and begins accepting. Bind failure is fatal.
func (s *Server) Start(ctx context.Context) error {
	var err error
	s.ln, err = net.Listen("tcp", s.addr)
	if err != nil {
		return domain.NewFatalNetworkError("order manager: bind "+s.addr, err)
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	slog.Info("Order manager listening", slog.String("addr", s.ln.Addr().String()))
	return nil
}

// Stop closes the listener and waits for every connection handler.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.ln != nil {
		s.ln.Close()
	}
	s.wg.Wait()
}

// Addr returns the bound listener address (useful with port 0).
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			slog.Warn("Accept failed", slog.Any("error", err))
			continue
		}
		s.wg.Add(1)
		go s.handleClient(ctx, conn)
	}
}

// handleClient serves one connection until it closes. Malformed frames are
// rejected with an ack; they never terminate the connection.
func (s *Server) handleClient(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	infra.GlobalMetrics.ConnOpened()
	defer infra.GlobalMetrics.ConnClosed()
	slog.Info("Client connected", slog.String("remote", remote))

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	sc := wire.NewScanner(conn)
	for sc.Scan() {
		frame := sc.Bytes()
		if len(frame) == 0 {
			continue
		}
		s.processFrame(frame, conn)
	}
	if err := sc.Err(); err != nil {
		slog.Warn("Client read failed", slog.String("remote", remote), slog.Any("error", err))
	}
	slog.Info("Client disconnected", slog.String("remote", remote))
}

func (s *Server) processFrame(frame []byte, conn net.Conn) {
	order, err := wire.ParseOrder(frame)
	if err != nil {
		slog.Warn("Unparsable order payload", slog.Any("error", err))
		s.sendAck(conn, domain.OrderAck{
			Status: domain.AckRejected,
			Reason: domain.ReasonBadPayload,
			Ts:     time.Now().UnixMilli(),
		})
		infra.GlobalMetrics.RecordOrderRejected()
		return
	}

	if reason := s.validate(order); reason != "" {
		slog.Warn("Order rejected",
			slog.String("order_id", order.ID),
			slog.String("reason", reason))
		s.sendAck(conn, domain.OrderAck{
			OrderID: order.ID,
			Status:  domain.AckRejected,
			Reason:  reason,
			Ts:      time.Now().UnixMilli(),
		})
		infra.GlobalMetrics.RecordOrderRejected()
		return
	}

	seq, err := s.journal.Append(order)
	if err != nil {
		// The order did not reach the journal; the client must not believe
		// it was accepted.
		slog.Error("Journal append failed", slog.Any("error", err))
		s.sendAck(conn, domain.OrderAck{
			OrderID: order.ID,
			Status:  domain.AckRejected,
			Reason:  "journal_unavailable",
			Ts:      time.Now().UnixMilli(),
		})
		infra.GlobalMetrics.RecordOrderRejected()
		return
	}

	slog.Info("Order accepted",
		slog.Uint64("seq", uint64(seq)),
		slog.String("order_id", order.ID),
		slog.String("side", order.Side),
		slog.String("symbol", order.Symbol),
		slog.Int64("qty", order.Qty),
		slog.String("price", order.Price.String()))
	s.sendAck(conn, domain.OrderAck{
		OrderID: order.ID,
		Status:  domain.AckAccepted,
		Ts:      time.Now().UnixMilli(),
	})
	infra.GlobalMetrics.RecordOrderAccepted()
}

// validate applies the rules in order; the first failure wins.
func (s *Server) validate(o domain.Order) string {
	if o.Side != domain.SideBuy && o.Side != domain.SideSell {
		return domain.ReasonBadSide
	}
	if o.Symbol == "" {
		return domain.ReasonUnknownSymbol
	}
	if _, known := s.symbols[o.Symbol]; !known {
		return domain.ReasonUnknownSymbol
	}
	if o.Qty <= 0 {
		return domain.ReasonBadQty
	}
	if !o.Price.IsPositive() {
		return domain.ReasonBadPrice
	}
	return ""
}

func (s *Server) sendAck(conn net.Conn, ack domain.OrderAck) {
	payload, err := wire.EncodeAck(ack)
	if err != nil {
		slog.Error("Encode ack failed", slog.Any("error", err))
		return
	}
	conn.SetWriteDeadline(time.Now().Add(ackWriteTimeout))
	if err := wire.WriteFrame(conn, payload); err != nil {
		slog.Warn("Ack write failed", slog.Any("error", err))
	}
}
