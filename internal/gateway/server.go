package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"trading_go/internal/domain"
	"trading_go/internal/infra"
	"trading_go/internal/wire"
)

// writeTimeout bounds every broadcast write. A subscriber that cannot drain a
// frame within it is dropped rather than stalling the generation loop.
const writeTimeout = 1 * time.Second

// Server runs the two stream listeners and the generation loops.
type Server struct {
	feed *Feed

	tickInterval      time.Duration
	sentimentInterval time.Duration

	priceLn     net.Listener
	sentimentLn net.Listener
	monitor     *Monitor

	mu            sync.Mutex
	priceSubs     map[net.Conn]struct{}
	sentimentSubs map[net.Conn]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer wires a feed to the configured listeners. Listeners are not
// bound until Start.
func NewServer(cfg *infra.Config, feed *Feed) *Server {
	s := &Server{
		feed:              feed,
		tickInterval:      time.Duration(cfg.Gateway.TickIntervalMS) * time.Millisecond,
		sentimentInterval: time.Duration(cfg.Gateway.SentimentIntervalMS) * time.Millisecond,
		priceSubs:         make(map[net.Conn]struct{}),
		sentimentSubs:     make(map[net.Conn]struct{}),
	}
	if cfg.Gateway.MonitorPort > 0 {
		s.monitor = NewMonitor(fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.MonitorPort))
	}
	return s
}

// Start binds both listeners and launches the accept and generation loops.
// A bind failure is fatal: without the ports there is no gateway.
func (s *Server) Start(ctx context.Context, priceAddr, sentimentAddr string) error {
	var err error
	s.priceLn, err = net.Listen("tcp", priceAddr)
	if err != nil {
		return domain.NewFatalNetworkError("gateway: bind price "+priceAddr, err)
	}
	s.sentimentLn, err = net.Listen("tcp", sentimentAddr)
	if err != nil {
		s.priceLn.Close()
		return domain.NewFatalNetworkError("gateway: bind sentiment "+sentimentAddr, err)
	}

	ctx, s.cancel = context.WithCancel(ctx)

	if s.monitor != nil {
		s.monitor.Start(ctx)
	}

	s.wg.Add(4)
	go s.acceptLoop(ctx, s.priceLn, s.addPriceSub)
	go s.acceptLoop(ctx, s.sentimentLn, s.addSentimentSub)
	go s.priceLoop(ctx)
	go s.sentimentLoop(ctx)

	slog.Info("Gateway listening",
		slog.String("price", s.priceLn.Addr().String()),
		slog.String("sentiment", s.sentimentLn.Addr().String()))
	return nil
}

// Stop closes the listeners and waits for all loops to finish.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.priceLn != nil {
		s.priceLn.Close()
	}
	if s.sentimentLn != nil {
		s.sentimentLn.Close()
	}
	s.mu.Lock()
	for conn := range s.priceSubs {
		conn.Close()
	}
	for conn := range s.sentimentSubs {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// PriceAddr returns the bound price listener address (useful with port 0).
func (s *Server) PriceAddr() string {
	return s.priceLn.Addr().String()
}

// SentimentAddr returns the bound sentiment listener address.
func (s *Server) SentimentAddr() string {
	return s.sentimentLn.Addr().String()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, add func(net.Conn)) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			slog.Warn("Gateway accept failed", slog.Any("error", err))
			continue
		}
		add(conn)
	}
}

// addPriceSub sends the bootstrap frame before the subscriber sees any tick,
// so it can size its state ahead of live data.
func (s *Server) addPriceSub(conn net.Conn) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := wire.WriteFrame(conn, wire.EncodeBootstrap(s.feed.Symbols())); err != nil {
		slog.Warn("Price subscriber rejected bootstrap", slog.Any("error", err))
		conn.Close()
		return
	}
	s.mu.Lock()
	s.priceSubs[conn] = struct{}{}
	s.mu.Unlock()
	infra.GlobalMetrics.ConnOpened()
	slog.Info("Price subscriber connected", slog.String("remote", conn.RemoteAddr().String()))
}

func (s *Server) addSentimentSub(conn net.Conn) {
	s.mu.Lock()
	s.sentimentSubs[conn] = struct{}{}
	s.mu.Unlock()
	infra.GlobalMetrics.ConnOpened()
	slog.Info("Sentiment subscriber connected", slog.String("remote", conn.RemoteAddr().String()))
}

func (s *Server) priceLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sym := range s.feed.Symbols() {
				tick := s.feed.NextPrice(sym)
				s.broadcast(s.priceSubs, wire.EncodePriceTick(tick))
				if s.monitor != nil {
					s.monitor.Broadcast(tick)
				}
			}
		}
	}
}

func (s *Server) sentimentLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sentimentInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sym := range s.feed.Symbols() {
				tick := s.feed.NextSentiment(sym)
				if !tick.Valid() {
					continue // never propagate an out-of-range score
				}
				s.broadcast(s.sentimentSubs, wire.EncodeSentimentTick(tick))
			}
		}
	}
}

// broadcast writes one frame to every subscriber. A failed or slow subscriber
// is dropped without affecting the others or the generation loop.
func (s *Server) broadcast(subs map[net.Conn]struct{}, frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range subs {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := wire.WriteFrame(conn, frame); err != nil {
			slog.Warn("Dropping subscriber",
				slog.String("remote", conn.RemoteAddr().String()),
				slog.Any("error", err))
			conn.Close()
			delete(subs, conn)
			infra.GlobalMetrics.ConnClosed()
			continue
		}
		infra.GlobalMetrics.RecordFrameSent()
	}
}

// SubscriberCounts reports current price/sentiment subscriber counts.
func (s *Server) SubscriberCounts() (price, sentiment int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.priceSubs), len(s.sentimentSubs)
}
