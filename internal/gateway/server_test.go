package gateway_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"trading_go/internal/gateway"
	"trading_go/internal/infra"
	"trading_go/internal/wire"
)

func testConfig() *infra.Config {
	cfg := &infra.Config{}
	cfg.Gateway.Host = "127.0.0.1"
	cfg.Gateway.TickIntervalMS = 10
	cfg.Gateway.SentimentIntervalMS = 10
	cfg.Gateway.StepPct = 0.01
	cfg.Gateway.Symbols = []string{"AAPL", "MSFT"}
	return cfg
}

func startGateway(t *testing.T) *gateway.Server {
	t.Helper()
	cfg := testConfig()
	feed := gateway.NewFeed(cfg.Gateway.Symbols, map[string]float64{"AAPL": 180, "MSFT": 410}, cfg.Gateway.StepPct, 1)
	srv := gateway.NewServer(cfg, feed)
	if err := srv.Start(context.Background(), "127.0.0.1:0", "127.0.0.1:0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func dialStream(t *testing.T, addr string) (net.Conn, *bufio.Scanner) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn, wire.NewScanner(conn)
}

func nextFrame(t *testing.T, sc *bufio.Scanner) []byte {
	t.Helper()
	if !sc.Scan() {
		t.Fatalf("stream ended: %v", sc.Err())
	}
	return sc.Bytes()
}

func TestPriceStreamSendsBootstrapFirst(t *testing.T) {
	srv := startGateway(t)
	_, sc := dialStream(t, srv.PriceAddr())

	first := nextFrame(t, sc)
	if !wire.IsBootstrap(first) {
		t.Fatalf("first frame is not bootstrap: %q", first)
	}
	symbols, err := wire.ParseBootstrap(first)
	if err != nil {
		t.Fatalf("ParseBootstrap failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
		t.Errorf("bad bootstrap symbols: %v", symbols)
	}

	// Everything after the bootstrap is well-formed positive ticks.
	for i := 0; i < 6; i++ {
		tick, err := wire.ParsePriceTick(nextFrame(t, sc))
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if !tick.Valid() {
			t.Errorf("tick %d invalid: %+v", i, tick)
		}
	}
}

func TestSentimentStreamScores(t *testing.T) {
	srv := startGateway(t)
	_, sc := dialStream(t, srv.SentimentAddr())

	// The sentiment stream has no bootstrap; ticks start immediately.
	for i := 0; i < 6; i++ {
		tick, err := wire.ParseSentimentTick(nextFrame(t, sc))
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if tick.Score < 0 || tick.Score > 100 {
			t.Errorf("tick %d: score %d out of range", i, tick.Score)
		}
	}
}

func TestDeadSubscriberDoesNotStallOthers(t *testing.T) {
	srv := startGateway(t)

	dead, deadSc := dialStream(t, srv.PriceAddr())
	nextFrame(t, deadSc) // consume bootstrap so the subscription is established
	_, liveSc := dialStream(t, srv.PriceAddr())
	nextFrame(t, liveSc)

	dead.Close()

	// The live subscriber keeps receiving while the dead one gets dropped.
	for i := 0; i < 10; i++ {
		if _, err := wire.ParsePriceTick(nextFrame(t, liveSc)); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		price, _ := srv.SubscriberCounts()
		if price == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dead subscriber never dropped, %d price subs", price)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
