package wire_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"trading_go/internal/domain"
	"trading_go/internal/wire"
)

func TestBootstrapRoundTrip(t *testing.T) {
	frame := wire.EncodeBootstrap([]string{"AAPL", "MSFT", "GOOG"})
	if string(frame) != "SYMBOLS|AAPL,MSFT,GOOG" {
		t.Fatalf("unexpected encoding: %q", frame)
	}
	if !wire.IsBootstrap(frame) {
		t.Error("IsBootstrap should recognize the frame")
	}

	symbols, err := wire.ParseBootstrap(frame)
	if err != nil {
		t.Fatalf("ParseBootstrap failed: %v", err)
	}
	if len(symbols) != 3 || symbols[0] != "AAPL" || symbols[2] != "GOOG" {
		t.Errorf("bad symbols: %v", symbols)
	}
}

func TestParseBootstrapRejectsTickFrame(t *testing.T) {
	_, err := wire.ParseBootstrap([]byte("1700000000000|AAPL|181.5"))
	if !errors.Is(err, domain.ErrBadFrame) {
		t.Errorf("expected ErrBadFrame, got %v", err)
	}
}

func TestPriceTickRoundTrip(t *testing.T) {
	in := domain.PriceTick{Ts: 1700000000000, Symbol: "AAPL", Price: 181.5}
	out, err := wire.ParsePriceTick(wire.EncodePriceTick(in))
	if err != nil {
		t.Fatalf("ParsePriceTick failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestParsePriceTickMalformed(t *testing.T) {
	cases := []string{
		"",
		"no-separators",
		"170|AAPL",               // missing field
		"x|AAPL|181.5",           // bad timestamp
		"1700000000000|AAPL|abc", // bad price
		"1|2|3|4",                // too many fields
	}
	for _, c := range cases {
		if _, err := wire.ParsePriceTick([]byte(c)); !errors.Is(err, domain.ErrBadFrame) {
			t.Errorf("%q: expected ErrBadFrame, got %v", c, err)
		}
	}
}

func TestSentimentTickRoundTrip(t *testing.T) {
	in := domain.SentimentTick{Ts: 1700000000000, Symbol: "TSLA", Score: 73}
	out, err := wire.ParseSentimentTick(wire.EncodeSentimentTick(in))
	if err != nil {
		t.Fatalf("ParseSentimentTick failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestOrderAndAckRoundTrip(t *testing.T) {
	order := domain.Order{
		ID:     "11111111-2222-3333-4444-555555555555",
		Side:   domain.SideBuy,
		Symbol: "AAPL",
		Qty:    10,
		Price:  decimal.NewFromFloat(100.0),
		Ts:     1700000000000,
	}
	payload, err := wire.EncodeOrder(order)
	if err != nil {
		t.Fatalf("EncodeOrder failed: %v", err)
	}
	parsed, err := wire.ParseOrder(payload)
	if err != nil {
		t.Fatalf("ParseOrder failed: %v", err)
	}
	if parsed.ID != order.ID || parsed.Side != order.Side || parsed.Qty != 10 {
		t.Errorf("order mismatch: %+v", parsed)
	}
	if !parsed.Price.Equal(order.Price) {
		t.Errorf("price mismatch: %s != %s", parsed.Price, order.Price)
	}

	ack := domain.OrderAck{OrderID: order.ID, Status: domain.AckRejected, Reason: domain.ReasonBadQty, Ts: 1}
	ackPayload, err := wire.EncodeAck(ack)
	if err != nil {
		t.Fatalf("EncodeAck failed: %v", err)
	}
	parsedAck, err := wire.ParseAck(ackPayload)
	if err != nil {
		t.Fatalf("ParseAck failed: %v", err)
	}
	if parsedAck != ack {
		t.Errorf("ack mismatch: %+v != %+v", parsedAck, ack)
	}
}

func TestParseOrderRejectsBadJSON(t *testing.T) {
	if _, err := wire.ParseOrder([]byte("{not json")); !errors.Is(err, domain.ErrBadFrame) {
		t.Errorf("expected ErrBadFrame, got %v", err)
	}
}
