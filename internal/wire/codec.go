package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"trading_go/internal/domain"
)

// BootstrapPrefix marks the frame enumerating tracked symbols, sent once to
// every new price subscriber before any tick.
const BootstrapPrefix = "SYMBOLS"

// EncodeBootstrap renders `SYMBOLS|sym1,sym2,...`.
func EncodeBootstrap(symbols []string) []byte {
	return []byte(BootstrapPrefix + string(Sep) + strings.Join(symbols, ","))
}

// IsBootstrap reports whether the frame is a bootstrap frame.
func IsBootstrap(frame []byte) bool {
	return strings.HasPrefix(string(frame), BootstrapPrefix+string(Sep))
}

// ParseBootstrap extracts the symbol set from a bootstrap frame.
func ParseBootstrap(frame []byte) ([]string, error) {
	s := string(frame)
	rest, ok := strings.CutPrefix(s, BootstrapPrefix+string(Sep))
	if !ok {
		return nil, fmt.Errorf("%w: not a bootstrap frame: %q", domain.ErrBadFrame, s)
	}
	var symbols []string
	for _, sym := range strings.Split(rest, ",") {
		sym = strings.TrimSpace(sym)
		if sym != "" {
			symbols = append(symbols, sym)
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: bootstrap frame with no symbols", domain.ErrBadFrame)
	}
	return symbols, nil
}

// EncodePriceTick renders `{unix_ms}|{symbol}|{price}`.
func EncodePriceTick(t domain.PriceTick) []byte {
	return []byte(strconv.FormatInt(t.Ts, 10) + string(Sep) + t.Symbol + string(Sep) +
		strconv.FormatFloat(t.Price, 'f', -1, 64))
}

// ParsePriceTick parses a price tick frame. Structural errors only; value
// validation is the receiver's concern (PriceTick.Valid).
func ParsePriceTick(frame []byte) (domain.PriceTick, error) {
	parts := strings.Split(string(frame), string(Sep))
	if len(parts) != 3 {
		return domain.PriceTick{}, fmt.Errorf("%w: want 3 fields, got %d", domain.ErrBadFrame, len(parts))
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return domain.PriceTick{}, fmt.Errorf("%w: bad timestamp %q", domain.ErrBadFrame, parts[0])
	}
	price, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return domain.PriceTick{}, fmt.Errorf("%w: bad price %q", domain.ErrBadFrame, parts[2])
	}
	return domain.PriceTick{Ts: ts, Symbol: parts[1], Price: price}, nil
}

// EncodeSentimentTick renders `{unix_ms}|{symbol}|{score}`.
func EncodeSentimentTick(t domain.SentimentTick) []byte {
	return []byte(strconv.FormatInt(t.Ts, 10) + string(Sep) + t.Symbol + string(Sep) +
		strconv.Itoa(t.Score))
}

// ParseSentimentTick parses a sentiment tick frame.
func ParseSentimentTick(frame []byte) (domain.SentimentTick, error) {
	parts := strings.Split(string(frame), string(Sep))
	if len(parts) != 3 {
		return domain.SentimentTick{}, fmt.Errorf("%w: want 3 fields, got %d", domain.ErrBadFrame, len(parts))
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return domain.SentimentTick{}, fmt.Errorf("%w: bad timestamp %q", domain.ErrBadFrame, parts[0])
	}
	score, err := strconv.Atoi(parts[2])
	if err != nil {
		return domain.SentimentTick{}, fmt.Errorf("%w: bad score %q", domain.ErrBadFrame, parts[2])
	}
	return domain.SentimentTick{Ts: ts, Symbol: parts[1], Score: score}, nil
}

// EncodeOrder renders the JSON order payload.
func EncodeOrder(o domain.Order) ([]byte, error) {
	return json.Marshal(o)
}

// ParseOrder decodes a JSON order payload. Field validation happens in the
// order manager; this only rejects unparsable JSON.
func ParseOrder(frame []byte) (domain.Order, error) {
	var o domain.Order
	if err := json.Unmarshal(frame, &o); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrBadFrame, err)
	}
	return o, nil
}

// EncodeAck renders the JSON ack payload.
func EncodeAck(a domain.OrderAck) ([]byte, error) {
	return json.Marshal(a)
}

// ParseAck decodes a JSON ack payload.
func ParseAck(frame []byte) (domain.OrderAck, error) {
	var a domain.OrderAck
	if err := json.Unmarshal(frame, &a); err != nil {
		return domain.OrderAck{}, fmt.Errorf("%w: %v", domain.ErrBadFrame, err)
	}
	return a, nil
}
