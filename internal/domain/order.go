package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order is a trading order submitted by a strategy process.
// Immutable once sent; terminal once acknowledged or rejected.
type Order struct {
	ID     string          `json:"id"`
	Side   string          `json:"side"`
	Symbol string          `json:"symbol"`
	Qty    int64           `json:"qty"`
	Price  decimal.Decimal `json:"price"`
	Ts     int64           `json:"ts"` // Unix milliseconds
}

// NewOrder builds an order with a fresh correlation id and current timestamp.
func NewOrder(side, symbol string, qty int64, price decimal.Decimal) Order {
	return Order{
		ID:     uuid.NewString(),
		Side:   side,
		Symbol: symbol,
		Qty:    qty,
		Price:  price,
		Ts:     time.Now().UnixMilli(),
	}
}

const (
	AckAccepted = "ACCEPTED"
	AckRejected = "REJECTED"
)

// Rejection reason codes, stable across the wire.
const (
	ReasonBadPayload    = "bad_payload"
	ReasonBadSide       = "bad_side"
	ReasonUnknownSymbol = "unknown_symbol"
	ReasonBadQty        = "bad_qty"
	ReasonBadPrice      = "bad_price"
)

// OrderAck is the order manager's response to a single order frame.
// Exactly one ack is emitted for every syntactically valid order received.
type OrderAck struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Ts      int64  `json:"ts"`
}

// Accepted reports whether the order reached the journal.
func (a OrderAck) Accepted() bool {
	return a.Status == AckAccepted
}
