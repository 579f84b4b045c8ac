package trading

import (
	"context"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"
)

// Credentials bind the gateway to one trading configuration. The gateway is
// rebound whenever the active configuration or its mode changes.
type Credentials struct {
	Mode      model.TradeMode
	AppKey    string
	AppSecret string
	AccountNo string
}

// SubmitRequest describes one order submission to the broker.
type SubmitRequest struct {
	Side           model.OrderSide
	InstrumentCode string
	Quantity       int64
	Price          int64
	PriceKind      model.PriceKind
	AccountNo      string
	RequestID      string
}

// InstrumentInfo is the broker's view of a tradable security.
type InstrumentInfo struct {
	Code   string
	Name   string
	Market string
}

// HoldingSnapshot is one row of the broker's own books, used for out-of-band
// reconciliation.
type HoldingSnapshot struct {
	InstrumentCode string
	InstrumentName string
	Quantity       int64
	AvgPrice       int64
	CurrentPrice   int64
	ProfitRate     float64
	ProfitAmount   int64
}

// Gateway is the capability interface the engine requires of the broker
// connectivity layer. Transport and retry policy live behind it; every call
// carries a bounded timeout budget and a timeout is a recoverable failure.
type Gateway interface {
	// Connect binds the gateway to the given credentials and logs in.
	Connect(ctx context.Context, creds Credentials) error
	// QuotePrice returns the current price for an instrument code.
	QuotePrice(ctx context.Context, instrumentCode string) (int64, error)
	// InstrumentInfo looks up name/venue for an instrument code.
	InstrumentInfo(ctx context.Context, instrumentCode string) (InstrumentInfo, error)
	// SubmitOrder submits an order and returns the broker order reference.
	SubmitOrder(ctx context.Context, req SubmitRequest) (string, error)
	// CancelOrder cancels the unfilled remainder of a submitted order.
	CancelOrder(ctx context.Context, orderRef, instrumentCode string, quantity int64) error
	// HoldingsSnapshot pulls the broker-side holdings for an account.
	HoldingsSnapshot(ctx context.Context, accountNo string) ([]HoldingSnapshot, error)
}
