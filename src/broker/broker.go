package broker

import (
	"context"
	"errors"

	"autotrader/src/model"

	"github.com/shopspring/decimal"
)

var (
	// ErrQuoteUnavailable marks a symbol with no usable last trade. The
	// caller treats this as degraded data, not a transport failure.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrOrderRejected marks a submission the venue refused.
	ErrOrderRejected = errors.New("order rejected")
)

// OrderRequest is the order the coordinator asks the gateway to place.
type OrderRequest struct {
	Symbol        string
	Quantity      int64
	Side          string
	OrderType     string
	TimeInForce   string
	ClientOrderID string
}

// Gateway is the consumed brokerage capability. Every operation may fail or
// time out; callers own the context deadline.
type Gateway interface {
	GetAccount(ctx context.Context) (*model.AccountSnapshot, error)
	GetPositions(ctx context.Context) ([]model.BrokerPosition, error)
	GetLastQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
	CreateOrder(ctx context.Context, req OrderRequest) (*model.Order, error)
}
