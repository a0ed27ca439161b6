package model

import "time"

const (
	OrderStatusPending   = "pending"
	OrderStatusSubmitted = "submitted"
	OrderStatusFilled    = "filled"
	OrderStatusRejected  = "rejected"
	OrderStatusFailed    = "failed"
)

const (
	OrderSideBuy  = "buy"
	OrderSideSell = "sell"
)

const (
	OrderTypeMarket = "market"

	TimeInForceDay = "day"
	TimeInForceGTC = "gtc"
)

// Order represents an order the coordinator sends to the broker.
// Ownership transfers to the broker on submit; the terminal status
// is set from the gateway response or the trade-updates stream.
type Order struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ClientOrderID string     `gorm:"size:64;uniqueIndex" json:"client_order_id"`
	ExternalID    string     `gorm:"size:64;index" json:"external_id,omitempty"`
	Symbol        string     `gorm:"size:20;index" json:"symbol"`
	Side          string     `gorm:"size:10;not null" json:"side"`
	OrderType     string     `gorm:"size:20;not null;default:market" json:"order_type"`
	TimeInForce   string     `gorm:"size:10;not null;default:day" json:"time_in_force"`
	Quantity      float64    `json:"quantity"`
	FilledPrice   *float64   `json:"filled_price,omitempty"`
	Status        string     `gorm:"size:50;not null;default:pending" json:"status"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName allows you to control the exact table name for orders.
func (Order) TableName() string {
	return "orders"
}
