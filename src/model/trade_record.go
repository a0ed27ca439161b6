package model

import "time"

// TradeRecord is one row of the append-only trade log. Records are written
// after an order reaches submitted or filled and are never mutated.
type TradeRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       *uint     `gorm:"index" json:"order_id,omitempty"`
	ClientOrderID string    `gorm:"size:64;index" json:"client_order_id,omitempty"`
	Symbol        string    `gorm:"size:20;index" json:"symbol"`
	Side          string    `gorm:"size:10;not null" json:"side"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
	CreatedAt     time.Time `json:"created_at"`
}

func (TradeRecord) TableName() string {
	return "trade_records"
}
