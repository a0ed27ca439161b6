package model

import "github.com/shopspring/decimal"

// AccountSnapshot is the broker account view fetched once at cycle start.
// It is read-only for the rest of the cycle; risk sizing draws against this
// single snapshot so buying power is never double counted across symbols.
type AccountSnapshot struct {
	PortfolioValue  decimal.Decimal `json:"portfolio_value"`
	BuyingPower     decimal.Decimal `json:"buying_power"`
	Equity          decimal.Decimal `json:"equity"`
	LastEquity      decimal.Decimal `json:"last_equity"`
	CurrentDrawdown decimal.Decimal `json:"current_drawdown"`
}

// BrokerPosition is an open position as reported by the broker. It is the
// authoritative source of truth for held quantities and is never cached
// across cycles.
type BrokerPosition struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
}
