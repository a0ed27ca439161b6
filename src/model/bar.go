package model

import (
	"time"

	"autotrader/src/utils"

	"github.com/shopspring/decimal"
)

// DailyBar is one daily OHLCV bar. The (datetime, symbol) pair is unique;
// backfill upserts on conflict.
type DailyBar struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	Datetime time.Time       `gorm:"uniqueIndex:idx_daily_bars_datetime_symbol" json:"datetime"`
	Open     decimal.Decimal `gorm:"type:numeric" json:"open"`
	High     decimal.Decimal `gorm:"type:numeric" json:"high"`
	Low      decimal.Decimal `gorm:"type:numeric" json:"low"`
	Close    decimal.Decimal `gorm:"type:numeric" json:"close"`
	Volume   decimal.Decimal `gorm:"type:numeric" json:"volume"`
	Symbol   string          `gorm:"size:20;uniqueIndex:idx_daily_bars_datetime_symbol" json:"symbol"`
}

func (DailyBar) TableName() string {
	return "daily_bars"
}

// NormalizeDatetime truncates the bar timestamp to the day boundary so
// upserts land on the composite unique index.
func (b *DailyBar) NormalizeDatetime() {
	b.Datetime = utils.ResetTime(b.Datetime, "day")
}
