package strategy

import (
	"context"

	"autotrader/src/model"

	"github.com/shopspring/decimal"
)

// SignalGenerator classifies one symbol for one cycle. Implementations must
// be deterministic for identical inputs and must not fail out of Classify:
// missing data degrades the signal to hold instead of raising.
type SignalGenerator interface {
	Classify(ctx context.Context, symbol string) model.Signal
}

// PriceHistory supplies daily closing prices in ascending chronological
// order, oldest first, covering up to lookbackDays trading days.
type PriceHistory interface {
	DailyCloses(ctx context.Context, symbol string, lookbackDays int) ([]decimal.Decimal, error)
}

// QuoteSource supplies the latest traded price for a symbol.
// broker.Gateway satisfies this.
type QuoteSource interface {
	GetLastQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}
