package strategy

import (
	"context"

	"autotrader/src/model"

	logger "github.com/sirupsen/logrus"
)

// Momentum classifies symbols by relative price change over a lookback
// window: (current - priceAtLookbackStart) / priceAtLookbackStart.
// Momentum above the threshold is a buy, below the negated threshold a
// sell, anything else (boundaries included) a hold.
type Momentum struct {
	log          *logger.Entry
	history      PriceHistory
	quotes       QuoteSource
	lookbackDays int
	threshold    float64
}

func NewMomentum(log *logger.Entry, history PriceHistory, quotes QuoteSource, lookbackDays int, threshold float64) *Momentum {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	return &Momentum{
		log:          log,
		history:      history,
		quotes:       quotes,
		lookbackDays: lookbackDays,
		threshold:    threshold,
	}
}

// Classify never returns an error: when the quote or the price history is
// unavailable the signal degrades to hold and a data-unavailable event is
// logged. Absence of data is a degraded signal, not a fatal condition.
func (m *Momentum) Classify(ctx context.Context, symbol string) model.Signal {
	hold := model.Signal{Symbol: symbol, Direction: model.DirectionHold}

	current, err := m.quotes.GetLastQuote(ctx, symbol)
	if err != nil {
		m.log.WithError(err).WithFields(logger.Fields{
			"symbol": symbol,
			"event":  "data_unavailable",
		}).Warn("no current quote, defaulting to hold")
		return hold
	}

	closes, err := m.history.DailyCloses(ctx, symbol, m.lookbackDays)
	if err != nil {
		m.log.WithError(err).WithFields(logger.Fields{
			"symbol": symbol,
			"event":  "data_unavailable",
		}).Warn("failed to load price history, defaulting to hold")
		return hold
	}

	if len(closes) == 0 || closes[0].IsZero() {
		m.log.WithFields(logger.Fields{
			"symbol": symbol,
			"event":  "data_unavailable",
			"bars":   len(closes),
		}).Warn("no usable price history, defaulting to hold")
		return hold
	}

	start := closes[0]
	momentum, _ := current.Sub(start).Div(start).Float64()

	sig := model.Signal{Symbol: symbol, Direction: model.DirectionHold, Momentum: momentum}
	switch {
	case momentum > m.threshold:
		sig.Direction = model.DirectionBuy
	case momentum < -m.threshold:
		sig.Direction = model.DirectionSell
	}

	m.log.WithFields(logger.Fields{
		"symbol":    symbol,
		"momentum":  momentum,
		"direction": sig.Direction,
	}).Debug("symbol classified")

	return sig
}
