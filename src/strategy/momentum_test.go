package strategy

import (
	"context"
	"errors"
	"testing"

	"autotrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

type stubHistory struct {
	closes []decimal.Decimal
	err    error
}

func (s *stubHistory) DailyCloses(_ context.Context, _ string, _ int) ([]decimal.Decimal, error) {
	return s.closes, s.err
}

type stubQuotes struct {
	price decimal.Decimal
	err   error
}

func (s *stubQuotes) GetLastQuote(_ context.Context, _ string) (decimal.Decimal, error) {
	return s.price, s.err
}

func newTestMomentum(t *testing.T, history *stubHistory, quotes *stubQuotes, threshold float64) *Momentum {
	t.Helper()
	log, _ := logrustest.NewNullLogger()
	return NewMomentum(logrus.NewEntry(log), history, quotes, 20, threshold)
}

func closesFrom(prices ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(prices))
	for _, p := range prices {
		out = append(out, decimal.NewFromFloat(p))
	}
	return out
}

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		name      string
		start     float64
		current   float64
		threshold float64
		want      model.Direction
	}{
		{name: "positive momentum above threshold", start: 100, current: 106, threshold: 0.05, want: model.DirectionBuy},
		{name: "negative momentum below threshold", start: 100, current: 94, threshold: 0.05, want: model.DirectionSell},
		{name: "momentum inside band", start: 100, current: 102, threshold: 0.05, want: model.DirectionHold},
		{name: "momentum exactly at threshold holds", start: 100, current: 105, threshold: 0.05, want: model.DirectionHold},
		{name: "momentum exactly at negative threshold holds", start: 100, current: 95, threshold: 0.05, want: model.DirectionHold},
		{name: "flat prices hold", start: 100, current: 100, threshold: 0.05, want: model.DirectionHold},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMomentum(t,
				&stubHistory{closes: closesFrom(tc.start, tc.start+1, tc.start-1)},
				&stubQuotes{price: decimal.NewFromFloat(tc.current)},
				tc.threshold,
			)

			sig := m.Classify(context.Background(), "SPY")
			if sig.Direction != tc.want {
				t.Fatalf("Classify direction = %s, want %s (momentum %f)", sig.Direction, tc.want, sig.Momentum)
			}
			if sig.Symbol != "SPY" {
				t.Fatalf("Classify symbol = %s, want SPY", sig.Symbol)
			}
		})
	}
}

func TestClassifyMomentumValue(t *testing.T) {
	m := newTestMomentum(t,
		&stubHistory{closes: closesFrom(100)},
		&stubQuotes{price: decimal.NewFromFloat(106)},
		0.05,
	)

	sig := m.Classify(context.Background(), "QQQ")
	if sig.Momentum != 0.06 {
		t.Fatalf("Classify momentum = %f, want 0.06", sig.Momentum)
	}
	if sig.Direction != model.DirectionBuy {
		t.Fatalf("Classify direction = %s, want buy", sig.Direction)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	m := newTestMomentum(t,
		&stubHistory{closes: closesFrom(100, 101, 102)},
		&stubQuotes{price: decimal.NewFromFloat(103)},
		0.05,
	)

	first := m.Classify(context.Background(), "IWM")
	for i := 0; i < 5; i++ {
		again := m.Classify(context.Background(), "IWM")
		if again != first {
			t.Fatalf("Classify not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestClassifyMissingDataHolds(t *testing.T) {
	tests := []struct {
		name    string
		history *stubHistory
		quotes  *stubQuotes
	}{
		{
			name:    "quote unavailable",
			history: &stubHistory{closes: closesFrom(100)},
			quotes:  &stubQuotes{err: errors.New("no trade found")},
		},
		{
			name:    "history error",
			history: &stubHistory{err: errors.New("db down")},
			quotes:  &stubQuotes{price: decimal.NewFromFloat(100)},
		},
		{
			name:    "empty history",
			history: &stubHistory{},
			quotes:  &stubQuotes{price: decimal.NewFromFloat(100)},
		},
		{
			name:    "zero start price",
			history: &stubHistory{closes: closesFrom(0)},
			quotes:  &stubQuotes{price: decimal.NewFromFloat(100)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, hook := logrustest.NewNullLogger()
			m := NewMomentum(logrus.NewEntry(log), tc.history, tc.quotes, 20, 0.05)

			sig := m.Classify(context.Background(), "AAPL")
			if sig.Direction != model.DirectionHold {
				t.Fatalf("Classify direction = %s, want hold on missing data", sig.Direction)
			}

			if len(hook.AllEntries()) == 0 {
				t.Fatalf("expected a data-unavailable event to be logged")
			}
		})
	}
}
