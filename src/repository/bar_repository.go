package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autotrader/src/database"
	"autotrader/src/model"
)

// BarRepository reads and backfills daily OHLCV bars, the price history
// behind momentum classification.
type BarRepository struct {
	db *gorm.DB
}

// NewBarRepository creates a new repository instance using the main read/write database.
func NewBarRepository() *BarRepository {
	logger.WithField("component", "BarRepository").
		Info("Creating new BarRepository with MainDB")

	return &BarRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *BarRepository) WithDB(db *gorm.DB) *BarRepository {
	return &BarRepository{db: db}
}

// FetchDailyHistory returns up to limit daily bars for the symbol ending at
// to, in ascending chronological order.
func (r *BarRepository) FetchDailyHistory(
	ctx context.Context,
	symbol string,
	to time.Time,
	limit int,
) ([]model.DailyBar, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []model.DailyBar
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND datetime <= ?", symbol, to).
		Order("datetime DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "BarRepository",
			"op":     "FetchDailyHistory",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch daily bars")

		return nil, err
	}

	// reverse to ascending chronological order for easier logic
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// DailyCloses satisfies strategy.PriceHistory: closing prices for the
// lookback window, oldest first.
func (r *BarRepository) DailyCloses(ctx context.Context, symbol string, lookbackDays int) ([]decimal.Decimal, error) {
	bars, err := r.FetchDailyHistory(ctx, symbol, time.Now().UTC(), lookbackDays)
	if err != nil {
		return nil, err
	}

	closes := make([]decimal.Decimal, 0, len(bars))
	for _, bar := range bars {
		closes = append(closes, bar.Close)
	}
	return closes, nil
}

// UpsertDailyBar inserts a bar, updating prices on (datetime, symbol)
// conflict. Used by the backfill command.
func (r *BarRepository) UpsertDailyBar(ctx context.Context, bar *model.DailyBar) error {
	bar.NormalizeDatetime()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "datetime"}, {Name: "symbol"}}, // Composite unique index columns
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(bar).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "BarRepository",
			"op":     "UpsertDailyBar",
			"symbol": bar.Symbol,
		}).WithError(err).Error("Failed to upsert daily bar")

		return err
	}

	return nil
}
