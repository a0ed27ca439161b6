package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"autotrader/src/database"
	"autotrader/src/model"
)

// TradeRepository handles the append-only trade log.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance using the main read/write database.
func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Info("Creating new TradeRepository with MainDB")

	return &TradeRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Append inserts one trade record. Records are never updated or deleted.
func (r *TradeRepository) Append(ctx context.Context, record *model.TradeRecord) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "TradeRepository",
		"op":     "Append",
		"symbol": record.Symbol,
		"side":   record.Side,
		"qty":    record.Quantity,
	}).Debug("Appending trade record")

	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Append",
		}).WithError(err).Error("Failed to append trade record")

		return err
	}

	return nil
}

// ExistsByClientOrderID reports whether a trade record was already appended
// for the given client order id.
func (r *TradeRepository) ExistsByClientOrderID(ctx context.Context, clientOrderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TradeRecord{}).
		Where("client_order_id = ?", clientOrderID).
		Count(&count).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":            "TradeRepository",
			"op":              "ExistsByClientOrderID",
			"client_order_id": clientOrderID,
		}).WithError(err).Error("Failed to count trade records")

		return false, err
	}

	return count > 0, nil
}

// Recent returns the latest trade records, newest first.
func (r *TradeRepository) Recent(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []model.TradeRecord
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Recent",
		}).WithError(err).Error("Failed to fetch recent trade records")

		return nil, err
	}

	return records, nil
}
