package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"autotrader/src/database"
	"autotrader/src/model"
)

// OrderRepository handles read/write operations for submitted orders.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main read/write database.
func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Info("Creating new OrderRepository with MainDB")

	return &OrderRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order into the database.
// The given order will be updated with the generated ID and timestamps.
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "OrderRepository",
		"op":     "Create",
		"symbol": order.Symbol,
		"side":   order.Side,
		"qty":    order.Quantity,
	}).Debug("Creating new order")

	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create order")

		return err
	}

	return nil
}

// FindByClientOrderID fetches a single order by its client order id.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByClientOrderID(ctx context.Context, clientOrderID string) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Where("client_order_id = ?", clientOrderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":            "OrderRepository",
			"op":              "FindByClientOrderID",
			"client_order_id": clientOrderID,
		}).WithError(err).Error("Failed to fetch order")

		return nil, err
	}

	return &order, nil
}

// UpdateStatusByClientOrderID sets a new terminal status for an order
// identified by its client order id, recording the fill price when given.
func (r *OrderRepository) UpdateStatusByClientOrderID(
	ctx context.Context,
	clientOrderID string,
	newStatus string,
	filledPrice *float64,
) error {
	updates := map[string]interface{}{
		"status":     newStatus,
		"updated_at": time.Now().UTC(),
	}
	if filledPrice != nil {
		updates["filled_price"] = *filledPrice
	}

	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("client_order_id = ?", clientOrderID).
		Updates(updates)
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":            "OrderRepository",
			"op":              "UpdateStatusByClientOrderID",
			"client_order_id": clientOrderID,
			"status":          newStatus,
		}).WithError(res.Error).Error("Failed to update order status")

		return res.Error
	}
	if res.RowsAffected == 0 {
		logger.WithFields(map[string]interface{}{
			"repo":            "OrderRepository",
			"op":              "UpdateStatusByClientOrderID",
			"client_order_id": clientOrderID,
		}).Warn("No order matched client order id")
	}

	return nil
}
