package executor

import (
	"context"

	"autotrader/src/broker"
	"autotrader/src/model"

	"github.com/sirupsen/logrus"
)

type orderStore interface {
	UpdateStatusByClientOrderID(ctx context.Context, clientOrderID string, newStatus string, filledPrice *float64) error
	FindByClientOrderID(ctx context.Context, clientOrderID string) (*model.Order, error)
}

// tradeLedger is the reconciler's view of the trade log: append plus a
// client-order-id existence check so a trade is recorded exactly once.
type tradeLedger interface {
	Append(ctx context.Context, record *model.TradeRecord) error
	ExistsByClientOrderID(ctx context.Context, clientOrderID string) (bool, error)
}

type nopTradeLedger struct{}

func (nopTradeLedger) Append(context.Context, *model.TradeRecord) error { return nil }
func (nopTradeLedger) ExistsByClientOrderID(context.Context, string) (bool, error) {
	return false, nil
}

// FillReconciler consumes broker trade-update events and reconciles them
// into the orders table and the append-only trade log.
type FillReconciler struct {
	log    *logrus.Entry
	orders orderStore
	trades tradeLedger
}

func NewFillReconciler(log *logrus.Entry, orders orderStore, trades tradeLedger) *FillReconciler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if trades == nil {
		trades = nopTradeLedger{}
	}
	return &FillReconciler{log: log, orders: orders, trades: trades}
}

// Handle is a broker.TradeUpdateHandler.
func (f *FillReconciler) Handle(ctx context.Context, update broker.TradeUpdate) error {
	log := f.log.WithFields(logrus.Fields{
		"event":           update.Event,
		"symbol":          update.Symbol,
		"client_order_id": update.ClientOrderID,
	})

	switch update.Event {
	case "fill", "partial_fill":
		price := update.FilledPrice
		if err := f.orders.UpdateStatusByClientOrderID(ctx, update.ClientOrderID, model.OrderStatusFilled, &price); err != nil {
			return err
		}

		// The submission path appends the trade record; the fill price lands
		// on the order row. Appending here too would double-count the trade.
		exists, err := f.trades.ExistsByClientOrderID(ctx, update.ClientOrderID)
		if err != nil {
			return err
		}
		if exists {
			log.Debug("trade already recorded at submission")
			return nil
		}

		record := &model.TradeRecord{
			ClientOrderID: update.ClientOrderID,
			Symbol:        update.Symbol,
			Side:          update.Side,
			Quantity:      update.FilledQty,
			Price:         update.FilledPrice,
			Timestamp:     update.At,
		}
		if order, err := f.orders.FindByClientOrderID(ctx, update.ClientOrderID); err == nil && order != nil {
			record.OrderID = &order.ID
		}
		if err := f.trades.Append(ctx, record); err != nil {
			return err
		}
		log.Info("fill reconciled")

	case "rejected", "canceled", "expired":
		if err := f.orders.UpdateStatusByClientOrderID(ctx, update.ClientOrderID, model.OrderStatusRejected, nil); err != nil {
			return err
		}
		log.Warn("order terminal without fill")

	default:
		log.Debug("ignoring trade update event")
	}

	return nil
}
