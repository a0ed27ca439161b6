package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"autotrader/src/broker"
	"autotrader/src/model"
	"autotrader/src/risk"
	"autotrader/src/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TradeRecorder appends to the trade log after an order reaches
// submitted or filled. Implementations must be append-only.
type TradeRecorder interface {
	Append(ctx context.Context, record *model.TradeRecord) error
}

// NopTradeRecorder discards records; used when persistence is disabled.
type NopTradeRecorder struct{}

func (NopTradeRecorder) Append(context.Context, *model.TradeRecord) error { return nil }

// OrderCreator persists the order row after a successful submission so fill
// reconciliation has a row to settle against.
type OrderCreator interface {
	Create(ctx context.Context, order *model.Order) error
}

// NopOrderCreator discards order rows; used when persistence is disabled.
type NopOrderCreator struct{}

func (NopOrderCreator) Create(context.Context, *model.Order) error { return nil }

// Coordinator runs one execution cycle over the symbol universe: signal,
// risk-gated sizing, quote, submit, reconcile. One instance per strategy;
// cycles never overlap.
type Coordinator struct {
	log      *logrus.Entry
	gateway  broker.Gateway
	signals  strategy.SignalGenerator
	risk     *risk.Manager
	orders   OrderCreator
	trades   TradeRecorder
	now      func() time.Time
	newCID   func() string
	symbols  []string
	vol      decimal.Decimal
	timeout  time.Duration
	running  atomic.Bool
	reportMu sync.Mutex
	last     *CycleReport
}

func NewCoordinator(
	log *logrus.Entry,
	gateway broker.Gateway,
	signals strategy.SignalGenerator,
	riskManager *risk.Manager,
	orders OrderCreator,
	trades TradeRecorder,
	cfg Config,
) (*Coordinator, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if orders == nil {
		orders = NopOrderCreator{}
	}
	if trades == nil {
		trades = NopTradeRecorder{}
	}

	if err := ValidateUniverse(cfg.Symbols); err != nil {
		return nil, err
	}

	timeout := cfg.CycleTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Coordinator{
		log:     log,
		gateway: gateway,
		signals: signals,
		risk:    riskManager,
		orders:  orders,
		trades:  trades,
		now:     time.Now,
		newCID:  uuid.NewString,
		symbols: cfg.Symbols,
		vol:     decimal.NewFromFloat(cfg.AssumedVolatility),
		timeout: timeout,
	}, nil
}

// LastReport returns the most recent cycle report, nil before the first
// cycle. Used by the status endpoint.
func (c *Coordinator) LastReport() *CycleReport {
	c.reportMu.Lock()
	defer c.reportMu.Unlock()
	return c.last
}

// RunCycle executes one full pass over the universe. It is safe to call from
// a scheduler with no mutual exclusion of its own: a trigger that fires while
// a cycle is still executing is skipped, not queued. Any panic inside the
// cycle is caught at this boundary so the scheduler is never crashed.
func (c *Coordinator) RunCycle(ctx context.Context) (report *CycleReport) {
	if !c.running.CompareAndSwap(false, true) {
		c.log.Warn("cycle already running, skipping trigger")
		report = newCycleReport(c.now())
		report.Skipped = true
		report.SkipReason = SkipCycleRunning
		report.FinishedAt = c.now()
		return report
	}
	defer c.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report = newCycleReport(c.now())
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", fmt.Sprintf("%+v", r)).Error("cycle panicked, ending cleanly")
		}
		report.FinishedAt = c.now()

		c.reportMu.Lock()
		c.last = report
		c.reportMu.Unlock()

		c.log.WithFields(logrus.Fields{
			"symbols":   len(c.symbols),
			"submitted": report.OrdersSubmitted(),
			"errors":    len(report.Errors()),
			"skipped":   report.Skipped,
			"duration":  report.FinishedAt.Sub(report.StartedAt).String(),
		}).Info("cycle finished")
	}()

	// One account snapshot per cycle. Every buy in this cycle sizes against
	// this snapshot; it is never re-fetched mid-cycle.
	account, err := c.gateway.GetAccount(ctx)
	if err != nil {
		c.log.WithError(err).Error("failed to fetch account snapshot, skipping cycle")
		report.Skipped = true
		report.SkipReason = SkipAccountFetch
		return report
	}

	if !c.risk.CheckDrawdownLimit(account.CurrentDrawdown) {
		c.log.WithFields(logrus.Fields{
			"drawdown": account.CurrentDrawdown.String(),
			"event":    "risk_limit",
		}).Warn("drawdown limit breached, skipping cycle")
		report.Skipped = true
		report.SkipReason = SkipRiskLimitBreached
		return report
	}

	positions, posErr := c.gateway.GetPositions(ctx)
	if posErr != nil {
		// Buy paths do not need positions; only sells fail on this.
		c.log.WithError(posErr).Error("failed to fetch positions, sell paths will fail this cycle")
	}
	held := make(map[string]model.BrokerPosition, len(positions))
	for _, p := range positions {
		held[p.Symbol] = p
	}

	// At most one order per symbol per cycle, however often a signal is
	// re-evaluated.
	submitted := make(map[string]struct{}, len(c.symbols))

	for _, symbol := range c.symbols {
		outcome, err := c.processSymbol(ctx, symbol, account, held, posErr, submitted)
		report.add(outcome, err)
	}

	return report
}

func (c *Coordinator) processSymbol(
	ctx context.Context,
	symbol string,
	account *model.AccountSnapshot,
	held map[string]model.BrokerPosition,
	posErr error,
	submitted map[string]struct{},
) (SymbolOutcome, error) {
	outcome := SymbolOutcome{Symbol: symbol, State: StateIdle, Direction: model.DirectionHold}

	if _, done := submitted[symbol]; done {
		outcome.Detail = "order already submitted this cycle"
		return outcome, nil
	}

	sig := c.signals.Classify(ctx, symbol)
	outcome.State = StateSignaled
	outcome.Direction = sig.Direction
	outcome.Momentum = sig.Momentum

	switch sig.Direction {
	case model.DirectionBuy:
		return c.executeBuy(ctx, symbol, account, submitted, outcome)
	case model.DirectionSell:
		return c.executeSell(ctx, symbol, held, posErr, submitted, outcome)
	default:
		return outcome, nil
	}
}

func (c *Coordinator) executeBuy(
	ctx context.Context,
	symbol string,
	account *model.AccountSnapshot,
	submitted map[string]struct{},
	outcome SymbolOutcome,
) (SymbolOutcome, error) {
	size := c.risk.PositionSize(account.PortfolioValue, c.vol)
	outcome.State = StateSized

	price, err := c.gateway.GetLastQuote(ctx, symbol)
	if err != nil {
		outcome.State = StateFailed
		if errors.Is(err, broker.ErrQuoteUnavailable) {
			outcome.Failure = FailureDataUnavailable
		} else {
			outcome.Failure = FailureTransport
		}
		c.log.WithError(err).WithField("symbol", symbol).Warn("quote fetch failed, aborting buy path")
		return outcome, err
	}
	outcome.State = StateQuoteFetched

	qty := size.Div(price).IntPart()
	if qty < 1 {
		qty = 1
	}

	return c.submit(ctx, broker.OrderRequest{
		Symbol:        symbol,
		Quantity:      qty,
		Side:          model.OrderSideBuy,
		OrderType:     model.OrderTypeMarket,
		TimeInForce:   model.TimeInForceDay,
		ClientOrderID: c.newCID(),
	}, price, submitted, outcome)
}

func (c *Coordinator) executeSell(
	ctx context.Context,
	symbol string,
	held map[string]model.BrokerPosition,
	posErr error,
	submitted map[string]struct{},
	outcome SymbolOutcome,
) (SymbolOutcome, error) {
	if posErr != nil {
		outcome.State = StateFailed
		outcome.Failure = FailureTransport
		return outcome, fmt.Errorf("sell %s: positions unavailable: %w", symbol, posErr)
	}

	position, ok := held[symbol]
	if !ok || position.Quantity.LessThanOrEqual(decimal.Zero) {
		outcome.Detail = "no position held, nothing to sell"
		c.log.WithField("symbol", symbol).Info("sell signal with no held position, skipping")
		return outcome, nil
	}

	// Sell the full held quantity, never more than the position reports.
	qty := position.Quantity.IntPart()
	if qty < 1 {
		outcome.Detail = "held quantity below one share, nothing to sell"
		return outcome, nil
	}

	return c.submit(ctx, broker.OrderRequest{
		Symbol:        symbol,
		Quantity:      qty,
		Side:          model.OrderSideSell,
		OrderType:     model.OrderTypeMarket,
		TimeInForce:   model.TimeInForceDay,
		ClientOrderID: c.newCID(),
	}, position.AvgEntryPrice, submitted, outcome)
}

func (c *Coordinator) submit(
	ctx context.Context,
	req broker.OrderRequest,
	refPrice decimal.Decimal,
	submitted map[string]struct{},
	outcome SymbolOutcome,
) (SymbolOutcome, error) {
	// Claim the idempotency slot before talking to the venue: an ambiguous
	// submission failure must not lead to a second order this cycle.
	submitted[req.Symbol] = struct{}{}
	outcome.Quantity = req.Quantity

	order, err := c.gateway.CreateOrder(ctx, req)
	if err != nil {
		if errors.Is(err, broker.ErrOrderRejected) {
			outcome.State = StateRejected
			outcome.Failure = FailureOrderRejected
		} else {
			outcome.State = StateFailed
			outcome.Failure = FailureTransport
		}
		c.log.WithError(err).WithFields(logrus.Fields{
			"symbol": req.Symbol,
			"side":   req.Side,
			"qty":    req.Quantity,
		}).Error("order submission failed")
		return outcome, err
	}

	outcome.State = StateSubmitted
	if order.Status == model.OrderStatusFilled {
		outcome.State = StateConfirmed
	}

	if order.ClientOrderID == "" {
		order.ClientOrderID = req.ClientOrderID
	}
	if err := c.orders.Create(ctx, order); err != nil {
		// The order is already live at the venue; a persistence failure only
		// degrades fill reconciliation.
		c.log.WithError(err).WithField("symbol", req.Symbol).Error("failed to persist order row")
	}

	c.log.WithFields(logrus.Fields{
		"symbol":      req.Symbol,
		"side":        req.Side,
		"qty":         req.Quantity,
		"status":      order.Status,
		"external_id": order.ExternalID,
	}).Info("order submitted")

	refPriceF, _ := refPrice.Float64()
	record := &model.TradeRecord{
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Quantity:      float64(req.Quantity),
		Price:         refPriceF,
		Timestamp:     c.now().UTC(),
	}
	if err := c.trades.Append(ctx, record); err != nil {
		// Trade-log persistence is best effort; the order is already placed.
		c.log.WithError(err).WithField("symbol", req.Symbol).Error("failed to append trade record")
	}

	return outcome, nil
}
