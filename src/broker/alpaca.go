// REST API CLIENT FOR THE ALPACA TRADING GATEWAY
// RESTY ONLY + INTERNAL RETRY
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"autotrader/src/model"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// -----------------------------
// CONFIG
// -----------------------------
const (
	// Default retry configuration
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second

	defaultPaperBaseURL = "https://paper-api.alpaca.markets"
	defaultLiveBaseURL  = "https://api.alpaca.markets"
)

// -----------------------------
// WIRE STRUCTURES
// -----------------------------
type alpacaAccount struct {
	Status         string `json:"status"`
	PortfolioValue string `json:"portfolio_value"`
	BuyingPower    string `json:"buying_power"`
	Equity         string `json:"equity"`
	LastEquity     string `json:"last_equity"`
}

type alpacaPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
}

type alpacaLatestTrade struct {
	Symbol string `json:"symbol"`
	Trade  struct {
		Price     float64 `json:"p"`
		Timestamp string  `json:"t"`
	} `json:"trade"`
}

type alpacaOrder struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	Status        string `json:"status"`
	SubmittedAt   string `json:"submitted_at"`
}

type alpacaAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// -----------------------------
// AUTHENTICATED CLIENT
// -----------------------------

// AlpacaClient implements Gateway over the Alpaca v2 REST API. Trading calls
// go to the account base URL, market data to the data base URL. Credentials
// live on the resty clients as headers.
type AlpacaClient struct {
	http     *resty.Client
	dataHTTP *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewAlpacaClient(cfg Config) *AlpacaClient {
	retryCount := defaultRetryAttempts - 1

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.PaperMode {
			baseURL = defaultPaperBaseURL
		} else {
			baseURL = defaultLiveBaseURL
		}
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	newHTTP := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetRetryCount(retryCount).
			SetRetryWaitTime(defaultRetryBaseDelay).
			SetRetryMaxWaitTime(defaultRetryMaxBackoff).
			AddRetryCondition(isRetryableResp).
			SetHeader("APCA-API-KEY-ID", cfg.APIKey).
			SetHeader("APCA-API-SECRET-KEY", cfg.APISecret)
	}

	return &AlpacaClient{
		http:     newHTTP(baseURL),
		dataHTTP: newHTTP(cfg.DataBaseURL),
	}
}

func apiErrorMessage(raw []byte) string {
	var apiErr alpacaAPIError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return string(raw)
}

// -----------------------------
// GATEWAY OPERATIONS
// -----------------------------

func (c *AlpacaClient) GetAccount(ctx context.Context) (*model.AccountSnapshot, error) {
	var acct alpacaAccount
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&acct).
		Get("/v2/account")
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("get account: HTTP %d: %s", resp.StatusCode(), apiErrorMessage(resp.Body()))
	}

	portfolioValue, err := decimal.NewFromString(acct.PortfolioValue)
	if err != nil {
		return nil, fmt.Errorf("get account: bad portfolio_value %q: %w", acct.PortfolioValue, err)
	}
	buyingPower, err := decimal.NewFromString(acct.BuyingPower)
	if err != nil {
		return nil, fmt.Errorf("get account: bad buying_power %q: %w", acct.BuyingPower, err)
	}
	equity, err := decimal.NewFromString(acct.Equity)
	if err != nil {
		return nil, fmt.Errorf("get account: bad equity %q: %w", acct.Equity, err)
	}
	lastEquity, err := decimal.NewFromString(acct.LastEquity)
	if err != nil {
		return nil, fmt.Errorf("get account: bad last_equity %q: %w", acct.LastEquity, err)
	}

	return &model.AccountSnapshot{
		PortfolioValue:  portfolioValue,
		BuyingPower:     buyingPower,
		Equity:          equity,
		LastEquity:      lastEquity,
		CurrentDrawdown: drawdownFromEquity(equity, lastEquity),
	}, nil
}

// drawdownFromEquity approximates current drawdown as the loss of equity
// against the prior close. Negative loss (a gain) is a zero drawdown.
func drawdownFromEquity(equity, lastEquity decimal.Decimal) decimal.Decimal {
	if lastEquity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	dd := lastEquity.Sub(equity).Div(lastEquity)
	if dd.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return dd
}

func (c *AlpacaClient) GetPositions(ctx context.Context) ([]model.BrokerPosition, error) {
	var raw []alpacaPosition
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&raw).
		Get("/v2/positions")
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("get positions: HTTP %d: %s", resp.StatusCode(), apiErrorMessage(resp.Body()))
	}

	positions := make([]model.BrokerPosition, 0, len(raw))
	for _, p := range raw {
		qty, err := decimal.NewFromString(p.Qty)
		if err != nil {
			logger.WithError(err).WithField("symbol", p.Symbol).Warn("skipping position with unparseable qty")
			continue
		}
		entry, err := decimal.NewFromString(p.AvgEntryPrice)
		if err != nil {
			entry = decimal.Zero
		}
		positions = append(positions, model.BrokerPosition{
			Symbol:        p.Symbol,
			Quantity:      qty,
			AvgEntryPrice: entry,
		})
	}
	return positions, nil
}

func (c *AlpacaClient) GetLastQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var trade alpacaLatestTrade
	resp, err := c.dataHTTP.R().
		SetContext(ctx).
		SetResult(&trade).
		Get("/v2/stocks/" + symbol + "/trades/latest")
	if err != nil {
		return decimal.Zero, fmt.Errorf("get last quote %s: %w", symbol, err)
	}
	if resp.StatusCode() == 404 {
		return decimal.Zero, fmt.Errorf("get last quote %s: %w", symbol, ErrQuoteUnavailable)
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, fmt.Errorf("get last quote %s: HTTP %d: %s", symbol, resp.StatusCode(), apiErrorMessage(resp.Body()))
	}
	if trade.Trade.Price <= 0 {
		return decimal.Zero, fmt.Errorf("get last quote %s: zero price: %w", symbol, ErrQuoteUnavailable)
	}

	return decimal.NewFromFloat(trade.Trade.Price), nil
}

func (c *AlpacaClient) CreateOrder(ctx context.Context, req OrderRequest) (*model.Order, error) {
	body := map[string]string{
		"symbol":        req.Symbol,
		"qty":           strconv.FormatInt(req.Quantity, 10),
		"side":          req.Side,
		"type":          req.OrderType,
		"time_in_force": req.TimeInForce,
	}
	if req.ClientOrderID != "" {
		body["client_order_id"] = req.ClientOrderID
	}

	var placed alpacaOrder
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&placed).
		Post("/v2/orders")
	if err != nil {
		return nil, fmt.Errorf("create order %s: %w", req.Symbol, err)
	}

	// 403 is insufficient buying power / account blocked, 422 a malformed or
	// unfillable order. Both are venue rejections, not transport faults.
	if resp.StatusCode() == 403 || resp.StatusCode() == 422 {
		return nil, fmt.Errorf("create order %s: %s: %w", req.Symbol, apiErrorMessage(resp.Body()), ErrOrderRejected)
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 201 {
		return nil, fmt.Errorf("create order %s: HTTP %d: %s", req.Symbol, resp.StatusCode(), apiErrorMessage(resp.Body()))
	}

	qty, err := strconv.ParseFloat(placed.Qty, 64)
	if err != nil {
		qty = float64(req.Quantity)
	}

	order := &model.Order{
		ClientOrderID: placed.ClientOrderID,
		ExternalID:    placed.ID,
		Symbol:        placed.Symbol,
		Side:          placed.Side,
		OrderType:     placed.Type,
		TimeInForce:   placed.TimeInForce,
		Quantity:      qty,
		Status:        mapOrderStatus(placed.Status),
	}

	if ts, err := time.Parse(time.RFC3339, placed.SubmittedAt); err == nil {
		order.SubmittedAt = &ts
	}

	return order, nil
}

func mapOrderStatus(venueStatus string) string {
	switch venueStatus {
	case "filled", "partially_filled":
		return model.OrderStatusFilled
	case "rejected", "canceled", "expired":
		return model.OrderStatusRejected
	case "new", "accepted", "pending_new", "accepted_for_bidding":
		return model.OrderStatusSubmitted
	default:
		return model.OrderStatusSubmitted
	}
}
