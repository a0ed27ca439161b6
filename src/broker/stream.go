package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

// TradeUpdate is one order lifecycle event from the broker stream
// (fill, partial_fill, rejected, canceled, ...).
type TradeUpdate struct {
	Event         string
	ClientOrderID string
	Symbol        string
	Side          string
	FilledQty     float64
	FilledPrice   float64
	At            time.Time
}

// TradeUpdateHandler consumes stream events. Returned errors are logged and
// do not stop the consumer.
type TradeUpdateHandler func(ctx context.Context, update TradeUpdate) error

// TradeUpdateStream listens on the broker's trade-updates websocket and
// feeds fill confirmations back into the trade log.
type TradeUpdateStream struct {
	apiKey    string
	apiSecret string
	url       string
}

func NewTradeUpdateStream(cfg Config) *TradeUpdateStream {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.PaperMode {
			baseURL = defaultPaperBaseURL
		} else {
			baseURL = defaultLiveBaseURL
		}
	}

	wsURL := strings.Replace(baseURL, "https://", "wss://", 1) + "/stream"

	return &TradeUpdateStream{
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		url:       wsURL,
	}
}

type streamFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Status string `json:"status,omitempty"`
		Event  string `json:"event,omitempty"`
		Price  string `json:"price,omitempty"`
		Qty    string `json:"qty,omitempty"`
		At     string `json:"timestamp,omitempty"`
		Order  struct {
			ClientOrderID string `json:"client_order_id"`
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
		} `json:"order,omitempty"`
	} `json:"data"`
}

// Run dials, authenticates, subscribes to trade_updates and dispatches
// events to the handler until the context is canceled or the connection
// drops. Callers that want resilience wrap Run in a reconnect loop.
func (s *TradeUpdateStream) Run(ctx context.Context, handler TradeUpdateHandler) error {
	header := http.Header{}

	dialer := websocket.Dialer{
		HandshakeTimeout:  15 * time.Second,
		EnableCompression: true,
		Proxy:             http.ProxyFromEnvironment,
	}

	conn, _, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("ws dial failed: %w", err)
	}
	defer conn.Close()

	auth := map[string]any{
		"action": "auth",
		"key":    s.apiKey,
		"secret": s.apiSecret,
	}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("ws auth write failed: %w", err)
	}

	var authResp streamFrame
	if err := conn.ReadJSON(&authResp); err != nil {
		return fmt.Errorf("ws auth read failed: %w", err)
	}
	if authResp.Data.Status != "" && authResp.Data.Status != "authorized" {
		return fmt.Errorf("ws auth refused: %q", authResp.Data.Status)
	}

	listen := map[string]any{
		"action": "listen",
		"data":   map[string]any{"streams": []string{"trade_updates"}},
	}
	if err := conn.WriteJSON(listen); err != nil {
		return fmt.Errorf("ws listen write failed: %w", err)
	}

	// Unblock ReadMessage when the context is canceled.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ws read failed: %w", err)
		}

		var frame streamFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			logger.WithError(err).Warn("skipping undecodable stream frame")
			continue
		}
		if frame.Stream != "trade_updates" {
			continue
		}

		update := TradeUpdate{
			Event:         frame.Data.Event,
			ClientOrderID: frame.Data.Order.ClientOrderID,
			Symbol:        frame.Data.Order.Symbol,
			Side:          frame.Data.Order.Side,
			At:            time.Now().UTC(),
		}
		if qty, err := strconv.ParseFloat(frame.Data.Qty, 64); err == nil {
			update.FilledQty = qty
		}
		if price, err := strconv.ParseFloat(frame.Data.Price, 64); err == nil {
			update.FilledPrice = price
		}
		if ts, err := time.Parse(time.RFC3339, frame.Data.At); err == nil {
			update.At = ts
		}

		if err := handler(ctx, update); err != nil {
			logger.WithError(err).WithFields(logger.Fields{
				"event":  update.Event,
				"symbol": update.Symbol,
			}).Error("trade update handler failed")
		}
	}
}
