package broker

// Test index:
//  1. TestIsRetryableResp verifies retry decisions for various response codes and errors.
//  2. TestGetAccount checks decoding of the account payload and drawdown derivation.
//  3. TestGetPositions checks decoding and skipping of malformed positions.
//  4. TestGetLastQuote covers the happy path and the quote-unavailable sentinel.
//  5. TestCreateOrder ensures the order endpoint is called with the expected payload.
//  6. TestCreateOrderRejected maps venue refusals onto ErrOrderRejected.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

func newTestClient(baseURL string) *AlpacaClient {
	restyClient := resty.New().SetBaseURL(baseURL)

	return &AlpacaClient{
		http:     restyClient,
		dataHTTP: restyClient,
	}
}

type fakeRoundTripErr struct{}

func (fakeRoundTripErr) Error() string { return "boom" }

func fakeResponse(code int) *resty.Response {
	return &resty.Response{RawResponse: &http.Response{StatusCode: code}}
}

func TestIsRetryableResp(t *testing.T) {
	cases := []struct {
		name string
		resp *resty.Response
		err  error
		want bool
	}{
		{name: "error present", err: fakeRoundTripErr{}, want: true},
		{name: "server error", resp: fakeResponse(500), want: true},
		{name: "too many requests", resp: fakeResponse(429), want: true},
		{name: "timeout", resp: fakeResponse(408), want: true},
		{name: "ok response", resp: fakeResponse(200), want: false},
		{name: "nil resp", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableResp(tc.resp, tc.err); got != tc.want {
				t.Fatalf("isRetryableResp = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGetAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/account" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "ACTIVE",
			"portfolio_value": "100000",
			"buying_power": "200000",
			"equity": "95000",
			"last_equity": "100000"
		}`))
	}))
	defer srv.Close()

	snapshot, err := newTestClient(srv.URL).GetAccount(context.Background())
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}

	if !snapshot.PortfolioValue.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("portfolio value = %s, want 100000", snapshot.PortfolioValue)
	}
	if !snapshot.CurrentDrawdown.Equal(decimal.NewFromFloat(0.05)) {
		t.Fatalf("drawdown = %s, want 0.05", snapshot.CurrentDrawdown)
	}
}

func TestGetAccountGainIsZeroDrawdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "ACTIVE",
			"portfolio_value": "110000",
			"buying_power": "200000",
			"equity": "110000",
			"last_equity": "100000"
		}`))
	}))
	defer srv.Close()

	snapshot, err := newTestClient(srv.URL).GetAccount(context.Background())
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !snapshot.CurrentDrawdown.IsZero() {
		t.Fatalf("drawdown on a gain = %s, want 0", snapshot.CurrentDrawdown)
	}
}

func TestGetPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/positions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"symbol": "SPY", "qty": "10", "avg_entry_price": "420.50"},
			{"symbol": "BAD", "qty": "not-a-number", "avg_entry_price": "1"},
			{"symbol": "AAPL", "qty": "3", "avg_entry_price": "180"}
		]`))
	}))
	defer srv.Close()

	positions, err := newTestClient(srv.URL).GetPositions(context.Background())
	if err != nil {
		t.Fatalf("GetPositions failed: %v", err)
	}

	if len(positions) != 2 {
		t.Fatalf("expected malformed position to be skipped, got %d positions", len(positions))
	}
	if positions[0].Symbol != "SPY" || !positions[0].Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected first position: %+v", positions[0])
	}
}

func TestGetLastQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/stocks/SPY/trades/latest" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol": "SPY", "trade": {"p": 420.69, "t": "2024-01-10T15:04:05Z"}}`))
	}))
	defer srv.Close()

	price, err := newTestClient(srv.URL).GetLastQuote(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("GetLastQuote failed: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(420.69)) {
		t.Fatalf("price = %s, want 420.69", price)
	}
}

func TestGetLastQuoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetLastQuote(context.Background(), "NOPE")
	if !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestCreateOrder(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/orders" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode order body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "ext-1",
			"client_order_id": "cid-1",
			"symbol": "SPY",
			"qty": "4",
			"side": "buy",
			"type": "market",
			"time_in_force": "day",
			"status": "accepted",
			"submitted_at": "2024-01-10T15:04:05Z"
		}`))
	}))
	defer srv.Close()

	order, err := newTestClient(srv.URL).CreateOrder(context.Background(), OrderRequest{
		Symbol:        "SPY",
		Quantity:      4,
		Side:          "buy",
		OrderType:     "market",
		TimeInForce:   "day",
		ClientOrderID: "cid-1",
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if gotBody["symbol"] != "SPY" || gotBody["qty"] != "4" || gotBody["side"] != "buy" {
		t.Fatalf("unexpected order payload: %+v", gotBody)
	}
	if gotBody["client_order_id"] != "cid-1" {
		t.Fatalf("client order id not forwarded: %+v", gotBody)
	}
	if order.Status != "submitted" {
		t.Fatalf("order status = %s, want submitted", order.Status)
	}
	if order.ExternalID != "ext-1" {
		t.Fatalf("external id = %s, want ext-1", order.ExternalID)
	}
}

func TestCreateOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code": 40310000, "message": "insufficient buying power"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateOrder(context.Background(), OrderRequest{
		Symbol: "SPY", Quantity: 1, Side: "buy", OrderType: "market", TimeInForce: "day",
	})
	if !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("expected ErrOrderRejected, got %v", err)
	}
}
