// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/keshu12345/crypto-market/gateway"
	"github.com/keshu12345/crypto-market/gateway/mocks"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/orders"
	"github.com/keshu12345/crypto-market/types"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*gateway.Server
	handler     http.Handler
	orders      *mocks.MockOrderService
	depth       *mocks.MockDepthService
	trades      *mocks.MockTradeService
	accounts    *mocks.MockAccountService
	markets     *mocks.MockMarketService
	settlements *mocks.MockSettlementService
}

func getTestServer(t *testing.T, cfg gateway.Config) *testServer {
	t.Helper()
	ctrl := gomock.NewController(t)
	ts := &testServer{
		orders:      mocks.NewMockOrderService(ctrl),
		depth:       mocks.NewMockDepthService(ctrl),
		trades:      mocks.NewMockTradeService(ctrl),
		accounts:    mocks.NewMockAccountService(ctrl),
		markets:     mocks.NewMockMarketService(ctrl),
		settlements: mocks.NewMockSettlementService(ctrl),
	}
	ts.Server = gateway.New(logging.NewTestLogger(), cfg,
		ts.orders, ts.depth, ts.trades, ts.accounts, ts.markets, ts.settlements, nil)
	ts.handler = ts.Handler()
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var e gateway.HTTPError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e.ErrorStr
}

func TestPlaceOrder(t *testing.T) {
	t.Run("json body", testPlaceOrderJSON)
	t.Run("form body", testPlaceOrderForm)
	t.Run("invalid side", testPlaceOrderInvalidSide)
	t.Run("service errors", testPlaceOrderServiceErrors)
}

func testPlaceOrderJSON(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())
	expected := orders.PlaceOrderRequest{
		UserID:   "alice",
		Market:   "SOL-USDC",
		Side:     types.SideBuy,
		Type:     types.OrderTypeLimit,
		Price:    100,
		Quantity: 10,
	}
	order := &types.Order{ID: "o1", Status: types.OrderStatusFilled}
	trades := []types.Trade{{ID: "t1", Price: 100, Quantity: 10}}
	ts.orders.EXPECT().PlaceOrder(gomock.Any(), expected).Times(1).Return(order, trades, nil)

	body := `{"user_id":"alice","market":"SOL-USDC","side":"buy","type":"limit","price":100,"quantity":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp gateway.PlaceOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "o1", resp.OrderID)
	assert.Equal(t, types.OrderStatusFilled, resp.Status)
	assert.Equal(t, trades, resp.Trades)
}

func testPlaceOrderForm(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())
	expected := orders.PlaceOrderRequest{
		UserID:   "bob",
		Market:   "SOL-USDC",
		Side:     types.SideSell,
		Type:     types.OrderTypeMarket,
		Quantity: 3,
	}
	ts.orders.EXPECT().PlaceOrder(gomock.Any(), expected).Times(1).
		Return(&types.Order{ID: "o2", Status: types.OrderStatusCancelled}, nil, nil)

	form := url.Values{}
	form.Set("user_id", "bob")
	form.Set("market", "SOL-USDC")
	form.Set("side", "sell")
	form.Set("type", "market")
	form.Set("quantity", "3")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"trades":[]`)
}

func testPlaceOrderInvalidSide(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())
	body := `{"user_id":"alice","market":"SOL-USDC","side":"up","price":100,"quantity":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, types.ErrInvalidSide.Error(), errorBody(t, w))
}

func testPlaceOrderServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{err: types.ErrInsufficientFunds, status: http.StatusBadRequest, body: "insufficient funds"},
		{err: types.ErrPriceNotOnTick, status: http.StatusBadRequest, body: types.ErrPriceNotOnTick.Error()},
		{err: types.ErrMarketNotFound, status: http.StatusNotFound, body: "market not found"},
		{err: context.DeadlineExceeded, status: http.StatusServiceUnavailable, body: context.DeadlineExceeded.Error()},
		{err: errors.New("connection refused"), status: http.StatusInternalServerError, body: "internal error"},
	}
	for _, c := range cases {
		t.Run(c.err.Error(), func(t *testing.T) {
			ts := getTestServer(t, gateway.NewDefaultConfig())
			ts.orders.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Times(1).Return(nil, nil, c.err)

			body := `{"user_id":"alice","market":"SOL-USDC","side":"buy","price":100,"quantity":10}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := ts.do(req)
			assert.Equal(t, c.status, w.Code)
			assert.Equal(t, c.body, errorBody(t, w))
		})
	}
}

func TestCancelOrder(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/orders/o1", nil)
	w := ts.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ts.orders.EXPECT().CancelOrder(gomock.Any(), "o1", "mallory").Times(1).Return(nil, types.ErrOrderNotOwned)
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/orders/o1", nil)
	req.Header.Set(gateway.UserIDHeader, "mallory")
	w = ts.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	ts.orders.EXPECT().CancelOrder(gomock.Any(), "o1", "alice").Times(1).
		Return(&types.Order{ID: "o1", Status: types.OrderStatusCancelled}, nil)
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/orders/o1", nil)
	req.Header.Set(gateway.UserIDHeader, "alice")
	w = ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	var o types.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, types.OrderStatusCancelled, o.Status)
}

func TestUserOrders(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())
	ts.orders.EXPECT().GetUserOrders(gomock.Any(), "alice").Times(1).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set(gateway.UserIDHeader, "alice")
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestOrderBook(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())
	snap := types.OrderBookSnapshot{
		Market: "SOL-USDC",
		Bids:   []types.PriceLevel{{Price: 99, TotalQuantity: 3, OrderCount: 1}},
		Asks:   []types.PriceLevel{},
	}
	ts.depth.EXPECT().ClampDepth(0).Times(1).Return(20)
	ts.depth.EXPECT().Get(gomock.Any(), "SOL-USDC", 20).Times(1).Return(snap, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/orderbook/SOL-USDC", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got types.OrderBookSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, snap.Bids, got.Bids)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/orderbook/SOL-USDC?depth=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.depth.EXPECT().ClampDepth(5).Times(1).Return(5)
	ts.depth.EXPECT().Get(gomock.Any(), "DOGE-USDC", 5).Times(1).Return(types.OrderBookSnapshot{}, types.ErrInvalidMarketID)
	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/orderbook/DOGE-USDC?depth=5", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrades(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())
	ts.trades.EXPECT().ClampLimit(5000).Times(1).Return(1000)
	ts.trades.EXPECT().Recent(gomock.Any(), "SOL-USDC", 1000).Times(1).Return([]types.Trade{{ID: "t1"}}, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/trades/SOL-USDC?limit=5000", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got []types.Trade
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/trades/SOL-USDC?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBalance(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())
	ts.accounts.EXPECT().Balance(gomock.Any(), "alice", "USDC").Times(1).
		Return(types.Balance{UserID: "alice", Asset: "USDC", Available: 10, Locked: 5}, nil)
	ts.accounts.EXPECT().Balances(gomock.Any(), "alice").Times(1).
		Return([]types.Balance{{UserID: "alice", Asset: "USDC"}, {UserID: "alice", Asset: "SOL"}}, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/balance?asset=USDC", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var bal types.Balance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bal))
	assert.Equal(t, uint64(10), bal.Available)
	assert.Equal(t, uint64(5), bal.Locked)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/balance", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var bals []types.Balance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bals))
	assert.Len(t, bals, 2)
}

func TestMarketsAndSettlements(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())
	ts.markets.EXPECT().List(gomock.Any()).Times(1).Return([]types.Market{{Symbol: "SOL-USDC"}}, nil)
	ts.settlements.EXPECT().Status(gomock.Any(), "s1").Times(1).
		Return(types.Settlement{ID: "s1", Status: types.SettlementStatusPending}, nil)
	ts.settlements.EXPECT().Status(gomock.Any(), "s2").Times(1).
		Return(types.Settlement{}, types.ErrSettlementNotFound)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/markets", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"symbol":"SOL-USDC"`)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/settlements/s1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/settlements/s2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFaucet(t *testing.T) {
	mint := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/faucet/mint", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	t.Run("disabled by default", func(t *testing.T) {
		ts := getTestServer(t, gateway.NewDefaultConfig())
		w := ts.do(mint(`{"user_id":"alice","asset":"USDC","amount":10}`))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := gateway.NewDefaultConfig()
		cfg.Faucet.Enabled = true
		cfg.Faucet.MaxAmount = 100
		ts := getTestServer(t, cfg)
		ts.accounts.EXPECT().Deposit(gomock.Any(), "alice", "USDC", uint64(10)).Times(1).Return(nil)

		w := ts.do(mint(`{"user_id":"alice","asset":"USDC","amount":10}`))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())

		w = ts.do(mint(`{"user_id":"alice","asset":"USDC","amount":1000}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = ts.do(mint(`{"asset":"USDC","amount":1}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAPIKey(t *testing.T) {
	cfg := gateway.NewDefaultConfig()
	cfg.APIKeys = []string{"secret-key"}
	ts := getTestServer(t, cfg)
	ts.markets.EXPECT().List(gomock.Any()).Times(2).Return(nil, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/markets", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/markets", nil)
	req.Header.Set(gateway.APIKeyHeader, "wrong")
	w = ts.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/markets", nil)
	req.Header.Set(gateway.APIKeyHeader, "secret-key")
	w = ts.do(req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/markets?api_key=secret-key", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := gateway.NewDefaultConfig()
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	ts := getTestServer(t, cfg)
	ts.markets.EXPECT().List(gomock.Any()).Times(2).Return(nil, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/markets", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/markets", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "too many requests", errorBody(t, w))

	// each remote address has its own budget
	req := httptest.NewRequest(http.MethodGet, "/api/v1/markets", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	w = ts.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartAndStop(t *testing.T) {
	cfg := gateway.NewDefaultConfig()
	cfg.IP = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout.Duration = time.Second
	ts := getTestServer(t, cfg)

	// stopping a server that never started is a no-op
	ts.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not stop")
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := getTestServer(t, gateway.NewDefaultConfig())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := ts.do(req)
	assert.Less(t, w.Code, 300)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAllowedOrigin(t *testing.T) {
	allowed := gateway.AllowedOrigin([]string{"https://app.example.com"})
	assert.True(t, allowed("https://app.example.com"))
	assert.True(t, allowed("http://app.example.com"))
	assert.False(t, allowed("https://evil.example.com"))
	assert.True(t, gateway.AllowedOrigin(nil)("https://anything.example.com"))
}
