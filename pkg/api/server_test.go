package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/crossbook/pkg/app/spot"
	"github.com/uhyunpark/crossbook/pkg/metrics"
)

type bookJSON struct {
	Instrument string                  `json:"instrument"`
	BuyOrders  map[string][]OrderEntry `json:"buy_orders"`
	SellOrders map[string][]OrderEntry `json:"sell_orders"`
	Trades     []orderbook.Trade       `json:"trades"`
}

type submitJSON struct {
	Status    string            `json:"status"`
	OrderID   string            `json:"order_id"`
	Message   string            `json:"message"`
	Trades    []orderbook.Trade `json:"trades"`
	OrderBook bookJSON          `json:"order_book"`
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	m := metrics.New()
	s := NewServer(spot.NewEngine(spot.WithMetrics(m)), Config{Metrics: m})
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSubmitOrder_PartialFill(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/add_order",
		`{"order_id":"S1","instrument":"spy","side":"sell","price":100.00,"quantity":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[submitJSON](t, rec)
	assert.Equal(t, "success", first.Status)
	assert.Empty(t, first.Trades)
	assert.NotNil(t, first.Trades)

	rec = do(t, h, http.MethodPost, "/api/v1/orders",
		`{"order_id":"B1","instrument":"SPY","side":"BUY","price":"100","quantity":15}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[submitJSON](t, rec)

	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "B1", resp.Trades[0].BuyOrderID)
	assert.Equal(t, "S1", resp.Trades[0].SellOrderID)
	assert.Equal(t, int64(10), resp.Trades[0].Quantity)
	assert.Equal(t, "100", resp.Trades[0].Price.String())

	book := resp.OrderBook
	assert.Equal(t, "SPY", book.Instrument)
	assert.Empty(t, book.SellOrders)
	require.Len(t, book.BuyOrders["100"], 1)
	assert.Equal(t, "B1", book.BuyOrders["100"][0].OrderID)
	assert.Equal(t, int64(5), book.BuyOrders["100"][0].Quantity)
	assert.Greater(t, book.BuyOrders["100"][0].Timestamp, float64(1e9))
	assert.Len(t, book.Trades, 1)
}

func TestSubmitOrder_AssignsUUID(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/v1/orders",
		`{"instrument":"MSFT","side":"SELL","price":50,"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[submitJSON](t, rec)
	_, err := uuid.Parse(resp.OrderID)
	assert.NoError(t, err)
	require.Len(t, resp.OrderBook.SellOrders["50"], 1)
	assert.Equal(t, resp.OrderID, resp.OrderBook.SellOrders["50"][0].OrderID)
}

func TestSubmitOrder_Validation(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"instrument":`},
		{"missing instrument", `{"side":"BUY","price":1,"quantity":1}`},
		{"blank instrument", `{"instrument":"  ","side":"BUY","price":1,"quantity":1}`},
		{"bad instrument", `{"instrument":"S P Y","side":"BUY","price":1,"quantity":1}`},
		{"bad side", `{"instrument":"SPY","side":"HOLD","price":1,"quantity":1}`},
		{"missing price", `{"instrument":"SPY","side":"BUY","quantity":1}`},
		{"zero price", `{"instrument":"SPY","side":"BUY","price":0,"quantity":1}`},
		{"non numeric price", `{"instrument":"SPY","side":"BUY","price":"abc","quantity":1}`},
		{"missing quantity", `{"instrument":"SPY","side":"BUY","price":1}`},
		{"negative quantity", `{"instrument":"SPY","side":"BUY","price":1,"quantity":-4}`},
		{"fractional quantity", `{"instrument":"SPY","side":"BUY","price":1,"quantity":1.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, "error", resp.Status)
			assert.NotEmpty(t, resp.Message)
		})
	}

	rec := do(t, h, http.MethodGet, "/api/v1/orderbook/SPY", "")
	book := decode[struct {
		OrderBook bookJSON `json:"order_book"`
	}](t, rec)
	assert.Empty(t, book.OrderBook.BuyOrders, "rejected orders never rest")
}

func TestGetOrderBook_LevelOrder(t *testing.T) {
	_, h := newTestServer(t)
	for _, body := range []string{
		`{"instrument":"SPY","side":"BUY","price":99,"quantity":1}`,
		`{"instrument":"SPY","side":"BUY","price":101,"quantity":1}`,
		`{"instrument":"SPY","side":"BUY","price":100,"quantity":1}`,
		`{"instrument":"SPY","side":"SELL","price":105,"quantity":1}`,
		`{"instrument":"SPY","side":"SELL","price":103,"quantity":1}`,
	} {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/orders", body).Code)
	}

	rec := do(t, h, http.MethodGet, "/api/order_book/spy", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		OrderBook struct {
			BuyOrders  json.RawMessage `json:"buy_orders"`
			SellOrders json.RawMessage `json:"sell_orders"`
		} `json:"order_book"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))

	bids := string(raw.OrderBook.BuyOrders)
	assert.Less(t, strings.Index(bids, `"101"`), strings.Index(bids, `"100"`))
	assert.Less(t, strings.Index(bids, `"100"`), strings.Index(bids, `"99"`))

	asks := string(raw.OrderBook.SellOrders)
	assert.Less(t, strings.Index(asks, `"103"`), strings.Index(asks, `"105"`))
}

func TestGetOrderBook_UnknownAndInvalid(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/orderbook/AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"status":"success","order_book":{"instrument":"AAPL","buy_orders":{},"sell_orders":{},"trades":[]}}`,
		rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/orderbook/BAD$SYM", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/instruments", "")
	assert.JSONEq(t, `{"status":"success","instruments":[]}`, rec.Body.String())
}

func TestGetTrades(t *testing.T) {
	_, h := newTestServer(t)
	for _, body := range []string{
		`{"order_id":"S1","instrument":"SPY","side":"SELL","price":10,"quantity":1}`,
		`{"order_id":"S2","instrument":"SPY","side":"SELL","price":11,"quantity":1}`,
		`{"order_id":"B1","instrument":"SPY","side":"BUY","price":11,"quantity":2}`,
	} {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/orders", body).Code)
	}

	rec := do(t, h, http.MethodGet, "/api/v1/trades/spy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[TradesResponse](t, rec)
	assert.Equal(t, "SPY", resp.Instrument)
	require.Len(t, resp.Trades, 2)
	assert.Equal(t, "S2", resp.Trades[0].SellOrderID, "newest first")
	assert.Equal(t, "S1", resp.Trades[1].SellOrderID)

	rec = do(t, h, http.MethodGet, "/api/v1/trades/SPY?limit=1", "")
	assert.Len(t, decode[TradesResponse](t, rec).Trades, 1)

	rec = do(t, h, http.MethodGet, "/api/v1/trades/SPY?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/instruments", "")
	assert.Equal(t, []string{"SPY"}, decode[InstrumentsResponse](t, rec).Instruments)
}

func TestGetPriceData(t *testing.T) {
	_, h := newTestServer(t)

	for _, path := range []string{"/api/price_data/spy", "/api/v1/price_data/SPY"} {
		rec := do(t, h, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		resp := decode[PriceDataResponse](t, rec)
		assert.Equal(t, "success", resp.Status)
		assert.Len(t, resp.Labels, len(resp.Prices))
		assert.Equal(t, "09:30", resp.Labels[0])
		assert.Equal(t, 591.03, resp.Prices[0])
	}

	rec := do(t, h, http.MethodGet, "/api/price_data/AAPL", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthMetricsAndCORS(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	do(t, h, http.MethodPost, "/api/v1/orders", `{"instrument":"SPY","side":"BUY","price":1,"quantity":1}`)
	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `crossbook_orders_submitted_total{side="BUY"} 1`)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocket_StreamsBookAndTrades(t *testing.T) {
	s, h := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub().Run(ctx)

	ts := httptest.NewServer(h)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(WSSubscribeRequest{
		Op:       "subscribe",
		Channels: []string{"trades:SPY", "orderbook:SPY"},
	}))

	var msg struct {
		Type    string          `json:"type"`
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "orderbook", msg.Type)
	assert.Equal(t, "orderbook:SPY", msg.Channel)

	post := func(body string) {
		resp, err := http.Post(ts.URL+"/api/v1/orders", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	post(`{"order_id":"S1","instrument":"SPY","side":"SELL","price":10,"quantity":3}`)
	post(`{"order_id":"B1","instrument":"SPY","side":"BUY","price":10,"quantity":3}`)

	for {
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "trades" {
			break
		}
		assert.Equal(t, "orderbook", msg.Type)
	}
	assert.Equal(t, "trades:SPY", msg.Channel)

	var trades []orderbook.Trade
	require.NoError(t, json.Unmarshal(msg.Data, &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, "B1", trades[0].BuyOrderID)
	assert.Equal(t, "S1", trades[0].SellOrderID)
}
