package api

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

// API request and response types for REST endpoints and WebSocket messages

// ==============================
// REST Request Types
// ==============================

// SubmitOrderRequest is the payload for POST /api/v1/orders.
// Price and quantity accept JSON numbers or numeric strings.
type SubmitOrderRequest struct {
	OrderID    string           `json:"order_id"`   // optional, a UUID is assigned when empty
	Instrument string           `json:"instrument"` // e.g., "SPY"
	Side       string           `json:"side"`       // "BUY" or "SELL", any case
	Price      *decimal.Decimal `json:"price"`
	Quantity   *decimal.Decimal `json:"quantity"` // whole units
}

// toOrder validates the request and builds the order to submit. The
// timestamp is left zero so the engine stamps it.
func (r SubmitOrderRequest) toOrder() (orderbook.Order, error) {
	if strings.TrimSpace(r.Instrument) == "" {
		return orderbook.Order{}, fmt.Errorf("%w: instrument is required", orderbook.ErrInvalidInstrument)
	}
	sym, err := orderbook.ParseSymbol(r.Instrument)
	if err != nil {
		return orderbook.Order{}, err
	}
	side, err := orderbook.ParseSide(r.Side)
	if err != nil {
		return orderbook.Order{}, err
	}

	switch {
	case r.Price == nil:
		return orderbook.Order{}, fmt.Errorf("%w: price is required", orderbook.ErrInvalidOrder)
	case !r.Price.IsPositive():
		return orderbook.Order{}, fmt.Errorf("%w: price must be positive", orderbook.ErrInvalidOrder)
	}

	switch {
	case r.Quantity == nil:
		return orderbook.Order{}, fmt.Errorf("%w: quantity is required", orderbook.ErrInvalidOrder)
	case !r.Quantity.IsPositive():
		return orderbook.Order{}, fmt.Errorf("%w: quantity must be positive", orderbook.ErrInvalidOrder)
	case !r.Quantity.IsInteger():
		return orderbook.Order{}, fmt.Errorf("%w: quantity must be a whole number", orderbook.ErrInvalidOrder)
	case r.Quantity.GreaterThan(decimal.NewFromInt(math.MaxInt64)):
		return orderbook.Order{}, fmt.Errorf("%w: quantity too large", orderbook.ErrInvalidOrder)
	}

	id := strings.TrimSpace(r.OrderID)
	if id == "" {
		id = uuid.NewString()
	}
	return orderbook.Order{
		ID:         id,
		Instrument: sym,
		Side:       side,
		Price:      *r.Price,
		Quantity:   r.Quantity.IntPart(),
	}, nil
}

// ==============================
// REST Response Types
// ==============================

// OrderEntry is one resting order inside a price level
type OrderEntry struct {
	OrderID   string  `json:"order_id"`
	Quantity  int64   `json:"quantity"`
	Timestamp float64 `json:"timestamp"` // Unix seconds
}

type levelMap = orderedmap.OrderedMap[string, []OrderEntry]

// BookView is the JSON shape of one instrument's book. Price keys keep book
// order: bids high to low, asks low to high.
type BookView struct {
	Instrument string            `json:"instrument"`
	BuyOrders  *levelMap         `json:"buy_orders"`
	SellOrders *levelMap         `json:"sell_orders"`
	Trades     []orderbook.Trade `json:"trades"` // trades of the latest submission
}

func newBookView(state orderbook.BookState) BookView {
	trades := state.Trades
	if trades == nil {
		trades = []orderbook.Trade{}
	}
	return BookView{
		Instrument: state.Instrument.String(),
		BuyOrders:  levelsToMap(state.Bids),
		SellOrders: levelsToMap(state.Asks),
		Trades:     trades,
	}
}

func levelsToMap(levels []orderbook.Level) *levelMap {
	m := orderedmap.New[string, []OrderEntry]()
	for _, lvl := range levels {
		entries := make([]OrderEntry, len(lvl.Entries))
		for i, e := range lvl.Entries {
			entries[i] = OrderEntry{
				OrderID:   e.OrderID,
				Quantity:  e.Quantity,
				Timestamp: unixSeconds(e.Timestamp),
			}
		}
		m.Set(lvl.Price.String(), entries)
	}
	return m
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// SubmitOrderResponse is the response from order submission.
// OrderBook is the book as this submission left it; later submissions are not reflected.
type SubmitOrderResponse struct {
	Status    string            `json:"status"` // "success"
	OrderID   string            `json:"order_id"`
	Trades    []orderbook.Trade `json:"trades"`
	OrderBook BookView          `json:"order_book"`
}

type OrderBookResponse struct {
	Status    string   `json:"status"`
	OrderBook BookView `json:"order_book"`
}

type TradesResponse struct {
	Status     string            `json:"status"`
	Instrument string            `json:"instrument"`
	Trades     []orderbook.Trade `json:"trades"` // newest first
}

type InstrumentsResponse struct {
	Status      string   `json:"status"`
	Instruments []string `json:"instruments"`
}

// PriceDataResponse carries a sample price series for charting
type PriceDataResponse struct {
	Status string    `json:"status"`
	Labels []string  `json:"labels"`
	Prices []float64 `json:"prices"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Status  string `json:"status"` // "error"
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["orderbook:SPY", "trades:SPY"]
}

// WSMessage wraps every message pushed to clients
type WSMessage struct {
	Type    string `json:"type"` // "orderbook" or "trades"
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

const (
	channelOrderbook = "orderbook:"
	channelTrades    = "trades:"
)
