package orderbook

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OrderBook holds the resting bids and asks of a single instrument.
type OrderBook struct {
	mu sync.RWMutex // Place takes the write lock for the whole match-and-rest step

	symbol Symbol
	bids   *bookSide
	asks   *bookSide

	seq       uint64          // trade sequence within this book
	lastPrice decimal.Decimal // most recent fill price
	traded    bool
}

func NewOrderBook(symbol Symbol) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newBookSide(Buy),
		asks:   newBookSide(Sell),
	}
}

func (ob *OrderBook) Symbol() Symbol { return ob.symbol }

// Place matches o against the opposite side by price-time priority and rests
// whatever is left at o's limit price. Trades are returned in execution order
// and are priced at the resting order's limit. The book takes ownership of o.
func (ob *OrderBook) Place(o *Order, now time.Time) ([]Trade, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if o.Instrument != ob.symbol {
		return nil, fmt.Errorf("%w: %s order placed on %s book", ErrInvalidInstrument, o.Instrument, ob.symbol)
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	var trades []Trade
	if o.Side == Buy {
		trades = ob.match(o, ob.asks, now)
		if o.Quantity > 0 {
			ob.bids.add(o)
		}
	} else {
		trades = ob.match(o, ob.bids, now)
		if o.Quantity > 0 {
			ob.asks.add(o)
		}
	}
	return trades, nil
}

// match walks the makers side best level first, oldest order first, until the
// taker is filled or no level crosses its limit.
func (ob *OrderBook) match(taker *Order, makers *bookSide, now time.Time) []Trade {
	var trades []Trade
	for taker.Quantity > 0 {
		lvl, ok := makers.best()
		if !ok || !taker.crosses(lvl.price) {
			break
		}
		maker := lvl.head()
		qty := min(taker.Quantity, maker.Quantity)
		taker.Quantity -= qty
		maker.Quantity -= qty

		ob.seq++
		trades = append(trades, newTrade(ob.seq, taker, maker, qty, now))
		ob.lastPrice = maker.Price
		ob.traded = true

		if maker.Quantity == 0 {
			makers.popHead(lvl)
		}
	}
	return trades
}

// BestBid returns the highest resting bid price.
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	lvl, ok := ob.bids.best()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// BestAsk returns the lowest resting ask price.
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	lvl, ok := ob.asks.best()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// LastPrice returns the price of the most recent fill, if any.
func (ob *OrderBook) LastPrice() (decimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.lastPrice, ob.traded
}

// RestingOrders returns the number of resting orders on each side.
func (ob *OrderBook) RestingOrders() (bids, asks int) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bids.count, ob.asks.count
}
