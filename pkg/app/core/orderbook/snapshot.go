package orderbook

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// LevelEntry is one resting order as seen from outside the book.
type LevelEntry struct {
	OrderID   string
	Quantity  int64
	Timestamp time.Time
}

type Level struct {
	Price   decimal.Decimal
	Entries []LevelEntry // queue order, oldest first
}

// TotalQuantity sums the level's resting quantity, saturating at math.MaxInt64.
func (l Level) TotalQuantity() int64 {
	var total int64
	for _, e := range l.Entries {
		if e.Quantity > math.MaxInt64-total {
			return math.MaxInt64
		}
		total += e.Quantity
	}
	return total
}

// BookState is a read-only copy of one instrument's book.
// Bids are sorted high to low, asks low to high.
type BookState struct {
	Instrument Symbol
	Bids       []Level
	Asks       []Level
	Trades     []Trade // trades of the latest submission, filled in by the engine
}

func EmptyBookState(sym Symbol) BookState {
	return BookState{
		Instrument: sym,
		Bids:       []Level{},
		Asks:       []Level{},
		Trades:     []Trade{},
	}
}

// Snapshot copies the current levels. It never mutates the book.
func (ob *OrderBook) Snapshot() BookState {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	state := EmptyBookState(ob.symbol)
	state.Bids = project(ob.bids)
	state.Asks = project(ob.asks)
	return state
}

func project(s *bookSide) []Level {
	levels := make([]Level, 0, s.depth())
	s.walk(func(lvl *priceLevel) bool {
		entries := make([]LevelEntry, len(lvl.orders))
		for i, o := range lvl.orders {
			entries[i] = LevelEntry{OrderID: o.ID, Quantity: o.Quantity, Timestamp: o.Timestamp}
		}
		levels = append(levels, Level{Price: lvl.price, Entries: entries})
		return true
	})
	return levels
}
