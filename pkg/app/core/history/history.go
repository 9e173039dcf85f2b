// Package history keeps executed trades outside the order books.
//
// Books only hand trades back to the submitter; anything that wants to show
// past trades (the API, the book view's "last trades") reads them from a
// Recorder fed by the engine after every submission.
package history

import (
	"context"
	"sync"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

const DefaultLimit = 1000

// Recorder stores trades per instrument.
type Recorder interface {
	// Record stores the trades of one submission. An empty slice still
	// replaces the instrument's latest-submission trades.
	Record(ctx context.Context, sym orderbook.Symbol, trades []orderbook.Trade) error
	// Recent returns up to limit trades, newest first.
	Recent(ctx context.Context, sym orderbook.Symbol, limit int) ([]orderbook.Trade, error)
	// Last returns the trades of the most recent submission for sym.
	Last(ctx context.Context, sym orderbook.Symbol) ([]orderbook.Trade, error)
}

// Memory is a Recorder that keeps a bounded ring of trades per instrument.
type Memory struct {
	mu     sync.RWMutex
	limit  int
	trades map[orderbook.Symbol][]orderbook.Trade // oldest first, at most limit
	last   map[orderbook.Symbol][]orderbook.Trade
}

func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Memory{
		limit:  limit,
		trades: make(map[orderbook.Symbol][]orderbook.Trade),
		last:   make(map[orderbook.Symbol][]orderbook.Trade),
	}
}

func (m *Memory) Record(_ context.Context, sym orderbook.Symbol, trades []orderbook.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last[sym] = append([]orderbook.Trade(nil), trades...)

	buf := append(m.trades[sym], trades...)
	if over := len(buf) - m.limit; over > 0 {
		buf = append([]orderbook.Trade(nil), buf[over:]...)
	}
	m.trades[sym] = buf
	return nil
}

func (m *Memory) Recent(_ context.Context, sym orderbook.Symbol, limit int) ([]orderbook.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	buf := m.trades[sym]
	if limit <= 0 || limit > len(buf) {
		limit = len(buf)
	}
	out := make([]orderbook.Trade, 0, limit)
	for i := len(buf) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, buf[i])
	}
	return out, nil
}

func (m *Memory) Last(_ context.Context, sym orderbook.Symbol) ([]orderbook.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]orderbook.Trade{}, m.last[sym]...), nil
}

var _ Recorder = (*Memory)(nil)
