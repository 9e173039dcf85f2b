package spot

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

// OrderGenerator creates random limit orders around the sample prices of an
// instrument. It is safe for concurrent use.
type OrderGenerator struct {
	mu     sync.Mutex
	prefix string
	rng    *rand.Rand
	next   map[orderbook.Symbol]int // per-instrument order counter
}

// NewOrderGenerator creates a generator whose ids look like "{prefix}{SYM}_{n}".
// A zero seed uses the current time.
func NewOrderGenerator(seed int64, prefix string) *OrderGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &OrderGenerator{
		prefix: prefix,
		rng:    rand.New(rand.NewSource(seed)),
		next:   make(map[orderbook.Symbol]int),
	}
}

// Next creates one random order for sym: a sample price +-0.5 rounded to
// cents, a random side and a quantity in [1, 100]. The timestamp is left zero
// so the engine stamps it on arrival.
func (g *OrderGenerator) Next(sym orderbook.Symbol) (orderbook.Order, error) {
	series, ok := PriceSamples[sym]
	if !ok || series.Len() == 0 {
		return orderbook.Order{}, fmt.Errorf("no price samples for %s", sym)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	base := series.Prices[g.rng.Intn(series.Len())]
	price := decimal.NewFromFloat(base + g.rng.Float64() - 0.5).Round(2)

	// Random side: 50% BUY, 50% SELL
	side := orderbook.Buy
	if g.rng.Intn(2) == 1 {
		side = orderbook.Sell
	}
	qty := int64(g.rng.Intn(100) + 1)

	g.next[sym]++
	return orderbook.Order{
		ID:         fmt.Sprintf("%s%s_%d", g.prefix, sym, g.next[sym]),
		Instrument: sym,
		Side:       side,
		Price:      price,
		Quantity:   qty,
	}, nil
}

// Batch creates n orders for sym.
func (g *OrderGenerator) Batch(sym orderbook.Symbol, n int) ([]orderbook.Order, error) {
	batch := make([]orderbook.Order, 0, n)
	for i := 0; i < n; i++ {
		o, err := g.Next(sym)
		if err != nil {
			return nil, err
		}
		batch = append(batch, o)
	}
	return batch, nil
}
