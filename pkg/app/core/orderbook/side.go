package orderbook

import (
	"sort"

	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

const levelTreeDegree = 32

// priceLevel is the FIFO of resting orders at one price, oldest first.
type priceLevel struct {
	price  decimal.Decimal
	orders []*Order
}

func (l *priceLevel) head() *Order { return l.orders[0] }

// bookSide keeps the price levels of one side ordered best-first:
// descending for bids, ascending for asks.
type bookSide struct {
	side   Side
	levels *btree.BTreeG[*priceLevel]
	count  int
}

func newBookSide(side Side) *bookSide {
	less := func(a, b *priceLevel) bool { return a.price.LessThan(b.price) }
	if side == Buy {
		less = func(a, b *priceLevel) bool { return a.price.GreaterThan(b.price) }
	}
	return &bookSide{side: side, levels: btree.NewG(levelTreeDegree, less)}
}

// best returns the level with the best price (highest bid / lowest ask).
func (s *bookSide) best() (*priceLevel, bool) {
	return s.levels.Min()
}

func (s *bookSide) level(price decimal.Decimal) (*priceLevel, bool) {
	return s.levels.Get(&priceLevel{price: price})
}

// add appends o to its price level and keeps the level sorted by timestamp.
// The sort is stable, so equal timestamps keep arrival order.
func (s *bookSide) add(o *Order) {
	lvl, ok := s.level(o.Price)
	if !ok {
		lvl = &priceLevel{price: o.Price}
		s.levels.ReplaceOrInsert(lvl)
	}
	lvl.orders = append(lvl.orders, o)
	sort.SliceStable(lvl.orders, func(i, j int) bool {
		return lvl.orders[i].Timestamp.Before(lvl.orders[j].Timestamp)
	})
	s.count++
}

// popHead removes the filled head of lvl and drops the level once empty.
func (s *bookSide) popHead(lvl *priceLevel) {
	lvl.orders[0] = nil
	lvl.orders = lvl.orders[1:]
	s.count--
	if len(lvl.orders) == 0 {
		s.levels.Delete(lvl)
	}
}

// walk visits levels best-first until fn returns false.
func (s *bookSide) walk(fn func(*priceLevel) bool) {
	s.levels.Ascend(fn)
}

func (s *bookSide) depth() int { return s.levels.Len() }
