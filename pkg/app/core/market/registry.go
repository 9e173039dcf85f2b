package market

import (
	"sort"
	"sync"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

// Registry maps instrument symbols to their order books in a thread-safe manner.
// Books are created on first use and never removed.
type Registry struct {
	mu    sync.RWMutex
	books map[orderbook.Symbol]*orderbook.OrderBook
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		books: make(map[orderbook.Symbol]*orderbook.OrderBook),
	}
}

// GetOrCreate returns the book for sym, creating it if this is the first reference
func (r *Registry) GetOrCreate(sym orderbook.Symbol) *orderbook.OrderBook {
	r.mu.RLock()
	ob, ok := r.books[sym]
	r.mu.RUnlock()
	if ok {
		return ob
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another caller may have won the race
	if ob, ok := r.books[sym]; ok {
		return ob
	}
	ob = orderbook.NewOrderBook(sym)
	r.books[sym] = ob
	return ob
}

// Lookup returns the book for sym without creating one
func (r *Registry) Lookup(sym orderbook.Symbol) (*orderbook.OrderBook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ob, ok := r.books[sym]
	return ob, ok
}

// Symbols lists every instrument that has a book, sorted
func (r *Registry) Symbols() []orderbook.Symbol {
	r.mu.RLock()
	defer r.mu.RUnlock()

	symbols := make([]orderbook.Symbol, 0, len(r.books))
	for sym := range r.books {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.books)
}
