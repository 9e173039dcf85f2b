package storage

import (
	"fmt"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

// Key schema for Pebble storage:
//
//   trade:<symbol>:<seq>  → Trade (JSON), seq zero-padded to 20 digits
//   last:<symbol>         → []Trade of the latest submission (JSON)
//   seq                   → last assigned storage sequence (8-byte big endian)
//
// The storage sequence is global and survives restarts, unlike the per-book
// trade seq which starts from 1 whenever a book is created.

const (
	prefixTrade = "trade:"
	prefixLast  = "last:"
)

func kSeq() []byte { return []byte("seq") }

// tradeKey returns the key for a trade
// Format: "trade:{symbol}:{seq}"
func tradeKey(sym orderbook.Symbol, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixTrade, sym, seq))
}

// tradePrefix returns the prefix for all trades of a symbol
// Format: "trade:{symbol}:"
func tradePrefix(sym orderbook.Symbol) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixTrade, sym))
}

func lastKey(sym orderbook.Symbol) []byte {
	return []byte(prefixLast + string(sym))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
