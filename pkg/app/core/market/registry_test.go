package market

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

func TestRegistry_GetOrCreateIsLazy(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup("SPY")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	ob := r.GetOrCreate("SPY")
	require.NotNil(t, ob)
	assert.Equal(t, orderbook.Symbol("SPY"), ob.Symbol())
	assert.Same(t, ob, r.GetOrCreate("SPY"))

	got, ok := r.Lookup("SPY")
	assert.True(t, ok)
	assert.Same(t, ob, got)
}

func TestRegistry_SymbolsSorted(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("SPY")
	r.GetOrCreate("AAPL")
	r.GetOrCreate("MSFT")

	assert.Equal(t, []orderbook.Symbol{"AAPL", "MSFT", "SPY"}, r.Symbols())
}

func TestRegistry_ConcurrentCreateYieldsOneBook(t *testing.T) {
	r := NewRegistry()

	const n = 32
	books := make([]*orderbook.OrderBook, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			books[i] = r.GetOrCreate("MSFT")
		}(i)
	}
	wg.Wait()

	for _, ob := range books {
		assert.Same(t, books[0], ob)
	}
	assert.Equal(t, 1, r.Len())
}
