package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

var t0 = time.Date(2025, 5, 29, 9, 30, 0, 0, time.UTC)

func trade(sym orderbook.Symbol, seq uint64, buy, sell string) orderbook.Trade {
	return orderbook.Trade{
		Seq:         seq,
		Instrument:  sym,
		BuyOrderID:  buy,
		SellOrderID: sell,
		Price:       decimal.RequireFromString("589.71"),
		Quantity:    7,
		TakerSide:   orderbook.Buy,
		ExecutedAt:  t0.Add(time.Duration(seq) * time.Second),
	}
}

func buyIDs(ts []orderbook.Trade) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.BuyOrderID
	}
	return out
}

func TestPebbleStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(ctx, "SPY", []orderbook.Trade{trade("SPY", 1, "B1", "S1"), trade("SPY", 2, "B1", "S2")}))
	require.NoError(t, s.Record(ctx, "MSFT", []orderbook.Trade{trade("MSFT", 1, "M1", "N1")}))
	require.NoError(t, s.Record(ctx, "SPY", []orderbook.Trade{trade("SPY", 3, "B2", "S3")}))

	got, err := s.Recent(ctx, "SPY", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "B1", "B1"}, buyIDs(got))

	got, err = s.Recent(ctx, "SPY", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "S3", got[0].SellOrderID)
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("589.71")))
	assert.Equal(t, orderbook.Buy, got[0].TakerSide)
	assert.True(t, got[0].ExecutedAt.Equal(t0.Add(3*time.Second)))

	got, err = s.Recent(ctx, "AAPL", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPebbleStore_LastTracksLatestSubmission(t *testing.T) {
	ctx := context.Background()
	s, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	last, err := s.Last(ctx, "SPY")
	require.NoError(t, err)
	assert.NotNil(t, last)
	assert.Empty(t, last)

	require.NoError(t, s.Record(ctx, "SPY", []orderbook.Trade{trade("SPY", 1, "B1", "S1")}))
	last, err = s.Last(ctx, "SPY")
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, buyIDs(last))

	require.NoError(t, s.Record(ctx, "SPY", nil))
	last, err = s.Last(ctx, "SPY")
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestPebbleStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewPebbleStore(dir)
	require.NoError(t, err)
	// per-book seqs restart at 1 after a restart; history must not overwrite
	require.NoError(t, s.Record(ctx, "SPY", []orderbook.Trade{trade("SPY", 1, "B1", "S1")}))
	require.NoError(t, s.Close())

	s, err = NewPebbleStore(dir)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Record(ctx, "SPY", []orderbook.Trade{trade("SPY", 1, "B9", "S9")}))

	got, err := s.Recent(ctx, "SPY", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"B9", "B1"}, buyIDs(got))
}

func TestPebbleStore_UseAfterCloseReturnsErrClosed(t *testing.T) {
	ctx := context.Background()
	s, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.Record(ctx, "SPY", []orderbook.Trade{trade("SPY", 1, "B1", "S1")})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Recent(ctx, "SPY", 0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Last(ctx, "SPY")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestKeyUpperBound(t *testing.T) {
	assert.Equal(t, []byte("trade:SPY;"), keyUpperBound(tradePrefix("SPY")))
	assert.Less(t, string(tradeKey("SPY", 99)), string(tradeKey("SPY", 100)))
	assert.Less(t, string(tradeKey("SPY", ^uint64(0))), string(keyUpperBound(tradePrefix("SPY"))))
}
