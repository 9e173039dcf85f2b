// Package storage persists trade history in Pebble.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/crossbook/pkg/app/core/history"
	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

// ErrClosed is returned by reads and writes after Close.
var ErrClosed = errors.New("storage: store is closed")

// PebbleStore is a history.Recorder backed by a Pebble database.
type PebbleStore struct {
	db *pebble.DB

	mu     sync.Mutex // serializes writers; guards seq
	seq    uint64
	closed atomic.Bool // set under mu
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	s := &PebbleStore{db: db}

	val, closer, err := db.Get(kSeq())
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	default:
		s.seq, err = decodeSeq(val)
		closer.Close()
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close waits for an in-flight Record and closes the database. It is safe to
// call more than once.
func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Record appends trades and replaces the latest-submission list of sym in
// one batch.
func (s *PebbleStore) Record(_ context.Context, sym orderbook.Symbol, trades []orderbook.Trade) error {
	if trades == nil {
		trades = []orderbook.Trade{}
	}
	last, err := json.Marshal(trades)
	if err != nil {
		return fmt.Errorf("failed to marshal trades: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}

	b := s.db.NewBatch()
	defer b.Close()

	seq := s.seq
	for _, t := range trades {
		data, err := encodeTrade(t)
		if err != nil {
			return err
		}
		seq++
		if err := b.Set(tradeKey(sym, seq), data, nil); err != nil {
			return fmt.Errorf("failed to save trade: %w", err)
		}
	}
	if err := b.Set(lastKey(sym), last, nil); err != nil {
		return fmt.Errorf("failed to save last trades: %w", err)
	}
	if seq != s.seq {
		if err := b.Set(kSeq(), encodeSeq(seq), nil); err != nil {
			return fmt.Errorf("failed to save sequence: %w", err)
		}
	}

	if err := b.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("failed to commit trades: %w", err)
	}
	s.seq = seq
	return nil
}

// Recent loads the most recent trades for sym, newest first. A limit of
// zero or less returns all of them.
func (s *PebbleStore) Recent(_ context.Context, sym orderbook.Symbol, limit int) ([]orderbook.Trade, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	prefix := tradePrefix(sym)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open trade iterator: %w", err)
	}
	defer iter.Close()

	trades := []orderbook.Trade{}
	for iter.Last(); iter.Valid() && (limit <= 0 || len(trades) < limit); iter.Prev() {
		t, err := decodeTrade(iter.Value())
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}
	return trades, nil
}

// Last returns the trades of the latest submission for sym. Returns an empty
// slice if nothing was recorded.
func (s *PebbleStore) Last(_ context.Context, sym orderbook.Symbol) ([]orderbook.Trade, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	data, closer, err := s.db.Get(lastKey(sym))
	if errors.Is(err, pebble.ErrNotFound) {
		return []orderbook.Trade{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last trades: %w", err)
	}
	defer closer.Close()

	trades := []orderbook.Trade{}
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("failed to unmarshal last trades: %w", err)
	}
	return trades, nil
}

var _ history.Recorder = (*PebbleStore)(nil)
