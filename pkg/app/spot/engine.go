package spot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/crossbook/pkg/app/core/history"
	"github.com/uhyunpark/crossbook/pkg/app/core/market"
	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/crossbook/pkg/metrics"
	"github.com/uhyunpark/crossbook/pkg/util"
)

// TradeHook is called after every accepted submission, outside any book lock,
// with the trades it produced (possibly none).
type TradeHook func(ctx context.Context, sym orderbook.Symbol, trades []orderbook.Trade)

// Engine is the matching engine: it owns one order book per instrument.
type Engine struct {
	books   *market.Registry
	clock   util.Clock
	history history.Recorder
	metrics *metrics.Metrics
	log     *zap.SugaredLogger

	// commits serialises place-then-record per instrument so the history
	// sees submissions in execution order. Symbol -> *sync.Mutex.
	commits sync.Map

	hooksMu sync.RWMutex
	hooks   []TradeHook
}

type Option func(*Engine)

func WithClock(c util.Clock) Option { return func(e *Engine) { e.clock = c } }

func WithHistory(h history.Recorder) Option { return func(e *Engine) { e.history = h } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithLogger(l *zap.SugaredLogger) Option { return func(e *Engine) { e.log = l } }

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		books:   market.NewRegistry(),
		clock:   util.RealClock{},
		history: history.NewMemory(history.DefaultLimit),
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnTrades registers a hook run after every accepted submission.
func (e *Engine) OnTrades(h TradeHook) {
	e.hooksMu.Lock()
	e.hooks = append(e.hooks, h)
	e.hooksMu.Unlock()
}

// Submit matches o against its instrument's book and returns exactly the
// trades this submission produced. The unfilled remainder rests in the book.
// o is copied; the caller's value is never mutated.
func (e *Engine) Submit(ctx context.Context, o orderbook.Order) ([]orderbook.Trade, error) {
	trades, _, err := e.submit(ctx, o, false)
	return trades, err
}

// SubmitAndSnapshot is Submit that also returns the book exactly as this
// submission left it, with Trades set to the trades it produced.
func (e *Engine) SubmitAndSnapshot(ctx context.Context, o orderbook.Order) ([]orderbook.Trade, orderbook.BookState, error) {
	return e.submit(ctx, o, true)
}

func (e *Engine) commitLock(sym orderbook.Symbol) *sync.Mutex {
	if mu, ok := e.commits.Load(sym); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := e.commits.LoadOrStore(sym, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (e *Engine) submit(ctx context.Context, o orderbook.Order, withState bool) ([]orderbook.Trade, orderbook.BookState, error) {
	var state orderbook.BookState
	start := e.clock.Now()

	sym, err := orderbook.ParseSymbol(string(o.Instrument))
	if err != nil {
		return nil, state, e.reject(o, err)
	}
	o.Instrument = sym
	if o.Timestamp.IsZero() {
		o.Timestamp = start
	}
	if err := o.Validate(); err != nil {
		return nil, state, e.reject(o, err)
	}

	book := e.books.GetOrCreate(sym)
	commit := e.commitLock(sym)
	commit.Lock()
	resting := o
	trades, err := book.Place(&resting, e.clock.Now())
	if err != nil {
		commit.Unlock()
		return nil, state, e.reject(o, err)
	}
	if e.history != nil {
		if err := e.history.Record(ctx, sym, trades); err != nil {
			e.log.Errorw("history_record_failed", "instrument", sym, "err", err)
		}
	}
	if withState {
		state = book.Snapshot()
		state.Trades = append([]orderbook.Trade{}, trades...)
	}
	commit.Unlock()

	var filled int64
	for _, t := range trades {
		filled += t.Quantity
	}
	e.metrics.ObserveSubmit(o.Side.String(), len(trades), filled, e.clock.Now().Sub(start))
	e.log.Debugw("order_submitted",
		"order_id", o.ID,
		"instrument", sym,
		"side", o.Side,
		"price", o.Price.String(),
		"qty", o.Quantity,
		"trades", len(trades),
		"filled", filled,
		"resting", resting.Quantity)

	e.hooksMu.RLock()
	hooks := e.hooks
	e.hooksMu.RUnlock()
	for _, h := range hooks {
		h(ctx, sym, trades)
	}

	return trades, state, nil
}

func (e *Engine) reject(o orderbook.Order, err error) error {
	reason := "invalid_order"
	switch {
	case errors.Is(err, orderbook.ErrInvalidSide):
		reason = "invalid_side"
	case errors.Is(err, orderbook.ErrInvalidInstrument):
		reason = "invalid_instrument"
	}
	e.metrics.ObserveReject(reason)
	e.log.Infow("order_rejected", "order_id", o.ID, "instrument", o.Instrument, "reason", reason, "err", err)
	return err
}

// Snapshot returns the current book of instrument together with the trades
// of its most recent submission. Unknown or malformed instruments yield an
// empty book; no book is created. The book and the trades are read at the
// same point between two submissions.
func (e *Engine) Snapshot(ctx context.Context, instrument string) orderbook.BookState {
	sym, err := orderbook.ParseSymbol(instrument)
	if err != nil {
		return orderbook.EmptyBookState(orderbook.Symbol(strings.ToUpper(strings.TrimSpace(instrument))))
	}

	state := orderbook.EmptyBookState(sym)
	if book, ok := e.books.Lookup(sym); ok {
		commit := e.commitLock(sym)
		commit.Lock()
		defer commit.Unlock()
		state = book.Snapshot()
	}
	if e.history != nil {
		last, err := e.history.Last(ctx, sym)
		if err != nil {
			e.log.Warnw("history_last_failed", "instrument", sym, "err", err)
		} else if last != nil {
			state.Trades = last
		}
	}
	return state
}

// RecentTrades returns up to limit trades for instrument, newest first.
func (e *Engine) RecentTrades(ctx context.Context, instrument string, limit int) ([]orderbook.Trade, error) {
	sym, err := orderbook.ParseSymbol(instrument)
	if err != nil {
		return nil, err
	}
	if e.history == nil {
		return []orderbook.Trade{}, nil
	}
	return e.history.Recent(ctx, sym, limit)
}

// Instruments lists every instrument with a book, sorted.
func (e *Engine) Instruments() []orderbook.Symbol {
	return e.books.Symbols()
}
