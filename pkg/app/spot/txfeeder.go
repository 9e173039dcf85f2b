package spot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

// FeederConfig controls background order generation
type FeederConfig struct {
	Interval  time.Duration      // how often to submit a batch
	BatchSize int                // orders per instrument per tick
	Symbols   []orderbook.Symbol // instruments to trade
	Seed      int64              // zero seeds from the clock
}

// DefaultFeederConfig returns a gentle demo load
func DefaultFeederConfig() FeederConfig {
	return FeederConfig{
		Interval:  time.Second,
		BatchSize: 5,
		Symbols:   []orderbook.Symbol{"SPY", "MSFT"},
	}
}

// SeedInitialOrders submits perInstrument random orders to every symbol,
// with ids "INIT_{SYM}_{n}". It returns the number of orders accepted.
func SeedInitialOrders(ctx context.Context, e *Engine, symbols []orderbook.Symbol, perInstrument int, seed int64, log *zap.SugaredLogger) (int, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	gen := NewOrderGenerator(seed, "INIT_")

	accepted := 0
	for _, sym := range symbols {
		batch, err := gen.Batch(sym, perInstrument)
		if err != nil {
			return accepted, err
		}
		trades := 0
		for _, o := range batch {
			ts, err := e.Submit(ctx, o)
			if err != nil {
				return accepted, err
			}
			accepted++
			trades += len(ts)
		}
		log.Infow("seeded_instrument", "instrument", sym, "orders", len(batch), "trades", trades)
	}
	return accepted, nil
}

// StartFeeder starts a background goroutine that keeps submitting random
// orders until ctx is done. The returned stop function cancels the feeder and
// blocks until its goroutine has exited, so no Submit is in flight afterwards.
func StartFeeder(ctx context.Context, e *Engine, cfg FeederConfig, log *zap.SugaredLogger) context.CancelFunc {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultFeederConfig().Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultFeederConfig().BatchSize
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = DefaultFeederConfig().Symbols
	}

	gen := NewOrderGenerator(cfg.Seed, "FEED_")
	feedCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		start := time.Now()
		total, trades := 0, 0
		log.Infow("feeder_started", "interval", cfg.Interval, "batch", cfg.BatchSize, "symbols", cfg.Symbols)

		for {
			select {
			case <-feedCtx.Done():
				log.Infow("feeder_stopped", "orders", total, "trades", trades, "elapsed", time.Since(start).Round(time.Millisecond))
				return

			case <-ticker.C:
				for _, sym := range cfg.Symbols {
					batch, err := gen.Batch(sym, cfg.BatchSize)
					if err != nil {
						log.Warnw("feeder_batch_failed", "instrument", sym, "err", err)
						continue
					}
					for _, o := range batch {
						if feedCtx.Err() != nil {
							break
						}
						ts, err := e.Submit(feedCtx, o)
						if err != nil {
							log.Warnw("feeder_submit_failed", "order_id", o.ID, "err", err)
							continue
						}
						total++
						trades += len(ts)
					}
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
