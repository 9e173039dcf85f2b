package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uhyunpark/crossbook/params"
	"github.com/uhyunpark/crossbook/pkg/api"
	"github.com/uhyunpark/crossbook/pkg/app/core/history"
	"github.com/uhyunpark/crossbook/pkg/app/spot"
	"github.com/uhyunpark/crossbook/pkg/events"
	"github.com/uhyunpark/crossbook/pkg/metrics"
	"github.com/uhyunpark/crossbook/pkg/storage"
	"github.com/uhyunpark/crossbook/pkg/util"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP/WebSocket API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := params.Load(envPath)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.API.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides API_ADDR")
	rootCmd.AddCommand(serveCmd)
}

func newLogger(cfg params.Log) (*zap.Logger, error) {
	if cfg.File != "" {
		return util.NewLoggerWithFile(cfg.File, cfg.Level)
	}
	return util.NewLogger(cfg.Level)
}

func serve(ctx context.Context, cfg params.Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// ---- History ----
	var recorder history.Recorder
	if cfg.History.Dir != "" {
		store, err := storage.NewPebbleStore(cfg.History.Dir)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
		sugar.Infow("history_pebble", "dir", cfg.History.Dir)
	} else {
		recorder = history.NewMemory(cfg.History.Limit)
		sugar.Infow("history_memory", "limit", cfg.History.Limit)
	}

	// ---- Engine ----
	m := metrics.New()
	engine := spot.NewEngine(
		spot.WithClock(util.RealClock{}),
		spot.WithHistory(recorder),
		spot.WithMetrics(m),
		spot.WithLogger(sugar.Named("engine")),
	)

	// ---- Trade events (optional) ----
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, sugar.Named("kafka"))
		defer pub.Close()
		engine.OnTrades(pub.Hook)
		sugar.Infow("kafka_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	server := api.NewServer(engine, api.Config{
		CORSOrigins: cfg.API.CORSOrigins,
		Metrics:     m,
		Logger:      sugar.Named("api"),
	})

	// ---- Demo orders ----
	symbols, err := cfg.SeedSymbols()
	if err != nil {
		return err
	}
	if cfg.Seed.Enabled && cfg.Seed.OrdersPerInstrument > 0 {
		n, err := spot.SeedInitialOrders(ctx, engine, symbols, cfg.Seed.OrdersPerInstrument, 0, sugar)
		if err != nil {
			return fmt.Errorf("seed orders: %w", err)
		}
		sugar.Infow("seed_complete", "orders", n, "instruments", symbols)
	}
	if cfg.Feeder.Enabled {
		stopFeeder := spot.StartFeeder(ctx, engine, spot.FeederConfig{
			Interval:  cfg.Feeder.Interval,
			BatchSize: cfg.Feeder.Batch,
			Symbols:   symbols,
		}, sugar.Named("feeder"))
		defer stopFeeder() // runs before store.Close; waits for the feeder to exit
	}

	return server.Run(ctx, cfg.API.Addr, cfg.API.ShutdownTimeout)
}
