package params

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

type API struct {
	Addr            string        `env:"API_ADDR" envDefault:":8080"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*"`
	ShutdownTimeout time.Duration `env:"API_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	File  string `env:"LOG_FILE"` // also write logs here when set
}

// Seed fills the books with a few random orders at startup
type Seed struct {
	Enabled             bool     `env:"SEED_ENABLED" envDefault:"true"`
	OrdersPerInstrument int      `env:"SEED_ORDERS_PER_INSTRUMENT" envDefault:"5"`
	Instruments         []string `env:"SEED_INSTRUMENTS" envDefault:"SPY,MSFT"`
}

// Feeder keeps submitting random orders to the seeded instruments
type Feeder struct {
	Enabled  bool          `env:"FEEDER_ENABLED" envDefault:"false"`
	Interval time.Duration `env:"FEEDER_INTERVAL" envDefault:"1s"`
	Batch    int           `env:"FEEDER_BATCH" envDefault:"5"`
}

type History struct {
	Dir   string `env:"HISTORY_DIR"` // empty keeps history in memory
	Limit int    `env:"HISTORY_LIMIT" envDefault:"1000"`
}

type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS"` // empty disables publishing
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"trades"`
}

type Config struct {
	API     API
	Log     Log
	Seed    Seed
	Feeder  Feeder
	History History
	Kafka   Kafka
}

// Default returns the configuration with every variable unset
func Default() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Errorf("default config: %w", err))
	}
	return cfg
}

// Load loads configuration from the .env file (if it exists) and environment
// variables. Priority: ENV > .env file > defaults
func Load(envPath string) (Config, error) {
	// godotenv never overrides variables that are already set
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.API.CORSOrigins = compact(cfg.API.CORSOrigins)
	cfg.Seed.Instruments = compact(cfg.Seed.Instruments)
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.API.Addr == "" {
		errs = append(errs, errors.New("API_ADDR must not be empty"))
	}
	if c.API.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("API_SHUTDOWN_TIMEOUT must be positive"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.Seed.OrdersPerInstrument < 0 {
		errs = append(errs, errors.New("SEED_ORDERS_PER_INSTRUMENT must not be negative"))
	}
	if _, err := c.SeedSymbols(); err != nil {
		errs = append(errs, fmt.Errorf("SEED_INSTRUMENTS: %w", err))
	}
	if c.Feeder.Enabled && c.Feeder.Interval <= 0 {
		errs = append(errs, errors.New("FEEDER_INTERVAL must be positive"))
	}
	if c.Feeder.Enabled && c.Feeder.Batch <= 0 {
		errs = append(errs, errors.New("FEEDER_BATCH must be positive"))
	}
	if c.History.Limit <= 0 {
		errs = append(errs, errors.New("HISTORY_LIMIT must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

// SeedSymbols parses the seeded instrument list
func (c Config) SeedSymbols() ([]orderbook.Symbol, error) {
	out := make([]orderbook.Symbol, 0, len(c.Seed.Instruments))
	for _, s := range c.Seed.Instruments {
		sym, err := orderbook.ParseSymbol(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
