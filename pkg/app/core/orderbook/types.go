package orderbook

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSide       = errors.New("invalid side")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidInstrument = errors.New("invalid instrument")
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

// ParseSide accepts "BUY" or "SELL" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

func (s Side) Valid() bool { return s == Buy || s == Sell }

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, s)
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	parsed, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

const maxSymbolLen = 32

// Symbol is an upper-cased instrument identifier such as "SPY" or "BTC-USDT".
type Symbol string

// ParseSymbol trims and upper-cases s. Letters, digits and . - _ / are allowed.
func ParseSymbol(s string) (Symbol, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if sym == "" {
		return "", fmt.Errorf("%w: empty symbol", ErrInvalidInstrument)
	}
	if len(sym) > maxSymbolLen {
		return "", fmt.Errorf("%w: symbol longer than %d characters", ErrInvalidInstrument, maxSymbolLen)
	}
	for _, r := range sym {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '_', r == '/':
		default:
			return "", fmt.Errorf("%w: unexpected character %q in %q", ErrInvalidInstrument, r, s)
		}
	}
	return Symbol(sym), nil
}

func (s Symbol) String() string { return string(s) }

// Order is a limit order. Quantity is the remaining unfilled amount and is
// decremented in place while the order is matched or resting.
type Order struct {
	ID         string
	Instrument Symbol
	Side       Side
	Price      decimal.Decimal
	Quantity   int64
	Timestamp  time.Time
}

// NewOrder normalizes instrument and side. A zero ts is replaced by the wall clock.
// Price and quantity are checked by Validate, not here.
func NewOrder(id, instrument, side string, price decimal.Decimal, qty int64, ts time.Time) (*Order, error) {
	sym, err := ParseSymbol(instrument)
	if err != nil {
		return nil, err
	}
	sd, err := ParseSide(side)
	if err != nil {
		return nil, err
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	return &Order{
		ID:         id,
		Instrument: sym,
		Side:       sd,
		Price:      price,
		Quantity:   qty,
		Timestamp:  ts,
	}, nil
}

// Validate reports whether the order can be matched.
func (o *Order) Validate() error {
	if !o.Side.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSide, o.Side)
	}
	if _, err := ParseSymbol(string(o.Instrument)); err != nil {
		return err
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, o.Quantity)
	}
	if o.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative, got %s", ErrInvalidOrder, o.Price)
	}
	return nil
}

// crosses reports whether a resting order at price can trade with o.
func (o *Order) crosses(price decimal.Decimal) bool {
	if o.Side == Buy {
		return price.LessThanOrEqual(o.Price)
	}
	return price.GreaterThanOrEqual(o.Price)
}

// Trade is one match between an incoming (taker) and a resting (maker) order.
// Price is always the maker's limit price.
type Trade struct {
	Seq         uint64          `json:"seq"`
	Instrument  Symbol          `json:"instrument"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	TakerSide   Side            `json:"taker_side"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

func newTrade(seq uint64, taker, maker *Order, qty int64, now time.Time) Trade {
	t := Trade{
		Seq:        seq,
		Instrument: taker.Instrument,
		Price:      maker.Price,
		Quantity:   qty,
		TakerSide:  taker.Side,
		ExecutedAt: now,
	}
	if taker.Side == Buy {
		t.BuyOrderID, t.SellOrderID = taker.ID, maker.ID
	} else {
		t.BuyOrderID, t.SellOrderID = maker.ID, taker.ID
	}
	return t
}
