// Package events publishes executed trades to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per trade, keyed by instrument so that
// a partition sees an instrument's trades in execution order.
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.SugaredLogger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.SugaredLogger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Warnw("kafka_publish_failed", "topic", topic, "messages", len(msgs), "err", err)
			}
		},
	}
	return &KafkaPublisher{writer: w, log: log}
}

// PublishTrades sends trades; an empty slice is a no-op.
func (p *KafkaPublisher) PublishTrades(ctx context.Context, sym orderbook.Symbol, trades []orderbook.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	msgs, err := buildMessages(sym, trades)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d trade messages: %w", len(msgs), err)
	}
	return nil
}

// Hook adapts the publisher to an engine trade hook. Failures are logged.
func (p *KafkaPublisher) Hook(ctx context.Context, sym orderbook.Symbol, trades []orderbook.Trade) {
	if err := p.PublishTrades(ctx, sym, trades); err != nil {
		p.log.Warnw("trade_publish_failed", "instrument", sym, "trades", len(trades), "err", err)
	}
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

func buildMessages(sym orderbook.Symbol, trades []orderbook.Trade) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(trades))
	for _, t := range trades {
		val, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("marshal trade %d: %w", t.Seq, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(sym),
			Value: val,
			Time:  t.ExecutedAt,
			Headers: []kafka.Header{
				{Key: "taker_side", Value: []byte(t.TakerSide.String())},
			},
		})
	}
	return msgs, nil
}
