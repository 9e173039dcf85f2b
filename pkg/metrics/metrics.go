// Package metrics exposes engine counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crossbook"

// Metrics owns a private registry so that several engines (tests) can coexist.
// All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	OrdersSubmitted *prometheus.CounterVec
	OrdersRejected  *prometheus.CounterVec
	Trades          prometheus.Counter
	TradedQuantity  prometheus.Counter
	SubmitDuration  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Orders accepted by the matching engine.",
		}, []string{"side"}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Orders rejected before matching.",
		}, []string{"reason"}),
		Trades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades executed.",
		}),
		TradedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_quantity_total",
			Help:      "Sum of executed trade quantities.",
		}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_duration_seconds",
			Help:      "Time spent matching one submission.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	m.Registry.MustRegister(
		m.OrdersSubmitted,
		m.OrdersRejected,
		m.Trades,
		m.TradedQuantity,
		m.SubmitDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveSubmit(side string, trades int, qty int64, d time.Duration) {
	if m == nil {
		return
	}
	m.OrdersSubmitted.WithLabelValues(side).Inc()
	m.Trades.Add(float64(trades))
	m.TradedQuantity.Add(float64(qty))
	m.SubmitDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveReject(reason string) {
	if m == nil {
		return
	}
	m.OrdersRejected.WithLabelValues(reason).Inc()
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
