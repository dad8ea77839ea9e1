// Package metrics exposes Prometheus instrumentation for the order book,
// the HTTP transport and the persister, trimmed down from a much larger
// exchange-wide collector to the handful of series this single-market
// engine actually produces.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saga-markets/dexbook/internal/matching"
)

// Collector holds every metric series the service publishes and
// implements matching.Observer so the engine can report book-depth and
// throughput without importing this package.
type Collector struct {
	ordersTotal     *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	matchesTotal    prometheus.Counter
	bookDepth       *prometheus.GaugeVec

	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec

	persisterApplied *prometheus.CounterVec
	persisterRestarts prometheus.Counter
}

// New builds and registers a Collector against the given registerer.
// cmd/server passes its own prometheus.NewRegistry() and serves it with
// promhttp.HandlerFor; Handler below serves only the default registry.
// Tests should pass a fresh prometheus.NewRegistry() to avoid collisions
// across packages.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ordersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexbook",
			Subsystem: "orders",
			Name:      "total",
			Help:      "Total number of orders placed, by side.",
		}, []string{"side"}),

		ordersCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexbook",
			Subsystem: "orders",
			Name:      "cancelled_total",
			Help:      "Total number of orders cancelled, by side.",
		}, []string{"side"}),

		matchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dexbook",
			Subsystem: "matching",
			Name:      "events_total",
			Help:      "Total number of match events emitted by the engine.",
		}),

		bookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dexbook",
			Subsystem: "book",
			Name:      "depth",
			Help:      "Number of resting orders, by side.",
		}, []string{"side"}),

		apiRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexbook",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total HTTP requests, by route and status.",
		}, []string{"route", "method", "status"}),

		apiRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dexbook",
			Subsystem: "api",
			Name:      "request_duration_ms",
			Help:      "HTTP request duration in milliseconds, by route.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"route"}),

		persisterApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dexbook",
			Subsystem: "persister",
			Name:      "events_applied_total",
			Help:      "Total events successfully applied to the database, by kind.",
		}, []string{"kind"}),

		persisterRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dexbook",
			Subsystem: "persister",
			Name:      "restarts_total",
			Help:      "Total number of times the supervisor restarted a failed persister.",
		}),
	}

	reg.MustRegister(
		c.ordersTotal,
		c.ordersCancelled,
		c.matchesTotal,
		c.bookDepth,
		c.apiRequestsTotal,
		c.apiRequestDuration,
		c.persisterApplied,
		c.persisterRestarts,
	)
	return c
}

// OrderPlaced implements matching.Observer.
func (c *Collector) OrderPlaced(side matching.Side) {
	c.ordersTotal.WithLabelValues(side.String()).Inc()
}

// OrderCancelled implements matching.Observer.
func (c *Collector) OrderCancelled(side matching.Side) {
	c.ordersCancelled.WithLabelValues(side.String()).Inc()
}

// OrdersMatched implements matching.Observer.
func (c *Collector) OrdersMatched(count int) {
	c.matchesTotal.Add(float64(count))
}

// BookDepth implements matching.Observer.
func (c *Collector) BookDepth(bidOrders, askOrders int) {
	c.bookDepth.WithLabelValues("buy").Set(float64(bidOrders))
	c.bookDepth.WithLabelValues("sell").Set(float64(askOrders))
}

// ObserveAPIRequest records one completed HTTP request.
func (c *Collector) ObserveAPIRequest(route, method, status string, durationMs float64) {
	c.apiRequestsTotal.WithLabelValues(route, method, status).Inc()
	c.apiRequestDuration.WithLabelValues(route).Observe(durationMs)
}

// RecordPersisterApplied records one successfully applied event.
func (c *Collector) RecordPersisterApplied(kind string) {
	c.persisterApplied.WithLabelValues(kind).Inc()
}

// RecordPersisterRestart records one supervisor-triggered restart.
func (c *Collector) RecordPersisterRestart() {
	c.persisterRestarts.Inc()
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
