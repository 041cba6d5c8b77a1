package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bookstore",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookstore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	ordersPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookstore",
			Name:      "orders_placed_total",
			Help:      "Total number of orders persisted.",
		},
	)

	orderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookstore",
			Name:      "order_failures_total",
			Help:      "Total number of rejected order placements by reason.",
		},
		[]string{"reason"},
	)

	bookCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "cache",
			Name:      "book_list_lookups_total",
			Help:      "Book listing cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpInFlight,
		httpRequests,
		httpDuration,
		ordersPlaced,
		orderFailures,
		bookCacheLookups,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RequestStarted() { httpInFlight.Inc() }

func RequestFinished(method, route, status string, seconds float64) {
	httpInFlight.Dec()
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func RecordOrderPlaced() { ordersPlaced.Inc() }

// RecordOrderFailure counts a rejected order. Reasons: empty,
// invalid_quantity, not_found, out_of_stock, error.
func RecordOrderFailure(reason string) { orderFailures.WithLabelValues(reason).Inc() }

func RecordBookCacheLookup(hit bool) {
	if hit {
		bookCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	bookCacheLookups.WithLabelValues("miss").Inc()
}
