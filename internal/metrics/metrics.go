// Package metrics holds the Prometheus collectors of both services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"service", "route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "route", "method"})

	// Reservations counts reservation batches by outcome
	// (committed, insufficient_stock, invalid, tx_unavailable).
	Reservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reservations_total",
		Help: "Reservation batches by outcome.",
	}, []string{"outcome"})

	CatalogCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_client_requests_total",
		Help: "Outbound catalog calls by operation and outcome.",
	}, []string{"op", "outcome"})

	LookupCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_lookup_cache_total",
		Help: "Lookup cache hits and misses per product id.",
	}, []string{"result"})

	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status changes by source and target status.",
	}, []string{"from", "to", "outcome"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_dropped_total",
		Help: "Events not handed to the broker because the producer queue was full or closed.",
	})
)

func Handler() http.Handler { return promhttp.Handler() }
