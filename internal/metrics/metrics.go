package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerEntriesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_appended_total",
			Help: "Ledger entries appended by entry type",
		},
		[]string{"entry_type"},
	)

	RefundTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refund_transitions_total",
			Help: "Refund state transitions by target state",
		},
		[]string{"target_state"},
	)

	PaymentCapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_captures_total",
			Help: "Gateway capture events by outcome (applied or duplicate)",
		},
		[]string{"outcome"},
	)

	ConcurrencyConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_concurrency_conflicts_total",
			Help: "Per-booking serialization conflicts (retried once before surfacing)",
		},
	)
)
