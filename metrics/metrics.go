package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	BookingLinksIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_links_issued_total",
			Help: "Total number of guest booking links issued",
		},
	)

	// result: confirmed | partial_payment | rejected
	BookingSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_submissions_total",
			Help: "Total number of guest wizard submissions by result",
		},
		[]string{"result"},
	)

	// result: sent | retry | failed
	OutboxTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_tasks_total",
			Help: "Total number of email outbox deliveries by result",
		},
		[]string{"kind", "result"},
	)

	OutboxQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_queue_depth",
			Help: "Email tasks waiting in the ready queue",
		},
	)
)
