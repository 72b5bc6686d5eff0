package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch results used as the "result" label.
const (
	FetchOK      = "ok"
	FetchEmpty   = "empty"
	FetchFailed  = "failed"
	FetchDropped = "dropped"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Chat history metrics
	HistoryFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_history_fetches_total",
			Help: "Chat history page fetches by result",
		},
		[]string{"result"},
	)

	HistoryFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_history_fetch_duration_seconds",
			Help:    "Chat history page fetch latency in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	MalformedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_history_malformed_records_total",
			Help: "Upstream chat records skipped because they failed validation",
		},
	)

	// Page session metrics
	PageSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "page_sessions_active",
			Help: "Number of mounted chat pages",
		},
	)

	PageEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_events_total",
			Help: "Browser events received by page sessions",
		},
		[]string{"type"},
	)
)
