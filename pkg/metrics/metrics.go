package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP request metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accounts_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

// TokensIssued counts API tokens minted by reset.
var TokensIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "accounts_tokens_issued_total",
		Help: "Total number of API tokens issued",
	},
)

// NewsletterEvents counts newsletter preference events by outcome (published/failed).
var NewsletterEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_newsletter_events_total",
		Help: "Newsletter preference change events by outcome",
	},
	[]string{"outcome"},
)

// InvalidStoredHotkeys counts reads that found a malformed stored hotkeys configuration.
var InvalidStoredHotkeys = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "accounts_invalid_stored_hotkeys_total",
		Help: "Reads that discarded an invalid stored hotkeys configuration",
	},
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "accounts_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "accounts_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "accounts_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(TokensIssued, NewsletterEvents, InvalidStoredHotkeys)
	prometheus.MustRegister(DBOpenConns, DBIdleConns, DBInUseConns)
}
