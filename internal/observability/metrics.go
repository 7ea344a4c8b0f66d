package observability

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
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

	// Board metrics
	MessagesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guestbook_messages_created_total",
			Help: "Total number of messages posted to the board",
		},
	)

	MessagesEdited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guestbook_messages_edited_total",
			Help: "Total number of message content edits",
		},
	)

	ArrangementUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestbook_arrangement_updates_total",
			Help: "Total number of message rows rearranged",
		},
		[]string{"mode"},
	)

	RearrangeBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestbook_rearrange_batches_total",
			Help: "Total number of rearrange batches by outcome",
		},
		[]string{"mode", "result"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestbook_events_published_total",
			Help: "Total number of board events handed to the broker",
		},
		[]string{"type", "result"},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation", "table"},
	)

	SchemaInitializations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_schema_initializations_total",
			Help: "Schema initialization attempts by outcome",
		},
		[]string{"result"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordDBStats copies connection pool statistics into the pool gauges
func RecordDBStats(stats sql.DBStats) {
	DBConnectionsOpen.Set(float64(stats.OpenConnections))
	DBConnectionsInUse.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
}
