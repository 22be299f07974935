package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	ResourcesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atomstore_resources_total",
			Help: "Total number of resources currently persisted",
		},
	)

	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atomstore_commits_total",
			Help: "Total number of commits applied, by outcome",
		},
		[]string{"outcome"},
	)

	CommitApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "atomstore_commit_apply_duration_seconds",
			Help:    "Time taken to validate and apply a commit in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Index metrics
	ReferenceIndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atomstore_reference_index_entries",
			Help: "Total number of entries in the reference (TPF) index",
		},
	)

	MembersIndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atomstore_members_index_entries",
			Help: "Total number of entries in the sorted members index",
		},
	)

	// Query metrics
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atomstore_queries_total",
			Help: "Total number of queries executed, by scan strategy",
		},
		[]string{"strategy"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atomstore_query_duration_seconds",
			Help:    "Query execution duration in seconds, by scan strategy",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// Authorization metrics
	AuthorizationDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atomstore_authorization_denials_total",
			Help: "Total number of read/write authorization denials, by right",
		},
		[]string{"right"},
	)

	// Collection resolver metrics
	CollectionsResolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atomstore_collections_resolved_total",
			Help: "Total number of dynamic collections resolved",
		},
	)
)

func init() {
	prometheus.MustRegister(ResourcesTotal)
	prometheus.MustRegister(CommitsTotal)
	prometheus.MustRegister(CommitApplyDuration)
	prometheus.MustRegister(ReferenceIndexEntries)
	prometheus.MustRegister(MembersIndexEntries)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(AuthorizationDenials)
	prometheus.MustRegister(CollectionsResolved)
}

// Handler returns the Prometheus HTTP handler, for embedding by whatever
// external transport layer exposes a /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
