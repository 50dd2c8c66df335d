package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	chatTurnCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total chat turns handled",
		},
		[]string{"intent", "backend"},
	)

	actionAppliedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_applied_total",
			Help: "Total confirmed task actions applied",
		},
		[]string{"kind"},
	)

	analyzerFindingsCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_findings_total",
			Help: "Total analyzer findings by kind",
		},
		[]string{"kind"},
	)
)

func recordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
