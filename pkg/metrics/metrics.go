// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream names used as label values.
const (
	UpstreamClassifier = "classifier"
	UpstreamDetector   = "detector"
	UpstreamRegistry   = "registry"
	UpstreamNarrative  = "narrative"
)

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeAbsent      = "absent"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeRejected    = "rejected"
	OutcomeSkipped     = "skipped"
)

var (
	// ScanRequestsTotal tracks scans by outcome
	ScanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "scan",
			Name:      "requests_total",
			Help:      "Total number of scan requests by outcome",
		},
		[]string{"outcome"},
	)

	// ScanDuration tracks end to end pipeline duration
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of identification pipeline runs in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	// UpstreamRequestsTotal tracks calls to external services
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of upstream calls by upstream and outcome",
		},
		[]string{"upstream", "outcome"},
	)

	// UpstreamDuration tracks upstream call latency
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of upstream calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"upstream"},
	)

	// SightingsSavedTotal tracks sighting inserts
	SightingsSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sightings",
			Name:      "saved_total",
			Help:      "Total number of sighting inserts by outcome",
		},
		[]string{"outcome"},
	)

	// EventsPublishedTotal tracks sighting events sent to Kafka
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of domain events published by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordUpstream records one upstream call.
func RecordUpstream(upstream, outcome string, seconds float64) {
	UpstreamRequestsTotal.WithLabelValues(upstream, outcome).Inc()
	UpstreamDuration.WithLabelValues(upstream).Observe(seconds)
}
