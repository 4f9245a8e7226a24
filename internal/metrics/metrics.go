// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

/*
Package metrics provides Prometheus instrumentation for Chronicle.

Collectors are registered on the default registry with promauto and
exposed by the ops server at /metrics. Components never touch the
collectors directly; they call the Record* helpers below.

The dropped and failed counters are the operator's signal for events lost
under the liveness-first delivery model: publish failures on the capture
side and swallowed handler errors on the projection side.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_events_published_total",
			Help: "Domain events published to the transport",
		},
		[]string{"schema"},
	)

	CaptureDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_capture_dropped_total",
			Help: "Platform callbacks or events dropped by the emitter",
		},
		[]string{"reason"}, // "map", "publish", "queue_full", "panic"
	)

	CaptureQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronicle_capture_queue_depth",
			Help: "Platform callbacks waiting for an emitter worker",
		},
	)

	// Dispatch and projections
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_events_consumed_total",
			Help: "Records handled by a projection consumer group",
		},
		[]string{"group", "schema"},
	)

	EventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_events_skipped_total",
			Help: "Records acknowledged without handling",
		},
		[]string{"group", "reason"}, // "unknown_schema", "invalid_payload"
	)

	ProjectionFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_projection_failed_total",
			Help: "Records whose handler failed and were committed anyway or dead-lettered",
		},
		[]string{"group", "schema"},
	)

	ProjectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chronicle_projection_duration_seconds",
			Help:    "Handler duration per record",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"group"},
	)

	DeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_dead_lettered_total",
			Help: "Records routed to the dead-letter topic",
		},
		[]string{"group"},
	)

	// Backfill
	BackfillMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_backfill_messages_total",
			Help: "Messages seen by the backfill reconciler",
		},
		[]string{"outcome"}, // "inserted", "versioned", "unchanged"
	)

	BackfillBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chronicle_backfill_batch_duration_seconds",
			Help:    "Duration of one backfill batch apply",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chronicle_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Ops API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_api_requests_total",
			Help: "Ops API requests",
		},
		[]string{"method", "route", "status"},
	)

	IgnoredChannels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronicle_ignored_channels",
			Help: "Channels currently excluded from capture",
		},
	)
)

// RecordPublish records a successfully published event.
func RecordPublish(schema string) {
	EventsPublished.WithLabelValues(schema).Inc()
}

// RecordCaptureDrop records a callback or event the emitter gave up on.
func RecordCaptureDrop(reason string) {
	CaptureDropped.WithLabelValues(reason).Inc()
}

// SetCaptureQueueDepth updates the emitter backlog gauge.
func SetCaptureQueueDepth(n int) {
	CaptureQueueDepth.Set(float64(n))
}

// RecordConsumed records a handled record and its duration. A non-nil err
// also counts the record as failed.
func RecordConsumed(group, schema string, duration time.Duration, err error) {
	EventsConsumed.WithLabelValues(group, schema).Inc()
	ProjectionDuration.WithLabelValues(group).Observe(duration.Seconds())
	if err != nil {
		ProjectionFailed.WithLabelValues(group, schema).Inc()
	}
}

// RecordSkipped records a record acknowledged without handling.
func RecordSkipped(group, reason string) {
	EventsSkipped.WithLabelValues(group, reason).Inc()
}

// RecordDeadLetter records a record routed to the dead-letter topic.
func RecordDeadLetter(group string) {
	DeadLettered.WithLabelValues(group).Inc()
}

// RecordBackfill records backfill outcomes for a batch.
func RecordBackfill(inserted, versioned, unchanged int, duration time.Duration) {
	BackfillMessages.WithLabelValues("inserted").Add(float64(inserted))
	BackfillMessages.WithLabelValues("versioned").Add(float64(versioned))
	BackfillMessages.WithLabelValues("unchanged").Add(float64(unchanged))
	BackfillBatchDuration.Observe(duration.Seconds())
}

// RecordCircuitBreakerTransition records a breaker state change.
// States follow gobreaker: 0=closed, 1=half-open, 2=open.
func RecordCircuitBreakerTransition(name, fromName, toName string, to int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	CircuitBreakerTransitions.WithLabelValues(name, fromName, toName).Inc()
}

// RecordAPIRequest records an ops API request.
func RecordAPIRequest(method, route, status string) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// SetIgnoredChannels updates the ignore-list size gauge.
func SetIgnoredChannels(n int) {
	IgnoredChannels.Set(float64(n))
}
