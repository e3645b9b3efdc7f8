// Package telemetry exposes the engine's Prometheus collectors. Served at
// /metrics by the HTTP layer.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generations counts orchestrator outcomes: ok, failed, busy, invalid.
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memoryecho_generations_total",
		Help: "Generation requests by outcome.",
	}, []string{"outcome"})

	// GenerationDuration measures responder latency for completed calls.
	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "memoryecho_generation_duration_seconds",
		Help:    "Wall time of responder calls.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// MessagesAppended counts messages appended to threads by sender.
	MessagesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memoryecho_messages_appended_total",
		Help: "Messages appended to thread logs.",
	}, []string{"sender"})

	// PersistenceFailures counts durable writes that failed after the
	// in-memory mutation was applied.
	PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memoryecho_persistence_failures_total",
		Help: "Write-through persistence failures (in-memory state kept).",
	})

	// ContextEntries observes how many knowledge entries fit the budget
	// per generation.
	ContextEntries = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "memoryecho_context_entries",
		Help:    "Knowledge entries included per assembled context.",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	})
)
