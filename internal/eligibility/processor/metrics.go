package processor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projection_events_total",
		Help: "Projection events handled, grouped by stream, event type and outcome.",
	}, []string{"stream", "type", "result"})

	broadcastDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "projection_broadcast_seconds",
		Help:    "Time spent recomputing eligibility across all known counterparties.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	racesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projection_races_dropped_total",
		Help: "Events dropped because the referenced snapshot was not yet projected.",
	}, []string{"stream"})

	conflictRemovals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "projection_conflict_removals_total",
		Help: "Eligibility entries removed because of a time-overlap with a booked shift.",
	})

	conflictRestores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "projection_conflict_restores_total",
		Help: "Eligibility entries restored after a pullout released a time conflict.",
	})
)
