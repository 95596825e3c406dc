// Package metrics holds the Prometheus collectors for the deals service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation results.
const (
	GenerationLLM      = "llm"
	GenerationFallback = "fallback"
	GenerationCache    = "cache"
	GenerationError    = "error"
)

var (
	DealsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cheapeats_deals_served_total",
			Help: "Total number of deals returned by listings",
		},
	)

	CandidatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cheapeats_candidates_dropped_total",
			Help: "Candidates dropped during normalization for lacking a restaurant and title",
		},
		[]string{"origin"},
	)

	DuplicatesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cheapeats_duplicates_rejected_total",
			Help: "Deals rejected by the deduplicator",
		},
		[]string{"reason"},
	)

	Generation = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cheapeats_generation_total",
			Help: "Candidate generation runs by result",
		},
		[]string{"result"},
	)

	ListingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cheapeats_listing_duration_seconds",
			Help:    "Duration of listing requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
