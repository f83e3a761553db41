package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesTotal counts completed batch runs.
	BatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "media_enricher",
		Name:      "batches_total",
		Help:      "Total number of completed batch runs.",
	})

	// ScenesProcessed counts processed scenes by outcome
	// (enriched, failed, skipped).
	ScenesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_enricher",
		Name:      "scenes_processed_total",
		Help:      "Total number of scenes processed, by outcome.",
	}, []string{"outcome"})

	// StepFailures counts failures by pipeline step
	// (hashing, cover, sprite, preview).
	StepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_enricher",
		Name:      "step_failures_total",
		Help:      "Total number of pipeline step failures, by step.",
	}, []string{"step"})

	// ArtifactDuration observes wall time spent generating each artifact
	// kind (phash, cover, sprite, preview).
	ArtifactDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "media_enricher",
		Name:      "artifact_duration_seconds",
		Help:      "Time spent generating each artifact kind.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"kind"})

	// ScenesInFlight tracks scenes currently being processed.
	ScenesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "media_enricher",
		Name:      "scenes_in_flight",
		Help:      "Number of scenes currently being processed.",
	})

	// EligibleScenes records the library's total count of scenes still
	// matching the selection filter, as of the last batch.
	EligibleScenes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "media_enricher",
		Name:      "eligible_scenes",
		Help:      "Scenes still matching the selection filter at the last batch.",
	})
)
