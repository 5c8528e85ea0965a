// Package telemetry holds the prometheus collectors shared across the
// service. Everything registers on the default registry so the /metrics
// route only needs promhttp.Handler.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	RunsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netresearch_runs_started_total",
		Help: "Pipeline runs started.",
	})
	RunsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netresearch_runs_completed_total",
		Help: "Pipeline runs completed, by outcome.",
	}, []string{"outcome"})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netresearch_run_duration_seconds",
		Help:    "Wall time of whole pipeline runs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netresearch_stage_duration_seconds",
		Help:    "Wall time per pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"stage"})
	CatalogRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netresearch_catalog_requests_total",
		Help: "Catalog API calls, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	LLMRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netresearch_llm_requests_total",
		Help: "LLM chat completions, by outcome.",
	}, []string{"outcome"})
	ConceptCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netresearch_concept_cache_total",
		Help: "Concept cache lookups, by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		RunsStarted,
		RunsCompleted,
		RunDuration,
		StageDuration,
		CatalogRequests,
		LLMRequests,
		ConceptCache,
	)
}
