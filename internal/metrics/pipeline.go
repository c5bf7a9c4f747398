package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval pipeline Prometheus metrics.
var (
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eulex",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each retrieval pipeline stage in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	PipelineCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "eulex",
			Name:      "pipeline_candidates",
			Help:      "Number of candidate laws surviving the score threshold per query",
			Buckets:   []float64{1, 2, 3, 5, 8, 10, 20},
		},
	)

	PipelinePassagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eulex",
			Name:      "pipeline_passages_total",
			Help:      "Passages seen by the semantic filter and the aggregator",
		},
		[]string{"outcome"}, // "scored" / "kept" / "included"
	)

	FulltextCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eulex",
			Name:      "fulltext_cache_total",
			Help:      "Full-text cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)

	FulltextFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eulex",
			Name:      "fulltext_fetch_total",
			Help:      "Full-text fetches by status",
		},
		[]string{"status"}, // "ok" / "error"
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eulex",
			Name:      "llm_requests_total",
			Help:      "Total chat completion requests",
		},
		[]string{"model", "operation", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eulex",
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model", "operation"},
	)
)

var registerPipeline sync.Once

// RegisterPipelineMetrics registers pipeline, full-text and LLM metrics.
// Repeated calls are no-ops.
func RegisterPipelineMetrics() {
	registerPipeline.Do(func() {
		prometheus.MustRegister(
			PipelineStageDuration,
			PipelineCandidates,
			PipelinePassagesTotal,
			FulltextCacheTotal,
			FulltextFetchTotal,
			LLMRequestsTotal,
			LLMRequestDuration,
		)
	})
}

// ObserveStage records the time elapsed since start for a pipeline stage.
func ObserveStage(stage string, start time.Time) {
	PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
