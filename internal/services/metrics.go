package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_pipeline_runs_total",
			Help: "Processing pipeline invocations by outcome.",
		},
		[]string{"status"},
	)

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docqa_pipeline_duration_seconds",
		Help:    "Processing pipeline run time in seconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	})

	chatHistoryPersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docqa_chat_history_persist_failures_total",
		Help: "Answers returned without their chat turn being persisted.",
	})

	textCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docqa_text_cache_hits_total",
		Help: "Extracted text cache hits.",
	})
	textCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docqa_text_cache_misses_total",
		Help: "Extracted text cache misses.",
	})
)

// Pipeline outcome labels.
const (
	outcomeCompleted  = "completed"
	outcomeFailed     = "failed"
	outcomeUnrecorded = "unrecorded"
	outcomeSkipped    = "skipped"
)
