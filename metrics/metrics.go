// Package metrics declares the Prometheus collectors shared by the agent,
// the ingestion job and the embedder.
//
// Usage:
//
//	metrics.ObserveStage("embed", time.Since(start))
//	metrics.ChatRequests.WithLabelValues(metrics.OutcomeFallback).Inc()
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeStructured = "structured"
	OutcomeFallback   = "fallback"
	OutcomeError      = "error"
)

var (
	// ChatRequests counts chat requests by outcome.
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_rag_chat_requests_total",
			Help: "Total number of chat requests by outcome",
		},
		[]string{"outcome"},
	)

	// StageDuration tracks the latency of each chat pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restaurant_rag_stage_duration_seconds",
			Help:    "Duration of chat pipeline stages in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_rag_embedding_cache_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	// IngestRecords counts ingestion rows by result (inserted, existing, no_waiting, invalid, failed).
	IngestRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_rag_ingest_records_total",
			Help: "Ingestion rows by result",
		},
		[]string{"source", "result"},
	)

	EmbedderJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_rag_embedder_jobs_total",
			Help: "Embedder jobs by status",
		},
		[]string{"status"},
	)

	// CDCEvents counts row changes seen by the WAL listener by result
	// (published, skipped, publish_error).
	CDCEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_rag_cdc_events_total",
			Help: "WAL row changes by result",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restaurant_rag_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
