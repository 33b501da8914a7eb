// Package metrics provides Prometheus metrics export for the answering
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exports pipeline metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Question metrics
	questions       *prometheus.CounterVec
	questionLatency *prometheus.HistogramVec
	streamsActive   prometheus.Gauge

	// Retrieval metrics
	retrievedChunks prometheus.Histogram
	degradedSearch  prometheus.Counter

	// LLM metrics
	llmLatency   *prometheus.HistogramVec
	llmTokens    *prometheus.CounterVec
	streamTokens prometheus.Counter
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.questions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parksage",
			Subsystem: "rag",
			Name:      "questions_total",
			Help:      "Total number of answered questions",
		},
		[]string{"mode", "outcome"},
	)

	e.questionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "parksage",
			Subsystem: "rag",
			Name:      "question_latency_seconds",
			Help:      "End-to-end question latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"mode"},
	)

	e.streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "parksage",
			Subsystem: "rag",
			Name:      "streams_active",
			Help:      "Number of in-flight streaming answers",
		},
	)

	e.retrievedChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "parksage",
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Number of chunks returned per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
	)

	e.degradedSearch = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parksage",
			Subsystem: "rag",
			Name:      "degraded_searches_total",
			Help:      "Total number of searches that fell back to local park filtering",
		},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "parksage",
			Subsystem: "rag",
			Name:      "llm_latency_seconds",
			Help:      "LLM request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"purpose"},
	)

	e.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parksage",
			Subsystem: "rag",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"purpose", "token_type"},
	)

	e.streamTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parksage",
			Subsystem: "rag",
			Name:      "stream_tokens_total",
			Help:      "Total tokens emitted over streaming answers",
		},
	)

	registry.MustRegister(
		e.questions,
		e.questionLatency,
		e.streamsActive,
		e.retrievedChunks,
		e.degradedSearch,
		e.llmLatency,
		e.llmTokens,
		e.streamTokens,
	)

	return e
}

// RecordQuestion records one answered question. Mode is "blocking" or
// "streaming"; outcome is "answered", "no_results" or "error".
func (e *PrometheusExporter) RecordQuestion(mode, outcome string, latency time.Duration) {
	e.questions.WithLabelValues(mode, outcome).Inc()
	e.questionLatency.WithLabelValues(mode).Observe(latency.Seconds())
}

// RecordRetrieval records the chunk count of one retrieval.
func (e *PrometheusExporter) RecordRetrieval(chunks int) {
	e.retrievedChunks.Observe(float64(chunks))
}

// RecordDegradedSearch records a search that had to filter locally.
func (e *PrometheusExporter) RecordDegradedSearch() {
	e.degradedSearch.Inc()
}

// RecordLLMLatency records LLM request latency for one call purpose
// ("rewrite" or "answer").
func (e *PrometheusExporter) RecordLLMLatency(purpose string, latency time.Duration) {
	e.llmLatency.WithLabelValues(purpose).Observe(latency.Seconds())
}

// RecordLLMTokens records LLM token usage for one call purpose. Token type
// is "prompt" or "completion".
func (e *PrometheusExporter) RecordLLMTokens(purpose, tokenType string, count int) {
	e.llmTokens.WithLabelValues(purpose, tokenType).Add(float64(count))
}

// RecordStreamTokens records tokens emitted over a streaming answer.
func (e *PrometheusExporter) RecordStreamTokens(count int) {
	e.streamTokens.Add(float64(count))
}

// StreamStarted marks a streaming answer as in flight.
func (e *PrometheusExporter) StreamStarted() {
	e.streamsActive.Inc()
}

// StreamFinished marks a streaming answer as done.
func (e *PrometheusExporter) StreamFinished() {
	e.streamsActive.Dec()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
