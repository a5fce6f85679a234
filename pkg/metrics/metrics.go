// Package metrics exposes Prometheus collectors for the question pipeline.
// Collectors register themselves at init; main mounts promhttp on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatalyst_questions_total",
			Help: "Total questions asked, by final outcome.",
		},
		[]string{"outcome"},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatalyst_cache_hits_total",
			Help: "Questions answered from the result cache.",
		},
	)

	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatalyst_cache_misses_total",
			Help: "Questions that missed the result cache.",
		},
	)

	validationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatalyst_validation_rejections_total",
			Help: "Candidate queries rejected by the validator, by rule.",
		},
		[]string{"rule"},
	)

	llmRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatalyst_llm_retries_total",
			Help: "LLM generation retries after an unparseable reply.",
		},
	)

	refinementRoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatalyst_refinement_rounds_total",
			Help: "Extra generation rounds spent refining low-confidence SQL.",
		},
	)

	executionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatalyst_execution_duration_seconds",
			Help:    "SQL execution latency against the target database.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	askDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatalyst_ask_duration_seconds",
			Help:    "End-to-end question latency, by outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatalyst_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatalyst_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		cacheHitsTotal,
		cacheMissesTotal,
		validationRejectionsTotal,
		llmRetriesTotal,
		refinementRoundsTotal,
		executionDurationSeconds,
		askDurationSeconds,
		httpRequestsTotal,
		httpRequestDurationSeconds,
	)
}

// ObserveQuestion records one completed question with its end-to-end latency.
func ObserveQuestion(outcome string, elapsed time.Duration) {
	questionsTotal.WithLabelValues(outcome).Inc()
	askDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordCacheHit counts a question answered from the cache.
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// RecordCacheMiss counts a question that had to be generated.
func RecordCacheMiss() {
	cacheMissesTotal.Inc()
}

// RecordValidationRejection counts a validator rejection for each violated
// blocking rule.
func RecordValidationRejection(rule string) {
	validationRejectionsTotal.WithLabelValues(rule).Inc()
}

// RecordLLMRetry counts one stricter-prompt retry after a parse failure.
func RecordLLMRetry() {
	llmRetriesTotal.Inc()
}

// RecordRefinementRound counts one low-confidence refinement round.
func RecordRefinementRound() {
	refinementRoundsTotal.Inc()
}

// ObserveExecution records the latency of one SQL execution.
func ObserveExecution(elapsed time.Duration) {
	executionDurationSeconds.Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}
