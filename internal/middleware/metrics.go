package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tch_http_requests_total",
		Help: "Total number of API requests",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tch_http_request_duration_seconds",
		Help:    "Duration of API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// Suggestion metrics
	suggestionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tch_suggestions_served_total",
		Help: "Total number of suggestion batches served",
	}, []string{"source"})

	candidatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tch_candidates_rejected_total",
		Help: "Total number of model candidates dropped by post-processing",
	}, []string{"reason"})

	fallbackPadded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tch_fallback_padded_total",
		Help: "Total number of suggestions taken from the fallback pools",
	})

	greetingsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tch_greetings_inserted_total",
		Help: "Total number of first-time greetings inserted",
	})

	// AI metrics
	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tch_ai_request_duration_seconds",
		Help:    "Duration of completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tch_ai_requests_total",
		Help: "Total number of completion requests",
	}, []string{"model", "status"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tch_cache_hits_total",
		Help: "Total number of cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tch_cache_misses_total",
		Help: "Total number of cache misses",
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tch_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"scope"})

	// Template metrics
	templateUses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tch_template_uses_total",
		Help: "Total number of template sends",
	}, []string{"status"})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tch_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tch_storage_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Active channels gauge
	activeChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tch_active_channels",
		Help: "Number of channels with a live rate limiter",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordHTTPRequest records a served API request
func (m *Metrics) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordSuggestionServed records where a batch came from (model, cache, fallback)
func (m *Metrics) RecordSuggestionServed(source string) {
	suggestionsServed.WithLabelValues(source).Inc()
}

// RecordCandidatesRejected records dropped candidates for one reason
func (m *Metrics) RecordCandidatesRejected(reason string, count int) {
	if count <= 0 {
		return
	}
	candidatesRejected.WithLabelValues(reason).Add(float64(count))
}

// RecordFallbackPadded records suggestions appended from the pools
func (m *Metrics) RecordFallbackPadded(count int) {
	if count <= 0 {
		return
	}
	fallbackPadded.Add(float64(count))
}

// RecordGreetingInserted records a forced first-time greeting
func (m *Metrics) RecordGreetingInserted() {
	greetingsInserted.Inc()
}

// RecordAIRequest records a completion request
func (m *Metrics) RecordAIRequest(model, status string, duration time.Duration) {
	aiRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	aiRequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitExceeded records a rate limit event. Scope is "channel"
// for the local limiter or "upstream" for a 429 from the provider.
func (m *Metrics) RecordRateLimitExceeded(scope string) {
	rateLimitExceeded.WithLabelValues(scope).Inc()
}

// RecordTemplateUse records a template send attempt
func (m *Metrics) RecordTemplateUse(status string) {
	templateUses.WithLabelValues(status).Inc()
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, status).Inc()
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetActiveChannels sets the number of tracked channels
func (m *Metrics) SetActiveChannels(count float64) {
	activeChannels.Set(count)
}

// statusRecorder captures the response code for instrumentation
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument is a mux middleware recording request count and latency
// labelled by the matched route template.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.RecordHTTPRequest(route, r.Method, rec.status, time.Since(start))
	})
}

// NewMetricsServer builds the metrics HTTP server. The caller owns
// ListenAndServe and Shutdown.
func NewMetricsServer(port int, path string) *http.Server {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
