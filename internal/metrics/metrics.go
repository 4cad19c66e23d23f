// Package metrics provides metrics collection and reporting for the MCP server.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const namespace = "logan_mcp"

// Prometheus metric labels
const (
	labelTool      = "tool"
	labelStatus    = "status"
	labelFamily    = "family"
	labelPlacement = "placement"
)

// Breaker states exported by the circuit breaker gauge.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Metrics tracks operational metrics with both internal counters and Prometheus metrics.
// Every instance owns its registry, so several can coexist in one process.
type Metrics struct {
	totalRequests      atomic.Uint64
	successfulRequests atomic.Uint64
	failedRequests     atomic.Uint64
	retriedRequests    atomic.Uint64
	rateLimitHits      atomic.Uint64
	fallbacks          atomic.Uint64

	// Latency tracking, microseconds
	totalLatency atomic.Int64
	latencyCount atomic.Uint64
	maxLatency   atomic.Int64
	minLatency   atomic.Int64

	errorsMu       sync.RWMutex
	errorsByStatus map[int]uint64

	toolsMu     sync.RWMutex
	toolUsage   map[string]uint64
	toolErrors  map[string]uint64
	toolLatency map[string]int64 // microseconds

	logger   *zap.Logger
	registry *prometheus.Registry

	promRequestsTotal   *prometheus.CounterVec
	promRequestsRetried prometheus.Counter
	promRateLimitHits   prometheus.Counter
	promRequestLatency  prometheus.Histogram
	promBreakerState    prometheus.Gauge
	promToolCalls       *prometheus.CounterVec
	promToolErrors      *prometheus.CounterVec
	promToolLatency     *prometheus.HistogramVec
	promCompilations    *prometheus.CounterVec
	promFallbacks       *prometheus.CounterVec
}

// New creates a new metrics tracker with its own Prometheus registry.
func New(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		errorsByStatus: make(map[int]uint64),
		toolUsage:      make(map[string]uint64),
		toolErrors:     make(map[string]uint64),
		toolLatency:    make(map[string]int64),
		logger:         logger,
		registry:       prometheus.NewRegistry(),

		promRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests sent to Logging Analytics, labeled by HTTP status (0 for transport errors)",
		}, []string{labelStatus}),
		promRequestsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_retried_total",
			Help:      "Total number of retried backend requests",
		}),
		promRateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests delayed by the client-side rate limiter",
		}),
		promRequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_latency_seconds",
			Help:      "Backend request latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		}),
		promBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Backend circuit breaker state: 0 closed, 1 half-open, 2 open",
		}),
		promToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls, labeled by tool name",
		}, []string{labelTool}),
		promToolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_errors_total",
			Help:      "Total number of tool errors, labeled by tool name",
		}, []string{labelTool}),
		promToolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_latency_seconds",
			Help:      "Tool execution latency in seconds, labeled by tool name",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{labelTool}),
		promCompilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_compilations_total",
			Help:      "Compiled queries, labeled by intent family and time filter placement",
		}, []string{labelFamily, labelPlacement}),
		promFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_fallbacks_total",
			Help:      "Compilations that fell back to a permissive filter",
		}, []string{labelFamily}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.promRequestsTotal,
		m.promRequestsRetried,
		m.promRateLimitHits,
		m.promRequestLatency,
		m.promBreakerState,
		m.promToolCalls,
		m.promToolErrors,
		m.promToolLatency,
		m.promCompilations,
		m.promFallbacks,
	)

	m.minLatency.Store(int64(time.Hour / time.Microsecond))

	return m
}

// Registry returns the registry to serve with promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records one backend round trip.
func (m *Metrics) RecordRequest(success bool, latency time.Duration, statusCode int) {
	m.totalRequests.Add(1)
	m.promRequestsTotal.WithLabelValues(fmt.Sprintf("%d", statusCode)).Inc()
	m.promRequestLatency.Observe(latency.Seconds())

	if success {
		m.successfulRequests.Add(1)
	} else {
		m.failedRequests.Add(1)
		m.recordErrorStatus(statusCode)
	}

	m.recordLatency(latency)
}

// RecordRetry records a retry attempt
func (m *Metrics) RecordRetry() {
	m.retriedRequests.Add(1)
	m.promRequestsRetried.Inc()
}

// RecordRateLimitHit records a rate limit hit
func (m *Metrics) RecordRateLimitHit() {
	m.rateLimitHits.Add(1)
	m.promRateLimitHits.Inc()
}

// SetBreakerState exports the circuit breaker state.
func (m *Metrics) SetBreakerState(state int) {
	m.promBreakerState.Set(float64(state))
}

// RecordCompilation records a compiled query by family and time placement.
func (m *Metrics) RecordCompilation(family, placement string, fallback bool) {
	m.promCompilations.WithLabelValues(family, placement).Inc()
	if fallback {
		m.fallbacks.Add(1)
		m.promFallbacks.WithLabelValues(family).Inc()
	}
}

// RecordToolExecution records tool usage (both internal counters and Prometheus)
func (m *Metrics) RecordToolExecution(toolName string, success bool, latency time.Duration) {
	m.toolsMu.Lock()
	m.toolUsage[toolName]++
	if !success {
		m.toolErrors[toolName]++
	}
	// Rolling average in float64 to avoid integer overflow.
	if latency > 0 {
		count := float64(m.toolUsage[toolName])
		avg := (float64(m.toolLatency[toolName])*(count-1) + float64(latency.Microseconds())) / count
		m.toolLatency[toolName] = int64(avg)
	}
	m.toolsMu.Unlock()

	m.promToolCalls.WithLabelValues(toolName).Inc()
	m.promToolLatency.WithLabelValues(toolName).Observe(latency.Seconds())
	if !success {
		m.promToolErrors.WithLabelValues(toolName).Inc()
	}
}

func (m *Metrics) recordLatency(latency time.Duration) {
	latencyUs := latency.Microseconds()

	m.totalLatency.Add(latencyUs)
	m.latencyCount.Add(1)

	for {
		currentMax := m.maxLatency.Load()
		if latencyUs <= currentMax || m.maxLatency.CompareAndSwap(currentMax, latencyUs) {
			break
		}
	}
	for {
		currentMin := m.minLatency.Load()
		if latencyUs >= currentMin || m.minLatency.CompareAndSwap(currentMin, latencyUs) {
			break
		}
	}
}

func (m *Metrics) recordErrorStatus(statusCode int) {
	if statusCode == 0 {
		return
	}
	m.errorsMu.Lock()
	m.errorsByStatus[statusCode]++
	m.errorsMu.Unlock()
}

// GetStats returns current statistics
func (m *Metrics) GetStats() Stats {
	m.errorsMu.RLock()
	errorsByStatus := make(map[int]uint64, len(m.errorsByStatus))
	for k, v := range m.errorsByStatus {
		errorsByStatus[k] = v
	}
	m.errorsMu.RUnlock()

	m.toolsMu.RLock()
	toolUsage := make(map[string]uint64, len(m.toolUsage))
	toolErrors := make(map[string]uint64, len(m.toolErrors))
	toolLatency := make(map[string]time.Duration, len(m.toolLatency))
	for k, v := range m.toolUsage {
		toolUsage[k] = v
	}
	for k, v := range m.toolErrors {
		toolErrors[k] = v
	}
	for k, v := range m.toolLatency {
		toolLatency[k] = time.Duration(v) * time.Microsecond
	}
	m.toolsMu.RUnlock()

	latencyCount := m.latencyCount.Load()
	var avgLatency, minLatency time.Duration
	if latencyCount > 0 {
		avgLatency = time.Duration(float64(m.totalLatency.Load())/float64(latencyCount)) * time.Microsecond
		minLatency = time.Duration(m.minLatency.Load()) * time.Microsecond
	}

	return Stats{
		TotalRequests:      m.totalRequests.Load(),
		SuccessfulRequests: m.successfulRequests.Load(),
		FailedRequests:     m.failedRequests.Load(),
		RetriedRequests:    m.retriedRequests.Load(),
		RateLimitHits:      m.rateLimitHits.Load(),
		Fallbacks:          m.fallbacks.Load(),
		AverageLatency:     avgLatency,
		MaxLatency:         time.Duration(m.maxLatency.Load()) * time.Microsecond,
		MinLatency:         minLatency,
		ErrorsByStatus:     errorsByStatus,
		ToolUsage:          toolUsage,
		ToolErrors:         toolErrors,
		ToolLatency:        toolLatency,
	}
}

// LogStats logs current statistics
func (m *Metrics) LogStats() {
	stats := m.GetStats()

	var errorRate float64
	if stats.TotalRequests > 0 {
		errorRate = float64(stats.FailedRequests) / float64(stats.TotalRequests) * 100
	}

	m.logger.Info("Operational metrics",
		zap.Uint64("total_requests", stats.TotalRequests),
		zap.Uint64("failed_requests", stats.FailedRequests),
		zap.Float64("error_rate_pct", errorRate),
		zap.Uint64("retried_requests", stats.RetriedRequests),
		zap.Uint64("rate_limit_hits", stats.RateLimitHits),
		zap.Uint64("fallbacks", stats.Fallbacks),
		zap.Duration("avg_latency", stats.AverageLatency),
		zap.Duration("max_latency", stats.MaxLatency),
		zap.Any("tool_usage", stats.ToolUsage),
	)
}

// Stats represents current metrics
type Stats struct {
	TotalRequests      uint64                   `json:"total_requests"`
	SuccessfulRequests uint64                   `json:"successful_requests"`
	FailedRequests     uint64                   `json:"failed_requests"`
	RetriedRequests    uint64                   `json:"retried_requests"`
	RateLimitHits      uint64                   `json:"rate_limit_hits"`
	Fallbacks          uint64                   `json:"fallbacks"`
	AverageLatency     time.Duration            `json:"average_latency"`
	MaxLatency         time.Duration            `json:"max_latency"`
	MinLatency         time.Duration            `json:"min_latency"`
	ErrorsByStatus     map[int]uint64           `json:"errors_by_status"`
	ToolUsage          map[string]uint64        `json:"tool_usage"`
	ToolErrors         map[string]uint64        `json:"tool_errors"`
	ToolLatency        map[string]time.Duration `json:"tool_latency"`
}
