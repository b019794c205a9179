// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "practice_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// RateLimitDecisions counts limiter outcomes by scope (ai_minute, ai_day, api_ip).
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_rate_limit_decisions_total",
		Help: "Rate limiter decisions by scope and result",
	}, []string{"scope", "result"})

	// ExplanationRequests counts orchestrated explanation requests by outcome.
	ExplanationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_explanation_requests_total",
		Help: "Explanation requests by outcome",
	}, []string{"outcome"})

	// ExplanationCache counts cache lookups by result (hit, miss).
	ExplanationCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_explanation_cache_total",
		Help: "Explanation cache lookups by result",
	}, []string{"result"})

	// ExplanationAuditFailures counts audit rows that could not be written.
	ExplanationAuditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "practice_explanation_audit_failures_total",
		Help: "Explanation audit writes that failed",
	})

	// LLMRequestDuration tracks provider latency by model and outcome.
	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "practice_llm_request_duration_seconds",
		Help:    "Completion provider latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to 32s
	}, []string{"model", "outcome"})

	// LLMTokens counts tokens consumed by model and kind (prompt, completion).
	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_llm_tokens_total",
		Help: "Tokens consumed by model and kind",
	}, []string{"model", "kind"})

	// SessionOperations counts session transitions by operation and outcome.
	SessionOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_session_operations_total",
		Help: "Session operations by kind, mode and outcome",
	}, []string{"operation", "mode", "outcome"})

	// AnalyticsEvents counts analytics events by stage (queued, dropped, persisted, failed).
	AnalyticsEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "practice_analytics_events_total",
		Help: "Analytics events by pipeline stage",
	}, []string{"stage"})

	// WebSocketConnections is the number of open session streams.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "practice_websocket_connections",
		Help: "Open practice session websocket connections",
	})
)
