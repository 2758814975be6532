// File: internal/utils/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts all HTTP requests handled by the service.
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_requests_total",
		Help: "The total number of requests",
	})

	// ResponsesTotal counts HTTP responses by status code.
	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_service_responses_total",
		Help: "The total number of responses by status code",
	}, []string{"status"})

	// RequestDuration observes HTTP request handling time.
	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_service_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// RequestDurationByPath observes request handling time per method and route.
	RequestDurationByPath = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_service_request_duration_by_path_seconds",
		Help:    "The request duration in seconds by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// TokenIssuedTotal counts freshly issued session token pairs.
	TokenIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_tokens_issued_total",
		Help: "The total number of issued refresh tokens",
	})

	// TokenRefreshTotal counts refresh attempts by outcome.
	// Status is one of: success, denied, conflict, error.
	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_service_token_refresh_total",
		Help: "The total number of token refresh attempts",
	}, []string{"status"})

	// TokenReuseDetectedTotal counts replays of already rotated tokens.
	TokenReuseDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_token_reuse_detected_total",
		Help: "The total number of rotated-token reuse detections",
	})

	// RevocationsTotal counts revoked tokens by trigger.
	RevocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_service_revocations_total",
		Help: "The total number of revoked refresh tokens",
	}, []string{"trigger"})

	// TokensExpiredTotal counts ACTIVE tokens transitioned to EXPIRED, whether
	// lazily at lookup or in bulk by the sweeper.
	TokensExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_tokens_expired_total",
		Help: "The total number of tokens transitioned to expired",
	})

	// ExpiredSweptTotal counts rows removed by the cleanup sweeper.
	ExpiredSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_expired_swept_total",
		Help: "The total number of terminal tokens deleted by cleanup",
	})

	// DatabaseOperationsTotal counts store operations by name and status.
	DatabaseOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_service_database_operations_total",
		Help: "The total number of database operations",
	}, []string{"operation", "status"})

	// DatabaseOperationDuration observes store operation latency.
	DatabaseOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_service_database_operation_duration_seconds",
		Help:    "The database operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// CacheOperationsTotal counts redis operations by name and status.
	CacheOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_service_cache_operations_total",
		Help: "The total number of cache operations",
	}, []string{"operation", "status"})

	// ActiveSessions tracks the number of currently active refresh tokens.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_service_active_sessions",
		Help: "The number of active sessions",
	})

	// AuditEventsDroppedTotal counts audit events discarded on queue overflow.
	AuditEventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_audit_events_dropped_total",
		Help: "The total number of audit events dropped due to a full queue",
	})

	// RateLimitExceededTotal counts requests rejected by the rate limiter.
	RateLimitExceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_rate_limit_exceeded_total",
		Help: "The total number of rate limit exceeded events",
	})

	// EventsPublishedTotal counts outbound Kafka events by type and status.
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_service_events_published_total",
		Help: "The total number of published events",
	}, []string{"event_type", "status"})
)
