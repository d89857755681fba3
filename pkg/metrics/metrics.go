package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Total number of detection events received by the ingest API (count)",
		},
		[]string{"status"},
	)

	EventsEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_events_evaluated_total",
			Help: "Total number of detection events processed by the rule engine (count)",
		},
		[]string{"status"},
	)

	RuleHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_rule_hits_total",
			Help: "Total number of rule hits recorded by the rule engine (count)",
		},
	)

	RulesEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_rules_evaluated_total",
			Help: "Total number of per-rule evaluations (count)",
		},
		[]string{"result"},
	)

	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_evaluation_duration_ms",
			Help:    "Per-event rule evaluation duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of WhatsApp notification attempts (count)",
		},
		[]string{"kind", "status"},
	)

	NotificationFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_image_fallback_total",
			Help: "Total number of image sends that fell back to text (count)",
		},
	)

	DedupEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_dedup_events_total",
			Help: "Total number of events checked against the idempotency cache (count)",
		},
		[]string{"status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	ListenerMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listener_messages_total",
			Help: "Total number of MQTT messages handled by the edge listener (count)",
		},
		[]string{"status"},
	)
)

func RegisterIngestMetrics() {
	prometheus.MustRegister(
		EventsIngestedTotal,
		DedupEventsTotal,
		RateLimitRequestsTotal,
	)
}

func RegisterEngineMetrics() {
	prometheus.MustRegister(
		EventsEvaluatedTotal,
		RuleHitsTotal,
		RulesEvaluatedTotal,
		EvaluationDuration,
		NotificationsTotal,
		NotificationFallbackTotal,
	)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(
		RetryAttemptsTotal,
		DLQMessagesTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

func RegisterListenerMetrics() {
	prometheus.MustRegister(ListenerMessagesTotal)
}

func ObserveEvaluationDuration(d time.Duration, status string) {
	EvaluationDuration.WithLabelValues(status).Observe(float64(d.Milliseconds()))
}
