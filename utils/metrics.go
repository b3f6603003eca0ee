// File: utils/metrics.go
package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the resilience layer. All are registered on the
// default registry and exposed via /metrics.
var (
	// BreakerCalls counts wrapped calls labeled by breaker name, the state the
	// breaker was in when the call arrived, and the call result.
	BreakerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeeper_breaker_calls_total",
		Help: "Circuit breaker call outcomes by breaker, state and result.",
	}, []string{"breaker", "state", "result"})

	// BreakerFailureStreak tracks the current consecutive-failure count.
	BreakerFailureStreak = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "innkeeper_breaker_failure_streak",
		Help: "Consecutive expected failures currently recorded by the breaker.",
	}, []string{"breaker"})

	// BreakerOpen is 1 while the breaker is open, 0 otherwise.
	BreakerOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "innkeeper_breaker_open",
		Help: "Whether the circuit breaker is currently open.",
	}, []string{"breaker"})

	// CacheLookups counts cache reads by namespace and outcome (hit, miss, stale).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeeper_cache_lookups_total",
		Help: "Cache lookup outcomes by key namespace.",
	}, []string{"namespace", "outcome"})

	// LockEvents counts reservation lock lifecycle events.
	LockEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeeper_lock_events_total",
		Help: "Reservation lock lifecycle events (acquired, conflict, extended, released).",
	}, []string{"event"})

	// SessionWriteRetries counts session persistence attempts by outcome.
	SessionWriteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "innkeeper_session_write_attempts_total",
		Help: "Guest session write attempts by outcome (success, retry, failure).",
	}, []string{"outcome"})

	// ActiveSessions is the number of valid session records found by the last sweep.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "innkeeper_active_sessions",
		Help: "Valid guest session records counted by the most recent sweep.",
	})
)
