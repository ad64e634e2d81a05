package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure|error).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessiongate_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// AccountLocks counts accounts locked by the lockout policy (inactivity|failed_attempts).
	AccountLocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessiongate_account_locks_total",
			Help: "Total number of accounts locked by the lockout policy",
		},
		[]string{"reason"},
	)

	// AccountUnlocks counts locks released after the lock duration elapsed.
	AccountUnlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessiongate_account_unlocks_total",
			Help: "Total number of expired account locks released",
		},
	)

	// LockWriteFailures counts lock state write-backs that failed to persist.
	LockWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessiongate_lock_write_failures_total",
			Help: "Total number of lock state write-backs that failed",
		},
	)

	// TokenValidations records token validation outcomes (valid|unknown|invalid).
	TokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessiongate_token_validations_total",
			Help: "Total number of session token validations",
		},
		[]string{"result"},
	)

	// TokenStoreEntries tracks the number of live entries in the in-memory token store.
	TokenStoreEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessiongate_token_store_entries",
			Help: "Number of login names with a live session token",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sessiongate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
