package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger command metrics
	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	TransactionAmount *prometheus.HistogramVec

	// Idempotency metrics
	IdempotencyHits    *prometheus.CounterVec
	IdempotencyMisses  *prometheus.CounterVec
	IdempotencyCleaned prometheus.Counter

	// Balance metrics
	BalanceCalculations *prometheus.CounterVec
	BalanceDrift        prometheus.Counter

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBRetries *prometheus.CounterVec
	DBErrors  *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics with the default registerer
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CommandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "famledger_commands_total",
				Help: "Total ledger commands by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		CommandDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "famledger_command_duration_seconds",
				Help:    "Duration of ledger commands including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		TransactionAmount: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "famledger_transaction_amount",
				Help:    "Amounts of created transactions",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"currency"},
		),

		IdempotencyHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "famledger_idempotency_hits_total",
				Help: "Commands answered from a stored result",
			},
			[]string{"operation"},
		),
		IdempotencyMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "famledger_idempotency_misses_total",
				Help: "Commands executed because no stored result existed",
			},
			[]string{"operation"},
		),
		IdempotencyCleaned: f.NewCounter(prometheus.CounterOpts{
			Name: "famledger_idempotency_cleaned_total",
			Help: "Expired idempotency records removed",
		}),

		BalanceCalculations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "famledger_balance_calculations_total",
				Help: "Balance history calculations by strategy",
			},
			[]string{"strategy"},
		),
		BalanceDrift: f.NewCounter(prometheus.CounterOpts{
			Name: "famledger_balance_drift_total",
			Help: "Verifications where forward and reverse balances disagreed",
		}),

		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "famledger_outbox_published_total",
			Help: "Outbox events published",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "famledger_outbox_failures_total",
			Help: "Outbox events that failed to publish",
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "famledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "famledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DBRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "famledger_db_retries_total",
				Help: "Storage transactions retried by SQLSTATE",
			},
			[]string{"code"},
		),
		DBErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "famledger_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "famledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
