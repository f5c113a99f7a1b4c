package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scheduler
	OperationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfibot_operation_attempts_total",
			Help: "Total number of operation attempts by result",
		},
		[]string{"operation", "result"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sfibot_operation_duration_seconds",
			Help:    "Duration of a single operation attempt in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Withdrawals
	WithdrawalPhases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfibot_withdrawal_phase_total",
			Help: "Total number of withdrawal phase transitions by result (success, skipped, not_ready, failed)",
		},
		[]string{"phase", "result"},
	)

	TrackedWithdrawals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sfibot_tracked_withdrawals",
		Help: "Number of withdrawals tracked in memory",
	})

	// Transactions
	TransactionsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sfibot_transactions_total",
			Help: "Total number of transactions submitted by chain and result",
		},
		[]string{"chain", "result"},
	)
)
