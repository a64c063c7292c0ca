package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "order_worker",
			Name:      "orders_expired_total",
			Help:      "Pending orders closed by the expiry sweeper",
		},
	)

	SweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "order_worker",
			Name:      "sweep_failures_total",
			Help:      "Expiry sweeps that failed",
		},
	)

	WalletDrift = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "order_worker",
			Name:      "wallet_drift",
			Help:      "Wallets whose balance disagrees with their ledger at the last reconciliation",
		},
	)

	UnbackedOrders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "order_worker",
			Name:      "unbacked_wallet_orders",
			Help:      "Wallet-paid orders without a debit transaction at the last reconciliation",
		},
	)

	AuditMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "order_worker",
			Name:      "audit_messages_total",
			Help:      "Order event messages handled by the audit consumer by result",
		},
		[]string{"result"},
	)

	AuditLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "order_worker",
			Name:      "audit_write_duration_seconds",
			Help:      "Time to store one order event",
			Buckets:   prometheus.DefBuckets,
		},
	)

	AuditUncommittedOffsets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "order_worker",
			Name:      "audit_uncommitted_offsets",
			Help:      "Acked order event offsets waiting for an earlier offset before they can be committed",
		},
	)

	InflightAuditJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "order_worker",
			Name:      "inflight_audit_jobs",
			Help:      "Number of events currently being stored (semaphore depth)",
		},
	)
)
