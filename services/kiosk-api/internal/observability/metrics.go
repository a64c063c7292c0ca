package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk_api",
			Name:      "orders_created_total",
			Help:      "Orders created by payment method",
		},
		[]string{"payment_method"},
	)

	OrdersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk_api",
			Name:      "orders_rejected_total",
			Help:      "Order attempts rejected by error code",
		},
		[]string{"code"},
	)

	OtpCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kiosk_api",
			Name:      "otp_collisions_total",
			Help:      "OTP draws that hit a code already held by a pending order",
		},
	)

	Redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk_api",
			Name:      "redemptions_total",
			Help:      "Machine redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	WalletMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk_api",
			Name:      "wallet_mutations_total",
			Help:      "Wallet debits and credits applied",
		},
		[]string{"type"},
	)

	CatalogCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk_api",
			Name:      "catalog_cache_lookups_total",
			Help:      "Catalog cache lookups by result",
		},
		[]string{"result"},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiosk_api",
			Name:      "event_publish_failures_total",
			Help:      "Order events that could not be enqueued",
		},
		[]string{"type"},
	)
)
