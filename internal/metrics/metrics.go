package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ledger metrics
	LedgerTxTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lgevault_ledger_tx_total",
			Help: "Total number of ledger transactions by operation and outcome",
		},
		[]string{"op", "outcome"}, // outcome is "ok" or the rejection tag
	)

	LedgerTxDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lgevault_ledger_tx_duration_seconds",
			Help:    "Duration of ledger transactions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"op"},
	)

	LedgerHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lgevault_ledger_height",
			Help: "Height of the last committed block",
		},
	)

	ReceiptsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lgevault_ledger_receipts_dropped_total",
			Help: "Receipts not delivered to a subscriber whose buffer was full",
		},
	)

	// Vault metrics
	VaultRewardsDistributed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lgevault_vault_rewards_distributed_total",
			Help: "Reward units folded into pool accumulators, dev cut excluded",
		},
	)

	VaultDevFeesPaid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lgevault_vault_dev_fees_paid_total",
			Help: "Reward units skimmed to the dev address",
		},
	)

	VaultRewardsPaid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lgevault_vault_rewards_paid_total",
			Help: "Reward units paid out to stakers",
		},
	)

	VaultPoolStaked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lgevault_vault_pool_staked",
			Help: "Stake token held by the vault per pool",
		},
		[]string{"pid", "stake_token"},
	)

	// LGE metrics
	LGETotalContributed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lgevault_lge_total_contributed",
			Help: "Native currency contributed to the liquidity generation event",
		},
	)

	LGEClaimsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lgevault_lge_claims_total",
			Help: "Number of successful LP claims",
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lgevault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lgevault_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lgevault_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lgevault_websocket_clients",
			Help: "Connected receipt feed clients",
		},
	)
)
