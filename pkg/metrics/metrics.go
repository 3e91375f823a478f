package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

var (
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transfers_total",
		Help: "Number of transfer attempts by outcome",
	}, []string{"outcome"})

	FeesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_fees_collected_total",
		Help: "Cumulative fee amount credited to the fee pool",
	})

	AccountsFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_accounts_flagged_total",
		Help: "Accounts flagged by the anti-bot detector, by rule",
	}, []string{"rule"})

	RewardsMinted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_staking_rewards_minted_total",
		Help: "Cumulative staking rewards minted",
	})

	ReferralBonuses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_referral_bonuses_total",
		Help: "Number of referral bonus payouts",
	})

	RebalancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treasury_rebalances_total",
		Help: "Treasury rebalance cycles by outcome",
	}, []string{"outcome"})

	RebalanceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "treasury_rebalance_duration_seconds",
		Help:    "Duration of treasury rebalance cycles",
		Buckets: prometheus.DefBuckets,
	})

	BridgeTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_transfers_total",
		Help: "Bridge transfers by direction and outcome",
	}, []string{"direction", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler returns the Prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
