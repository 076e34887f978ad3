package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_transactions_recorded_total",
		Help: "Ledger entries recorded.",
	})

	PromotionsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_promotions_redeemed_total",
		Help: "Promotion redemptions applied.",
	})

	PromotionsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_promotions_skipped_total",
		Help: "Requested promotions skipped as ineligible.",
	})

	TierChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_tier_changes_total",
		Help: "Member tier transitions observed.",
	})

	PushesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_wallet_pushes_sent_total",
		Help: "Wallet wake-up pushes delivered.",
	})

	PushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_wallet_push_failures_total",
		Help: "Wallet wake-up pushes that failed.",
	})

	OutboxTaskFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_outbox_task_failures_total",
		Help: "Outbox task attempts that failed.",
	})
)
