package payout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_decisions_total",
			Help: "Withdrawal requests by automatic decision",
		},
		[]string{"decision"},
	)

	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_transfers_total",
			Help: "Payout transfer attempts by outcome",
		},
		[]string{"outcome"},
	)

	trustScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payout_trust_score",
			Help:    "Distribution of computed trust scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)
