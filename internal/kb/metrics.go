package kb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tierHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rlchat_retrieval_tier_hits_total",
		Help: "Answers won per knowledge tier.",
	}, []string{"tier"})

	retrievalFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rlchat_retrieval_fallbacks_total",
		Help: "Lookups where no tier cleared its threshold.",
	})

	correctionsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rlchat_admin_corrections_total",
		Help: "Operator corrections written to the admin-edits tier.",
	})
)

func observeTierHit(tier string) {
	tierHits.WithLabelValues(tier).Inc()
}

func observeFallback() {
	retrievalFallbacks.Inc()
}

func observeCorrectionStored() {
	correctionsStored.Inc()
}
