package chat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rlchat_route_decisions_total",
		Help: "Routing outcomes per route and decision reason.",
	}, []string{"route", "decision"})

	actionExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rlchat_action_executions_total",
		Help: "Action executions per action id and outcome.",
	}, []string{"action_id", "outcome"})

	chatDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rlchat_chat_duration_seconds",
		Help:    "End-to-end chat turn latency per path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
)

func observeRouteDecision(route, decision string) {
	routeDecisions.WithLabelValues(route, decision).Inc()
}

func observeActionExecution(actionID, outcome string) {
	actionExecutions.WithLabelValues(actionID, outcome).Inc()
}

func observeChatDuration(path string, d time.Duration) {
	chatDuration.WithLabelValues(path).Observe(d.Seconds())
}
