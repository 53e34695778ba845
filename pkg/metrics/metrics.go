// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TurnsTotal counts processed inbound turns by journey and outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chative_turns_total",
			Help: "Inbound turns processed",
		},
		[]string{"journey", "outcome"},
	)

	// TurnDuration tracks end-to-end turn latency.
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chative_turn_duration_seconds",
			Help:    "Turn processing duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"journey"},
	)

	// DecisionsTotal counts decision node outcomes by source and fallback reason.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chative_decisions_total",
			Help: "Decision node outcomes",
		},
		[]string{"node", "source", "fallback"},
	)

	// LLMCostUSD accumulates model spend per model name.
	LLMCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chative_llm_cost_usd_total",
			Help: "Accumulated LLM cost in USD",
		},
		[]string{"model"},
	)

	// ToolCallsTotal counts tool invocations by tool and error code.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chative_tool_calls_total",
			Help: "Tool invocations",
		},
		[]string{"tool", "code"},
	)

	// EscalationsTotal counts escalations by reason.
	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chative_escalations_total",
			Help: "Escalations to a human agent",
		},
		[]string{"reason", "priority"},
	)

	// HTTPRequestsTotal counts API requests by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chative_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chative_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// OrdersCreated counts orders created by the sales journey.
	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chative_orders_created_total",
			Help: "Orders created by the orchestrator",
		},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
