// Package metrics defines the Prometheus collectors shared across packages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trainergpt_tool_calls_total",
		Help: "Coaching tool invocations by tool and outcome.",
	}, []string{"tool", "outcome"})

	AgentSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trainergpt_agent_steps",
		Help:    "Model steps taken per agent run.",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
	})

	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trainergpt_cache_requests_total",
		Help: "Read-through cache lookups by kind and result.",
	}, []string{"kind", "result"})

	DeloadEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trainergpt_deload_evaluations_total",
		Help: "Deload recomputations by recommendation.",
	}, []string{"should_deload"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
