// Package metrics регистрирует счётчики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ResearchRuns количество запусков исследования по исходу (ok / error).
var ResearchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "painscope_research_runs_total",
	Help: "Research pipeline runs by outcome.",
}, []string{"outcome"})

// StripeEvents количество обработанных событий Stripe по типу.
var StripeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "painscope_stripe_events_total",
	Help: "Processed Stripe webhook events by type.",
}, []string{"type"})
