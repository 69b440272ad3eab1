package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VerificationsTotal counts payment verifications by path and outcome.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumegate",
		Subsystem: "payments",
		Name:      "verifications_total",
		Help:      "Payment verifications by path (signature/status_lookup) and outcome.",
	}, []string{"path", "outcome"})

	// GenerationsTotal counts generation attempts by tier and outcome.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumegate",
		Subsystem: "generation",
		Name:      "requests_total",
		Help:      "Generation requests by tier and outcome.",
	}, []string{"tier", "outcome"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "resumegate",
		Subsystem: "generation",
		Name:      "duration_seconds",
		Help:      "Time spent waiting on the generator.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
	}, []string{"tier"})

	CreditsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumegate",
		Subsystem: "entitlements",
		Name:      "credits_consumed_total",
		Help:      "Credits charged after a successful generation.",
	}, []string{"tier"})

	// HTTPRequestsTotal counts API responses by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumegate",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"route", "status"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumegate",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"route"})
)
