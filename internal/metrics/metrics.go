// Package metrics provides Prometheus instrumentation for the captcha
// server. It exposes gauges for connection and token counts, counters for
// challenge and verification throughput, and a histogram for render latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "captcha_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// ChallengesIssued counts challenges generated and sent to clients.
	ChallengesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "captcha_challenges_issued_total",
		Help: "Total number of challenges issued",
	})

	// ChallengesExpired counts challenges that timed out before being solved
	// or after a token was issued.
	ChallengesExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "captcha_challenges_expired_total",
		Help: "Total number of challenges that expired",
	})

	// VerificationsTotal counts solution submissions, labeled by result:
	// "verified" or "not_verified".
	VerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "captcha_verifications_total",
		Help: "Total number of solution submissions by result",
	}, []string{"result"})

	// VerifiedTokens tracks the number of currently valid tokens in the registry.
	VerifiedTokens = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "captcha_verified_tokens",
		Help: "Current number of valid verification tokens",
	})

	// RenderDuration records challenge rasterization latency in seconds.
	RenderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "captcha_render_duration_seconds",
		Help:    "Challenge render and encode latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		ChallengesIssued,
		ChallengesExpired,
		VerificationsTotal,
		VerifiedTokens,
		RenderDuration,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
