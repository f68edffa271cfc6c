// services/metrics.go
package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spinwin_spins_total",
		Help: "Spins by restaurant and outcome (ok, quota_exceeded).",
	}, []string{"restaurant", "outcome"})

	claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spinwin_claims_total",
		Help: "Reward claims by restaurant.",
	}, []string{"restaurant"})

	remoteClaimFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spinwin_remote_claim_failures_total",
		Help: "Reward claims whose backend write failed and live only locally.",
	})

	dashboardLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spinwin_dashboard_loads_total",
		Help: "Dashboard loads by source (remote, local).",
	}, []string{"source"})

	sessionDemotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spinwin_session_demotions_total",
		Help: "Restored sessions demoted to anonymous.",
	})

	authTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spinwin_auth_transitions_total",
		Help: "Auth flow state transitions by target state.",
	}, []string{"state"})
)
