package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ClaimsWon = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_sessions_claimed_total",
			Help: "Sessions this worker claimed into in_progress",
		},
	)
	ClaimsLost = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_claim_conflicts_total",
			Help: "Claim attempts that matched zero rows (another worker won)",
		},
	)
	SessionsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_sessions_finalized_total",
			Help: "Sessions finalized, by terminal status",
		},
		[]string{"status"},
	)
	Timeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_session_timeouts_total",
			Help: "Timer expiries that forced a terminal transition, by waiting state",
		},
		[]string{"state"},
	)
	ActionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_actions_rejected_total",
			Help: "Action events rejected without mutation, by reason",
		},
		[]string{"reason"},
	)
	TransportErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_transport_errors_total",
			Help: "Failed chat send/edit side effects (logged, never retried)",
		},
	)
	FinalizeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_finalize_failures_total",
			Help: "Terminal writes that failed (critical, settlement depends on the row)",
		},
	)
)

func init() {
	prometheus.MustRegister(ClaimsWon)
	prometheus.MustRegister(ClaimsLost)
	prometheus.MustRegister(SessionsFinalized)
	prometheus.MustRegister(Timeouts)
	prometheus.MustRegister(ActionsRejected)
	prometheus.MustRegister(TransportErrors)
	prometheus.MustRegister(FinalizeFailures)
}
