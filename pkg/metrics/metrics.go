// Package metrics exposes operational Prometheus collectors for hosted sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funnel_sessions_created_total",
		Help: "Total number of conversation sessions started.",
	})

	SessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_sessions_closed_total",
			Help: "Total number of sessions torn down, by reason (closed, expired, shutdown).",
		},
		[]string{"reason"},
	)

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "funnel_sessions_active",
		Help: "Sessions currently hosted in memory.",
	})

	SessionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funnel_sessions_rejected_total",
		Help: "Session creations refused because the session cap was reached.",
	})

	Events = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_events_total",
			Help: "External events delivered to sessions, by event type and outcome (accepted, ignored, failed).",
		},
		[]string{"event", "outcome"},
	)

	MessagesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_messages_emitted_total",
			Help: "Transcript messages appended, by sender and kind.",
		},
		[]string{"sender", "kind"},
	)
)

const (
	OutcomeAccepted = "accepted"
	OutcomeIgnored  = "ignored"
	OutcomeFailed   = "failed"
)

// ObserveEvent records the outcome of a delivered event.
func ObserveEvent(event string, accepted bool) {
	outcome := OutcomeIgnored
	if accepted {
		outcome = OutcomeAccepted
	}
	Events.WithLabelValues(event, outcome).Inc()
}
