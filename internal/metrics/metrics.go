// Package metrics exposes Prometheus counters for exam activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "examdrive"

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_started_total",
		Help:      "Exam sessions started by students.",
	})

	// Submissions is labelled by how the session ended: voluntary or window_cutoff.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Exam sessions closed, by kind.",
	}, []string{"kind"})

	Violations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "violations_total",
		Help:      "Anti-cheat violations recorded, by violation type.",
	}, []string{"kind"})

	Disqualifications = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "disqualifications_total",
		Help:      "Students disqualified.",
	})

	WindowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "window_transitions_total",
		Help:      "Drive window changes, by action.",
	}, []string{"action"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
