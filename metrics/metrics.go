// Package metrics provides Prometheus instrumentation for the collaboration
// core: mediator traffic, handler faults, toasts and autosaves.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MediatorEvents counts events delivered to components, labeled by event kind.
	MediatorEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_mediator_events_total",
		Help: "Events delivered by the mediator to registered components",
	}, []string{"kind"})

	// HandlerFaults counts component handlers that returned an error or panicked.
	HandlerFaults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_mediator_handler_faults_total",
		Help: "Component event handlers that failed during dispatch",
	}, []string{"component"})

	// SessionEvents counts presence events, labeled by type: joined, left, status, typing.
	SessionEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_session_events_total",
		Help: "Presence events emitted by the session registry",
	}, []string{"type"})

	// PresentUsers tracks the size of the current roster.
	PresentUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "collab_present_users",
		Help: "Users currently present in the session roster",
	})

	// ToastsShown counts toasts, labeled by kind.
	ToastsShown = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_toasts_total",
		Help: "Toast notifications shown",
	}, []string{"kind"})

	// Autosaves counts debounced saves, labeled by result: "ok" or "failed".
	Autosaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_autosaves_total",
		Help: "Debounced autosave invocations",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		MediatorEvents,
		HandlerFaults,
		SessionEvents,
		PresentUsers,
		ToastsShown,
		Autosaves,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
