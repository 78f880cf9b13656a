// Package metrics exposes runtime counters through a private Prometheus
// registry. The collectors attach to the event bus as ordinary
// subscribers, so they exercise the same cross-cutting listener path the
// UI uses and the core components stay metrics-unaware.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracklet/appkit/command"
	"github.com/tracklet/appkit/event"
	"github.com/tracklet/appkit/store"
)

// Metrics holds the application collectors.
type Metrics struct {
	registry *prometheus.Registry

	commands   *prometheus.CounterVec
	mutations  *prometheus.CounterVec
	historyOps *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "appkit",
				Subsystem: "commands",
				Name:      "dispatches_total",
				Help:      "Command dispatches by command name and outcome.",
			},
			[]string{"command", "status"},
		),

		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "appkit",
				Subsystem: "store",
				Name:      "mutations_total",
				Help:      "State mutations committed, by mutation name.",
			},
			[]string{"mutation"},
		),

		historyOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "appkit",
				Subsystem: "store",
				Name:      "history_operations_total",
				Help:      "Undo/redo/replace operations on the state store.",
			},
			[]string{"operation"},
		),
	}

	m.registry.MustRegister(m.commands, m.mutations, m.historyOps)
	return m
}

// Attach subscribes the collectors to the lifecycle and state events.
func (m *Metrics) Attach(bus *event.Bus) {
	bus.Subscribe(command.EventStart, func(payload any) {
		if ev, ok := payload.(command.LifecycleEvent); ok {
			m.commands.WithLabelValues(ev.Command, "started").Inc()
		}
	})
	bus.Subscribe(command.EventSuccess, func(payload any) {
		if ev, ok := payload.(command.LifecycleEvent); ok {
			m.commands.WithLabelValues(ev.Command, "success").Inc()
		}
	})
	bus.Subscribe(command.EventError, func(payload any) {
		if ev, ok := payload.(command.LifecycleEvent); ok {
			m.commands.WithLabelValues(ev.Command, "error").Inc()
		}
	})

	bus.Subscribe(store.EventChange, func(payload any) {
		if ev, ok := payload.(store.ChangeEvent); ok {
			m.mutations.WithLabelValues(ev.Mutation).Inc()
		}
	})
	bus.Subscribe(store.EventUndo, func(any) { m.historyOps.WithLabelValues("undo").Inc() })
	bus.Subscribe(store.EventRedo, func(any) { m.historyOps.WithLabelValues("redo").Inc() })
	bus.Subscribe(store.EventReplaced, func(any) { m.historyOps.WithLabelValues("replace").Inc() })
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
