package shim

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hostware/comhost/engine"
	"github.com/hostware/comhost/errors"
)

// Metrics exposes activation and engine telemetry as Prometheus
// collectors. Hosts that scrape pass their own registry; nil creates a
// private one reachable via Registry.
type Metrics struct {
	registry *prometheus.Registry

	activations *prometheus.CounterVec
	started     prometheus.GaugeFunc
	failed      prometheus.GaugeFunc
	scopes      prometheus.GaugeFunc
	objects     prometheus.GaugeFunc
	locks       prometheus.GaugeFunc
}

// NewMetrics creates and registers the shim collectors. The gauges read
// the session live, so scrapes always see current engine state.
func NewMetrics(registry *prometheus.Registry, session *engine.Session) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if session == nil {
		session = engine.Default()
	}

	m := &Metrics{
		registry: registry,

		activations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comhost",
				Name:      "activations_total",
				Help:      "Class activations by outcome; ok or the error kind.",
			},
			[]string{"outcome"},
		),

		started: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "comhost",
				Name:      "engine_started",
				Help:      "Whether the engine session has started (0 or 1).",
			},
			func() float64 { return boolGauge(session.Stats().Started) },
		),

		failed: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "comhost",
				Name:      "engine_start_failed",
				Help:      "Whether the engine start failed permanently (0 or 1).",
			},
			func() float64 { return boolGauge(session.Stats().Failed) },
		),

		scopes: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "comhost",
				Name:      "isolation_scopes",
				Help:      "Live assembly isolation scopes.",
			},
			func() float64 { return float64(len(session.Stats().Scopes)) },
		),

		objects: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "comhost",
				Name:      "live_objects",
				Help:      "Objects held alive by COM references.",
			},
			func() float64 { return float64(session.Stats().LiveObjects) },
		),

		locks: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "comhost",
				Name:      "server_locks",
				Help:      "Outstanding IClassFactory.LockServer locks.",
			},
			func() float64 { return float64(session.Stats().ServerLocks) },
		),
	}

	registry.MustRegister(
		m.activations,
		m.started,
		m.failed,
		m.scopes,
		m.objects,
		m.locks,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordActivation records one GetClassObject outcome.
func (m *Metrics) RecordActivation(err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(errors.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.activations.WithLabelValues(outcome).Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
