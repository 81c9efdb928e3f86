package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/grove/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grove"

// Metrics records reconciliation and handle lifecycle events.
type Metrics struct {
	registry *prometheus.Registry

	reconciles    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	liveHandles   *prometheus.GaugeVec
	invalidations *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reconciles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "total",
				Help:      "Total reconciliation passes per dispatcher.",
			},
			[]string{"provider", "dispatcher"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "duration_seconds",
				Help:      "Duration of reconciliation passes in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"provider", "dispatcher"},
		),
		liveHandles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "live_handles",
				Help:      "Handles currently issued, per kind.",
			},
			[]string{"provider", "kind"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "invalidated_handles_total",
				Help:      "Handles dropped from the registry, per kind and reason.",
			},
			[]string{"provider", "kind", "reason"},
		),
	}
	m.registry.MustRegister(
		m.reconciles,
		m.duration,
		m.liveHandles,
		m.invalidations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnReconcile: func(_ context.Context, e *domain.ReconcileEvent) {
			provider, dispatcher := string(e.Provider), string(e.Dispatcher)
			m.reconciles.WithLabelValues(provider, dispatcher).Inc()
			m.duration.WithLabelValues(provider, dispatcher).Observe(e.Duration.Seconds())
			m.liveHandles.WithLabelValues(provider, string(domain.KindCollection)).Set(float64(e.Collections))
			m.liveHandles.WithLabelValues(provider, string(domain.KindRequest)).Set(float64(e.Requests))
		},
		OnInvalidate: func(_ context.Context, e *domain.InvalidationEvent) {
			m.invalidations.WithLabelValues(string(e.Provider), string(e.Kind), string(e.Reason)).Add(float64(e.Count))
		},
	}
}
