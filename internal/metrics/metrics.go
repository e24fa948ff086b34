// Package metrics exposes prometheus collectors for the realtime and
// reconciliation layers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	framesReceived  *prometheus.CounterVec
	framesRejected  *prometheus.CounterVec
	reconnects      *prometheus.CounterVec
	eventsIgnored   *prometheus.CounterVec
	reconcileRuns   *prometheus.CounterVec
	reconcileTiming *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airdash",
			Name:      "realtime_frames_received_total",
			Help:      "Frames received per namespace and event.",
		}, []string{"namespace", "event"}),
		framesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airdash",
			Name:      "realtime_frames_rejected_total",
			Help:      "Frames dropped because they failed validation.",
		}, []string{"namespace", "event"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airdash",
			Name:      "realtime_reconnects_total",
			Help:      "Reconnect attempts per namespace.",
		}, []string{"namespace"}),
		eventsIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airdash",
			Name:      "events_ignored_total",
			Help:      "Events a view ignored (foreign viewer, stale or unknown flight).",
		}, []string{"view", "event"}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airdash",
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation ticks by view and result.",
		}, []string{"view", "result"}),
		reconcileTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "airdash",
			Name:      "reconcile_duration_seconds",
			Help:      "Time to fetch and apply one reconciliation snapshot.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
	}
	m.registry.MustRegister(
		m.framesReceived, m.framesRejected, m.reconnects,
		m.eventsIgnored, m.reconcileRuns, m.reconcileTiming,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) FrameReceived(namespace, name string) {
	m.framesReceived.WithLabelValues(namespace, name).Inc()
}

func (m *Metrics) FrameRejected(namespace, name string) {
	m.framesRejected.WithLabelValues(namespace, name).Inc()
}

func (m *Metrics) Reconnecting(namespace string) {
	m.reconnects.WithLabelValues(namespace).Inc()
}

func (m *Metrics) EventIgnored(view, event string) {
	m.eventsIgnored.WithLabelValues(view, event).Inc()
}

func (m *Metrics) ReconcileDone(view string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "partial"
	}
	m.reconcileRuns.WithLabelValues(view, result).Inc()
	m.reconcileTiming.WithLabelValues(view).Observe(took.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
