// Package metrics defines the Prometheus metrics exported by housesplit.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "housesplit"

// Metrics holds every collector on its own registry so tests can create
// independent instances.
type Metrics struct {
	Registry *prometheus.Registry

	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	Recomputes          prometheus.Counter
	DiscardedRecomputes prometheus.Counter
	RecomputeDuration   prometheus.Histogram
	SkippedRecords      prometheus.Gauge
	Expenses            prometheus.Gauge

	EventsPublished *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Connect RPC requests by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Connect RPC handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		Recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_recomputes_total",
			Help:      "Balance projections computed from a ledger snapshot.",
		}),
		DiscardedRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_discarded_total",
			Help:      "Projections dropped because a newer one was already applied.",
		}),
		RecomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "projection_duration_seconds",
			Help:      "Time to recompute the balance projection.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		SkippedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "projection_skipped_records",
			Help:      "Expenses left out of the current projection.",
		}),
		Expenses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expenses",
			Help:      "Expenses in the current projection.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Change events published to AMQP by kind and result.",
		}, []string{"kind", "result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RPCRequests,
		m.RPCDuration,
		m.Recomputes,
		m.DiscardedRecomputes,
		m.RecomputeDuration,
		m.SkippedRecords,
		m.Expenses,
		m.EventsPublished,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
