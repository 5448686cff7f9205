// Package api provides Prometheus metrics for recovery runs.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the recovery pipeline.
// All record helpers are nil-safe so metrics can stay disabled.
type Metrics struct {
	// Task metrics
	TasksSubmitted prometheus.Counter
	TasksSkipped   prometheus.Counter
	ResultsTotal   *prometheus.CounterVec
	VerifyLatency  prometheus.Histogram

	// Verification metrics
	AddressesChecked prometheus.Counter
	WalletsFound     prometheus.Counter

	// Queue and pool metrics
	QueueQueued     prometheus.Gauge
	QueueProcessing prometheus.Gauge
	PoolPending     prometheus.Gauge
	UnitsLive       prometheus.Gauge
	UnitsIdle       prometheus.Gauge
	UnitsCrashed    prometheus.Counter
}

// NewMetrics registers all metrics with the given registerer under the
// namespace. Callers own the registry; nothing touches the package
// default.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TasksSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Total number of verification tasks submitted",
		}),
		TasksSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_skipped_total",
			Help:      "Tasks skipped because a prior run already checked them",
		}),
		ResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Verification results by outcome",
		}, []string{"outcome"}),
		VerifyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verify_latency_seconds",
			Help:      "Per-task verification latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),

		AddressesChecked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "addresses_checked_total",
			Help:      "Total addresses queried against the balance oracle",
		}),
		WalletsFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallets_found_total",
			Help:      "Number of matching wallets found",
		}),

		QueueQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_queued",
			Help:      "Tasks waiting in the queue",
		}),
		QueueProcessing: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_processing",
			Help:      "Tasks handed to the pool and not yet terminal",
		}),
		PoolPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_pending",
			Help:      "Tasks pending dispatch inside the worker pool",
		}),
		UnitsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "units_live",
			Help:      "Worker units still alive",
		}),
		UnitsIdle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "units_idle",
			Help:      "Worker units currently idle",
		}),
		UnitsCrashed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_crashed_total",
			Help:      "Worker units permanently lost to crashes",
		}),
	}
}

// RecordSubmitted counts tasks accepted for verification.
func (m *Metrics) RecordSubmitted(n int) {
	if m == nil {
		return
	}
	m.TasksSubmitted.Add(float64(n))
}

// RecordSkipped counts tasks filtered out by the resume set.
func (m *Metrics) RecordSkipped(n int) {
	if m == nil {
		return
	}
	m.TasksSkipped.Add(float64(n))
}

// RecordResult records one finished verification.
func (m *Metrics) RecordResult(found bool, errored bool, addresses int, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "completed"
	switch {
	case found:
		outcome = "found"
		m.WalletsFound.Inc()
	case errored:
		outcome = "error"
	}
	m.ResultsTotal.WithLabelValues(outcome).Inc()
	m.VerifyLatency.Observe(duration.Seconds())
	m.AddressesChecked.Add(float64(addresses))
}

// RecordCrash counts a permanently lost unit.
func (m *Metrics) RecordCrash() {
	if m == nil {
		return
	}
	m.UnitsCrashed.Inc()
}

// UpdateQueue updates the queue gauges.
func (m *Metrics) UpdateQueue(queued, processing int) {
	if m == nil {
		return
	}
	m.QueueQueued.Set(float64(queued))
	m.QueueProcessing.Set(float64(processing))
}

// UpdateUnits updates the pool gauges.
func (m *Metrics) UpdateUnits(live, idle, pending int) {
	if m == nil {
		return
	}
	m.UnitsLive.Set(float64(live))
	m.UnitsIdle.Set(float64(idle))
	m.PoolPending.Set(float64(pending))
}

// MetricsServer runs an HTTP server exposing /metrics and /health.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics server on the given address
// serving the provided gatherer.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start starts the metrics server (blocking).
func (s *MetricsServer) Start() error {
	return s.server.ListenAndServe()
}

// StartAsync starts the metrics server in a goroutine.
func (s *MetricsServer) StartAsync() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop gracefully stops the metrics server.
func (s *MetricsServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
