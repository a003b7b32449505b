// Package metrics exposes Prometheus collectors for compilation and run
// activity
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Metrics holds the engine's collectors on a private registry
type Metrics struct {
	registry     *prometheus.Registry
	compilations *prometheus.CounterVec
	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	runDuration  prometheus.Histogram
	activeRuns   prometheus.Gauge
	steps        *prometheus.CounterVec
	tasks        *prometheus.CounterVec
}

const namespace = "cloudslang"

const (
	statusOK    = "ok"
	statusError = "error"
)

// New creates the collectors, registering them with the process and Go
// runtime collectors on a new registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		compilations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compilations_total",
			Help:      "Executables compiled, by outcome",
		}, []string{"status"}),
		runsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Runs started",
		}),
		runsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Runs that stopped, by final status",
		}, []string{"status"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of runs from start to stop",
			Buckets:   prometheus.DefBuckets,
		}),
		activeRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Runs currently stepping",
		}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Plan steps executed, by step kind",
		}, []string{"kind"}),
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Task invocations that returned, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) CompileFinished(err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	m.compilations.WithLabelValues(status).Inc()
}

func (m *Metrics) RunStarted() {
	m.runsStarted.Inc()
	m.activeRuns.Inc()
}

func (m *Metrics) RunFinished(status api.RunStatus, d time.Duration) {
	m.activeRuns.Dec()
	m.runsFinished.WithLabelValues(string(status)).Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) StepExecuted(kind api.StepKind) {
	m.steps.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) TaskFinished(result api.Name) {
	m.tasks.WithLabelValues(string(result)).Inc()
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
