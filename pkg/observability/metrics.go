package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// Operation results recorded by ObserveOperation.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	steps      prometheus.Counter
	halts      *prometheus.CounterVec
	runSteps   prometheus.Histogram
	operations *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a dedicated registry
// together with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turing_steps_total",
			Help: "Total number of executed transitions",
		}),
		halts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turing_halts_total",
			Help: "Total number of halts by reason",
		}, []string{"reason"}),
		runSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "turing_run_steps",
			Help:    "Steps executed per run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turing_operations_total",
			Help: "Service operations by name and result",
		}, []string{"op", "result"}),
	}

	m.registry.MustRegister(
		m.steps,
		m.halts,
		m.runSteps,
		m.operations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns engine hooks feeding the step and halt collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStep: func(_ context.Context, _ *domain.StepEvent) {
			m.steps.Inc()
		},
		OnHalt: func(_ context.Context, e *domain.HaltEvent) {
			m.halts.WithLabelValues(string(e.Reason)).Inc()
			m.runSteps.Observe(float64(e.Steps))
		},
	}
}

// ObserveOperation counts one service operation. A nil err records ResultOK.
func (m *Metrics) ObserveOperation(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(op, result).Inc()
}
