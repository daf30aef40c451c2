// Package metrics exposes Prometheus metrics for the import engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/feerecon/internal/core"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for duration histograms.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry sets the registry metrics are registered on and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager owns every metric and implements core.Recorder.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	rows           *prometheus.CounterVec
	imports        *prometheus.CounterVec
	importDuration prometheus.Histogram
	amount         prometheus.Counter

	jobs       *prometheus.CounterVec
	activeJobs prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ core.Recorder = (*Manager)(nil)

// NewManager creates a Manager on its own registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "feerecon",
		buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.rows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Rows processed by outcome (success, duplicate, error, not_found)",
	}, []string{"outcome"})

	m.imports = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "import",
		Name:      "files_total",
		Help:      "Files processed by result status",
	}, []string{"status", "validate_only"})

	m.importDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Time to process one file",
		Buckets:   m.buckets,
	})

	m.amount = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "import",
		Name:      "amount_committed_total",
		Help:      "Sum of payment amounts committed to the ledger",
	})

	m.jobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Background jobs by terminal status",
	}, []string{"status"})

	m.activeJobs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "jobs",
		Name:      "active",
		Help:      "Background jobs currently running",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
}

// ImportFinished records the row accounting of one processed file.
func (m *Manager) ImportFinished(r core.ImportResult, elapsed time.Duration) {
	m.rows.WithLabelValues("success").Add(float64(r.SuccessCount))
	m.rows.WithLabelValues("duplicate").Add(float64(r.DuplicateCount))
	m.rows.WithLabelValues("error").Add(float64(r.ErrorCount - r.NotFoundCount))
	m.rows.WithLabelValues("not_found").Add(float64(r.NotFoundCount))

	m.imports.WithLabelValues(string(r.Status), strconv.FormatBool(r.ValidateOnly)).Inc()
	m.importDuration.Observe(elapsed.Seconds())

	if !r.ValidateOnly {
		amount, _ := r.Summary.TotalAmountProcessed.Float64()
		m.amount.Add(amount)
	}
}

// JobStarted increments the active job gauge.
func (m *Manager) JobStarted() {
	m.activeJobs.Inc()
}

// JobFinished decrements the active job gauge and counts the outcome.
func (m *Manager) JobFinished(status core.JobStatus) {
	m.activeJobs.Dec()
	m.jobs.WithLabelValues(string(status)).Inc()
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}
