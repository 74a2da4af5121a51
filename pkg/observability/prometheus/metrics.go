package prometheus

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fluxorio/linehttpd/pkg/core/concurrency"
)

var (
	// DefaultRegistry is the registry served on /metrics.
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer labels every metric with the service name.
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "linehttpd"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds the server's Prometheus collectors. It implements
// concurrency.Observer so it can be handed straight to the worker pool.
type Metrics struct {
	registerer prometheus.Registerer

	// Worker pool
	JobsTotal    *prometheus.CounterVec
	JobDuration  prometheus.Histogram
	JobsInFlight prometheus.Gauge
	WorkersAlive prometheus.Gauge
	WorkersLost  prometheus.Counter

	// Connections
	ConnectionsTotal *prometheus.CounterVec
	ResponsesTotal   *prometheus.CounterVec
	RequestBytes     prometheus.Histogram
}

// GetMetrics returns the process-wide metrics on DefaultRegisterer, with Go
// runtime and process collectors.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		DefaultRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics registers a fresh metric set on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	f := promauto.With(registerer)

	return &Metrics{
		registerer: registerer,

		JobsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linehttpd_jobs_total",
				Help: "Jobs executed by the worker pool, by outcome",
			},
			[]string{"outcome"}, // ok, error, panic
		),
		JobDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linehttpd_job_duration_seconds",
				Help:    "Time from job start to job end",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
		),
		JobsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "linehttpd_jobs_in_flight",
				Help: "Jobs currently executing",
			},
		),
		WorkersAlive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "linehttpd_workers_alive",
				Help: "Workers whose loop is still running",
			},
		),
		WorkersLost: f.NewCounter(
			prometheus.CounterOpts{
				Name: "linehttpd_workers_lost_total",
				Help: "Workers that exited because a job panicked",
			},
		),

		ConnectionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linehttpd_connections_total",
				Help: "Connections handled, by result",
			},
			[]string{"result"}, // ok, error
		),
		ResponsesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linehttpd_responses_total",
				Help: "Responses written, by status (none for dropped connections)",
			},
			[]string{"status"},
		),
		RequestBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linehttpd_request_bytes",
				Help:    "Bytes taken by the single request read",
				Buckets: prometheus.ExponentialBuckets(16, 2, 10), // 16B to 8KiB
			},
		),
	}
}

var _ concurrency.Observer = (*Metrics)(nil)

// WorkerStarted implements concurrency.Observer.
func (m *Metrics) WorkerStarted(int) {
	m.WorkersAlive.Inc()
}

// WorkerExited implements concurrency.Observer.
func (m *Metrics) WorkerExited(_ int, panicked bool) {
	m.WorkersAlive.Dec()
	if panicked {
		m.WorkersLost.Inc()
	}
}

// JobStarted implements concurrency.Observer.
func (m *Metrics) JobStarted(int, string) {
	m.JobsInFlight.Inc()
}

// JobFinished implements concurrency.Observer.
func (m *Metrics) JobFinished(_ int, _ string, elapsed time.Duration, err error) {
	m.JobsInFlight.Dec()
	m.JobDuration.Observe(elapsed.Seconds())
	switch {
	case err == nil:
		m.JobsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, concurrency.ErrJobPanicked):
		m.JobsTotal.WithLabelValues("panic").Inc()
	default:
		m.JobsTotal.WithLabelValues("error").Inc()
	}
}

// RegisterPool exposes live pool stats as gauges.
func (m *Metrics) RegisterPool(pool concurrency.WorkerPool) error {
	return m.registerer.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "linehttpd_queue_depth",
			Help: "Jobs waiting in the worker pool queue",
		},
		func() float64 { return float64(pool.Stats().Queued) },
	))
}
