package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notifykit"

// Recorder exports delivery metrics to Prometheus. It satisfies
// notifications.MetricsRecorder.
type Recorder struct {
	registry *prometheus.Registry

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	transitions      *prometheus.CounterVec
	sweepRows        *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a Recorder backed by its own registry, which also carries the
// Go runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Dispatcher calls by channel and outcome.",
		}, []string{"channel", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent in channel dispatchers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Committed notification status changes by resulting status.",
		}, []string{"status"}),
		sweepRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_rows_total",
			Help:      "Rows handled by periodic sweeps by result.",
		}, []string{"sweep", "result"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Integration event publish attempts.",
		}, []string{"routing_key", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.dispatchTotal,
		r.dispatchDuration,
		r.transitions,
		r.sweepRows,
		r.eventsPublished,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// Registry exposes the underlying registry, e.g. for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Dispatch(channel, outcome string, elapsed time.Duration) {
	r.dispatchTotal.WithLabelValues(channel, outcome).Inc()
	r.dispatchDuration.WithLabelValues(channel).Observe(elapsed.Seconds())
}

func (r *Recorder) Transition(status string) {
	r.transitions.WithLabelValues(status).Inc()
}

func (r *Recorder) SweepRows(sweep, result string, n int) {
	if n <= 0 {
		return
	}
	r.sweepRows.WithLabelValues(sweep, result).Add(float64(n))
}

func (r *Recorder) EventPublished(routingKey, result string) {
	r.eventsPublished.WithLabelValues(routingKey, result).Inc()
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
