// Package metrics exposes Prometheus instrumentation for the protocol
// runtime: request counters and latency, stream fan-out volume, and task
// lifecycle counts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "a2a"

var (
	// requestsTotal counts protocol operations by method and outcome.
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of protocol requests",
		},
		[]string{"method", "status"}, // status: success, error
	)

	// requestDuration is a histogram of request handling duration.
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Histogram of protocol request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// rpcErrorsTotal counts protocol errors by JSON-RPC error code.
	rpcErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_errors_total",
			Help:      "Total number of protocol errors by code",
		},
		[]string{"code"},
	)

	// streamEventsTotal counts events delivered to streaming subscribers.
	streamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Total number of events delivered over streams",
		},
		[]string{"kind"},
	)

	// streamsActive is a gauge of currently open event streams.
	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Number of currently open event streams",
		},
	)

	// tasksCreatedTotal counts tasks created by the orchestrator.
	tasksCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Total number of tasks created",
		},
	)

	// tasksTerminatedTotal counts tasks reaching a result state.
	tasksTerminatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_terminated_total",
			Help:      "Total number of tasks reaching a result state",
		},
		[]string{"state"},
	)

	// allMetrics is the list of collectors to register.
	allMetrics = []prometheus.Collector{
		requestsTotal,
		requestDuration,
		rpcErrorsTotal,
		streamEventsTotal,
		streamsActive,
		tasksCreatedTotal,
		tasksTerminatedTotal,
	}
)

// RecordRequest records a completed protocol operation.
func RecordRequest(method, status string, durationSeconds float64) {
	requestsTotal.WithLabelValues(method, status).Inc()
	requestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordRPCError records a protocol error by its JSON-RPC code.
func RecordRPCError(code string) {
	rpcErrorsTotal.WithLabelValues(code).Inc()
}

// RecordStreamEvent records an event delivered to a streaming subscriber.
func RecordStreamEvent(kind string) {
	streamEventsTotal.WithLabelValues(kind).Inc()
}

// RecordStreamOpen records an event stream being opened.
func RecordStreamOpen() {
	streamsActive.Inc()
}

// RecordStreamClose records an event stream being closed.
func RecordStreamClose() {
	streamsActive.Dec()
}

// RecordTaskCreated records a task being created.
func RecordTaskCreated() {
	tasksCreatedTotal.Inc()
}

// RecordTaskTerminated records a task reaching a result state.
func RecordTaskTerminated(state string) {
	tasksTerminatedTotal.WithLabelValues(state).Inc()
}

/*
Registry builds a Prometheus registry holding the runtime metrics plus
the Go runtime and process collectors.
*/
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	for _, collector := range allMetrics {
		reg.MustRegister(collector)
	}

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return reg
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
