package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP server
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Relay sender
	DatagramsSent prometheus.Counter
	SendErrors    prometheus.Counter
	FormErrors    prometheus.Counter

	// Relay listener
	DatagramsReceived  prometheus.Counter
	DatagramsTruncated prometheus.Counter
	DecodeErrors       prometheus.Counter
	MessagesStored     prometheus.Counter
	InsertErrors       prometheus.Counter
	InsertDuration     prometheus.Histogram
}

// New creates all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formrelay_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "formrelay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		DatagramsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "formrelay_datagrams_sent_total",
			Help: "Total number of form submissions relayed as datagrams",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "formrelay_send_errors_total",
			Help: "Total number of failed datagram sends",
		}),
		FormErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "formrelay_form_errors_total",
			Help: "Total number of form bodies that could not be read or parsed",
		}),

		DatagramsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "formrelay_datagrams_received_total",
			Help: "Total number of datagrams received by the listener",
		}),
		DatagramsTruncated: factory.NewCounter(prometheus.CounterOpts{
			Name: "formrelay_datagrams_truncated_total",
			Help: "Total number of datagrams that filled the receive buffer",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "formrelay_decode_errors_total",
			Help: "Total number of datagrams that failed to decode",
		}),
		MessagesStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "formrelay_messages_stored_total",
			Help: "Total number of messages inserted into the sink",
		}),
		InsertErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "formrelay_insert_errors_total",
			Help: "Total number of failed sink inserts",
		}),
		InsertDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "formrelay_insert_duration_seconds",
			Help:    "Time spent in sink inserts",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}
}

// RecordHTTPRequest records one finished request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, seconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
