// =============================================================================
// metrics.go - Prometheus Instrumentation for the Server
// =============================================================================

package main

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/attic/lightcli/lightcli"
)

const metricsNamespace = "lightcli"

// metrics implements lightcli.Observer. One instance is shared by every
// connection; Prometheus collectors are safe for concurrent use.
type metrics struct {
	bytesReceived prometheus.Counter
	events        *prometheus.CounterVec
	errors        *prometheus.CounterVec
	connections   prometheus.Gauge
}

// newMetrics registers the server collectors with reg.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		bytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "received_bytes_total",
			Help:      "Total number of bytes read from clients",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Total number of parser events",
		}, []string{"kind"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Total number of poll failures",
		}, []string{"kind"}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "open_connections",
			Help:      "Number of client connections being served",
		}),
	}
}

// ObserveBytes implements lightcli.Observer.
func (m *metrics) ObserveBytes(n int) {
	m.bytesReceived.Add(float64(n))
}

// ObserveEvent implements lightcli.Observer.
func (m *metrics) ObserveEvent(ev lightcli.Event) {
	m.events.WithLabelValues(ev.Kind.String()).Inc()
}

// ObserveError implements lightcli.Observer.
func (m *metrics) ObserveError(err error) {
	m.errors.WithLabelValues(errorKind(err)).Inc()
}

// errorKind maps an error to a low-cardinality label value.
func errorKind(err error) string {
	switch {
	case errors.Is(err, lightcli.ErrInvalidEncoding):
		return "encoding"
	case errors.Is(err, lightcli.ErrCapacityExceeded):
		return "capacity"
	default:
		return "io"
	}
}
