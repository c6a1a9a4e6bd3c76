// Package metrics defines the Prometheus collectors shared by the tool
// registry, the stream relay and the HTTP server. Collectors register with
// the default registry on package load.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskmesh"

var (
	// graphMutations counts successful graph mutations.
	// Labels: action (create, edit, update_status, delete)
	graphMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "mutations_total",
		Help:      "Total successful task graph mutations",
	}, []string{"action"})

	// toolFailures counts tool calls that ended as a no-op observation.
	// Labels: tool, code (VALIDATION_ERROR, MALFORMED_PAYLOAD, ...)
	toolFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tool",
		Name:      "failures_total",
		Help:      "Total failed tool invocations",
	}, []string{"tool", "code"})

	// streamEvents counts events forwarded to stream consumers.
	// Labels: type (token, thinking, graph_update, done)
	streamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "relay",
		Name:      "events_total",
		Help:      "Total events delivered to stream consumers",
	}, []string{"type"})

	// turnDuration measures the wall time of a reasoning turn.
	// Labels: status (success, error)
	turnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "relay",
		Name:      "turn_duration_seconds",
		Help:      "Reasoning turn duration in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"status"})

	// activeStreams tracks streams currently being relayed.
	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "relay",
		Name:      "active_streams",
		Help:      "Number of turns currently streaming",
	})
)

// RecordMutation counts one successful mutation.
func RecordMutation(action string) {
	graphMutations.WithLabelValues(action).Inc()
}

// RecordToolFailure counts one failed tool call.
func RecordToolFailure(tool, code string) {
	toolFailures.WithLabelValues(tool, code).Inc()
}

// RecordStreamEvent counts one delivered stream event.
func RecordStreamEvent(eventType string) {
	streamEvents.WithLabelValues(eventType).Inc()
}

// ObserveTurn records the duration of a finished turn.
func ObserveTurn(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	turnDuration.WithLabelValues(status).Observe(d.Seconds())
}

// StreamStarted increments the active stream gauge and returns a func that
// decrements it again.
func StreamStarted() (done func()) {
	activeStreams.Inc()
	return activeStreams.Dec
}
