// Package metrics provides Prometheus metrics for the support chat client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesReceived counts new_message events appended to the local sequence.
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskchat_messages_received_total",
			Help: "Total number of live messages received",
		},
	)

	// MessagesSent counts send_message emits by message type.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskchat_messages_sent_total",
			Help: "Total number of messages emitted",
		},
		[]string{"type"},
	)

	// TypingSignals counts typing emits by state.
	TypingSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskchat_typing_signals_total",
			Help: "Total number of typing signals emitted",
		},
		[]string{"is_typing"},
	)

	// ReadMarks counts mark_read emits.
	ReadMarks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskchat_read_marks_total",
			Help: "Total number of mark_read signals emitted",
		},
	)

	// Uploads counts image uploads by result.
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskchat_uploads_total",
			Help: "Total number of image uploads",
		},
		[]string{"result"},
	)

	// ConnectionTransitions tracks connection state changes.
	ConnectionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskchat_connection_transitions_total",
			Help: "Total number of connection state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// RequestDuration tracks backend HTTP latency per call.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskchat_backend_request_duration_seconds",
			Help:    "Duration of backend REST calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call", "outcome"},
	)
)

// ObserveRequest records the latency of one backend call.
func ObserveRequest(call string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RequestDuration.WithLabelValues(call, outcome).Observe(time.Since(start).Seconds())
}

// RecordTyping increments the typing counter for the given state.
func RecordTyping(isTyping bool) {
	if isTyping {
		TypingSignals.WithLabelValues("true").Inc()
		return
	}
	TypingSignals.WithLabelValues("false").Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
