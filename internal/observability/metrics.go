package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wicara_active_sessions",
		Help: "Number of connected WebSocket sessions",
	})

	sessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wicara_sessions_total",
		Help: "Total number of sessions established",
	})

	// Message metrics
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wicara_messages_total",
		Help: "Total inbound messages processed",
	}, []string{"type"})

	// Completion metrics
	completionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wicara_completion_requests_total",
		Help: "Total chat completion requests",
	}, []string{"status"})

	completionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wicara_completion_latency_seconds",
		Help:    "Chat completion latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wicara_synthesis_requests_total",
		Help: "Total speech synthesis requests",
	}, []string{"status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wicara_synthesis_latency_seconds",
		Help:    "Speech synthesis latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Voice cache metrics
	voiceCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wicara_voice_cache_lookups_total",
		Help: "Voice cache lookups by outcome",
	}, []string{"outcome"}) // outcome: "hit" or "miss"
)

// RecordSessionStart records an established session.
func RecordSessionStart() {
	activeSessions.Inc()
	sessionsTotal.Inc()
}

// RecordSessionEnd records a disconnected session.
func RecordSessionEnd() {
	activeSessions.Dec()
}

// RecordMessage records one inbound message of the given wire type.
func RecordMessage(messageType string) {
	messagesTotal.WithLabelValues(messageType).Inc()
}

// RecordCompletion records a completion call's outcome and latency.
func RecordCompletion(seconds float64, success bool) {
	completionLatency.Observe(seconds)
	completionRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordSynthesis records a synthesis call's outcome and latency.
func RecordSynthesis(seconds float64, success bool) {
	synthesisLatency.Observe(seconds)
	synthesisRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordCacheLookup records a voice cache hit or miss.
func RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	voiceCacheLookups.WithLabelValues(outcome).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
