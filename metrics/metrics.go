package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dinedialog"

var (
	// sessionsActive is the number of live conversations.
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Number of live dialog sessions",
	})

	// sessionsOpened counts created sessions.
	// Labels: transport (ws, rest, local)
	sessionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "opened_total",
		Help:      "Total dialog sessions created",
	}, []string{"transport"})

	// sessionsClosed counts removed sessions.
	// Labels: reason (complete, idle, client, deleted, shutdown)
	sessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "closed_total",
		Help:      "Total dialog sessions removed",
	}, []string{"reason"})

	// sessionsRejected counts refused session creations.
	sessionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "rejected_total",
		Help:      "Sessions refused because the server was full",
	})

	// turns counts processed utterances.
	// Labels: act, state (state after the turn), handled
	turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dialog",
		Name:      "turns_total",
		Help:      "Utterances processed by dialog act and resulting state",
	}, []string{"act", "state", "handled"})

	// turnsLimited counts utterances dropped by the per-session rate limit.
	turnsLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dialog",
		Name:      "rate_limited_total",
		Help:      "Utterances rejected by the per-session rate limit",
	})

	// classifyLatency measures dialog act classification.
	// Labels: classifier (keyword, gemini), status (success, error)
	classifyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "latency_seconds",
		Help:      "Dialog act classification latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"classifier", "status"})

	// classifyFallbacks counts classifications answered by the fallback classifier.
	// Labels: reason (error, no_call, bad_label)
	classifyFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "fallbacks_total",
		Help:      "Classifications that fell back to the keyword classifier",
	}, []string{"reason"})
)

// SessionOpened records a new session on transport.
func SessionOpened(transport string) {
	sessionsActive.Inc()
	sessionsOpened.WithLabelValues(transport).Inc()
}

// SessionClosed records a removed session.
func SessionClosed(reason string) {
	sessionsActive.Dec()
	sessionsClosed.WithLabelValues(reason).Inc()
}

// SessionRejected records a refused session.
func SessionRejected() {
	sessionsRejected.Inc()
}

// RecordTurn records one processed utterance.
func RecordTurn(act, state string, handled bool) {
	turns.WithLabelValues(act, state, strconv.FormatBool(handled)).Inc()
}

// RecordRateLimited records an utterance dropped by the rate limiter.
func RecordRateLimited() {
	turnsLimited.Inc()
}

// RecordClassification records the latency of one classifier call.
func RecordClassification(classifier, status string, durationSec float64) {
	classifyLatency.WithLabelValues(classifier, status).Observe(durationSec)
}

// RecordFallback records a classification served by the fallback.
func RecordFallback(reason string) {
	classifyFallbacks.WithLabelValues(reason).Inc()
}
