package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsumugi_commands_total",
		Help: "Slash commands handled, by command and outcome",
	}, []string{"command", "status"})

	voiceSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tsumugi_voice_sessions",
		Help: "Guilds with a live voice session",
	})

	speechSequences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsumugi_speech_sequences_total",
		Help: "Speech sequences by terminal state",
	}, []string{"state"})

	speechSegments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsumugi_speech_segments_total",
		Help: "Speech segments by outcome (played, skipped)",
	}, []string{"outcome"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tsumugi_synthesis_latency_seconds",
		Help:    "Latency of a single speech synthesis call",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	autoLeaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsumugi_auto_leave_total",
		Help: "Voice sessions closed because the channel emptied",
	})

	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsumugi_upstream_requests_total",
		Help: "Requests to external services, by service and status",
	}, []string{"service", "status"})
)

func RecordCommand(name string, err error) {
	commandsTotal.WithLabelValues(name, status(err)).Inc()
}

func SetVoiceSessions(n int) {
	voiceSessions.Set(float64(n))
}

func RecordSequence(state string) {
	speechSequences.WithLabelValues(state).Inc()
}

func RecordSegmentPlayed() {
	speechSegments.WithLabelValues("played").Inc()
}

func RecordSegmentSkipped() {
	speechSegments.WithLabelValues("skipped").Inc()
}

func ObserveSynthesis(d time.Duration) {
	synthesisLatency.Observe(d.Seconds())
}

func RecordAutoLeave() {
	autoLeaves.Inc()
}

// RecordUpstream counts one call to an external service (gemini, spotify, voicevox).
func RecordUpstream(service string, err error) {
	upstreamRequests.WithLabelValues(service, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
