package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Session event labels recorded by the bouncer.
const (
	SessionOpened     = "opened"
	SessionResumed    = "resumed"
	SessionRejected   = "rejected"
	SessionReaped     = "reaped"
	SessionTerminated = "terminated"
)

var (
	registerOnce sync.Once

	framesRelayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeline",
			Subsystem: "bouncer",
			Name:      "frames_total",
			Help:      "Frames relayed between clients and the upstream.",
		},
		[]string{"direction"},
	)
	bytesRelayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeline",
			Subsystem: "bouncer",
			Name:      "bytes_total",
			Help:      "Payload bytes relayed between clients and the upstream.",
		},
		[]string{"direction"},
	)
	sessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeline",
			Subsystem: "bouncer",
			Name:      "session_events_total",
			Help:      "Session lifecycle events.",
		},
		[]string{"event"},
	)
	replayedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifeline",
			Subsystem: "bouncer",
			Name:      "replayed_bytes_total",
			Help:      "Bytes replayed to resuming clients.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesRelayed, bytesRelayed, sessionEvents, replayedBytes)
	})
}

// RecordFrame counts one relayed frame and its payload bytes. Direction is
// "upstream" (client to upstream) or "downstream" (upstream to client).
func RecordFrame(direction string, payloadBytes int) {
	RegisterMetrics()
	framesRelayed.WithLabelValues(direction).Inc()
	bytesRelayed.WithLabelValues(direction).Add(float64(payloadBytes))
}

func RecordSessionEvent(event string) {
	RegisterMetrics()
	sessionEvents.WithLabelValues(event).Inc()
}

func RecordReplay(payloadBytes int) {
	RegisterMetrics()
	replayedBytes.Add(float64(payloadBytes))
}
