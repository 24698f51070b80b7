package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "link",
			Name:      "frames_decoded_total",
			Help:      "Well-formed frames decoded from the radio.",
		},
	)
	noiseBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "link",
			Name:      "noise_bytes_total",
			Help:      "Non-frame bytes discarded while resynchronizing.",
		},
	)
	framingErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "link",
			Name:      "framing_errors_total",
			Help:      "Frames dropped for bad length fields.",
		},
	)
	messagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "link",
			Name:      "messages_received_total",
			Help:      "Inbound channel messages by slot.",
		},
		[]string{"slot"},
	)
	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "link",
			Name:      "messages_sent_total",
			Help:      "Outbound channel messages by slot.",
		},
		[]string{"slot"},
	)
	queueDrains = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "session",
			Name:      "queue_drains_total",
			Help:      "Queue-drain commands issued to the radio.",
		},
	)
	timeReplies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "session",
			Name:      "time_replies_total",
			Help:      "Device time requests answered.",
		},
	)
	handshakeRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "session",
			Name:      "handshake_retries_total",
			Help:      "Handshake attempts beyond the first.",
		},
	)
	reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "transport",
			Name:      "reconnects_total",
			Help:      "Serial reconnect attempts after transport loss.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcwb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Status endpoint requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mcwb",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status endpoint latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesDecoded, noiseBytes, framingErrors,
			messagesReceived, messagesSent,
			queueDrains, timeReplies, handshakeRetries, reconnects,
			httpRequests, httpDuration,
		)
	})
}

func RecordFrameDecoded()    { framesDecoded.Inc() }
func RecordNoiseBytes(n int) { noiseBytes.Add(float64(n)) }
func RecordFramingError()    { framingErrors.Inc() }
func RecordQueueDrain()      { queueDrains.Inc() }
func RecordTimeReply()       { timeReplies.Inc() }
func RecordHandshakeRetry()  { handshakeRetries.Inc() }
func RecordReconnect()       { reconnects.Inc() }

func RecordMessageReceived(slot int) {
	messagesReceived.WithLabelValues(strconv.Itoa(slot)).Inc()
}

func RecordMessageSent(slot int) {
	messagesSent.WithLabelValues(strconv.Itoa(slot)).Inc()
}

func RecordHTTPRequest(method, path string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
