package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "huddle",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	relayConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "huddle",
			Subsystem: "relay",
			Name:      "connections",
			Help:      "Open client connections.",
		},
	)
	relayBoards = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "huddle",
			Subsystem: "relay",
			Name:      "boards",
			Help:      "Boards held in memory.",
		},
	)
	relayEnvelopes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "relay",
			Name:      "envelopes_total",
			Help:      "Envelopes received from clients, by type.",
		},
		[]string{"type"},
	)
	relayDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "relay",
			Name:      "dropped_total",
			Help:      "Inbound frames or clients dropped, by reason.",
		},
		[]string{"reason"},
	)
	storeFlushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "store",
			Name:      "flushes_total",
			Help:      "Board snapshot writes, by result.",
		},
		[]string{"result"},
	)
	brokerErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "broker",
			Name:      "errors_total",
			Help:      "Publish or delivery failures on the fan-out broker.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, relayConnections, relayBoards,
			relayEnvelopes, relayDropped, storeFlushes, brokerErrors)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func ConnectionOpened() {
	RegisterMetrics()
	relayConnections.Inc()
}

func ConnectionClosed() {
	RegisterMetrics()
	relayConnections.Dec()
}

func SetBoards(n int) {
	RegisterMetrics()
	relayBoards.Set(float64(n))
}

func RecordEnvelope(typ string) {
	RegisterMetrics()
	relayEnvelopes.WithLabelValues(typ).Inc()
}

// RecordDrop counts a discarded frame or a disconnected client.
func RecordDrop(reason string) {
	RegisterMetrics()
	relayDropped.WithLabelValues(reason).Inc()
}

func RecordFlush(err error) {
	RegisterMetrics()
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeFlushes.WithLabelValues(result).Inc()
}

func RecordBrokerError() {
	RegisterMetrics()
	brokerErrors.Inc()
}
