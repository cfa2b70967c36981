package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WSEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "chat_ws_events_total", Help: "Inbound WebSocket events by name"},
		[]string{"event"},
	)
	WSEventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "chat_ws_event_duration_ms", Help: "Event handling latency in milliseconds", Buckets: prometheus.LinearBuckets(5, 5, 20)},
		[]string{"event"},
	)
	OnlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "chat_online_users", Help: "Users with at least one live connection"},
	)
	OpenConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "chat_open_connections", Help: "Live WebSocket connections"},
	)
	MessagesPersisted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "chat_messages_persisted_total", Help: "Messages successfully written to the store"},
	)
)

func Init() {
	prometheus.MustRegister(WSEventsTotal)
	prometheus.MustRegister(WSEventDuration)
	prometheus.MustRegister(OnlineUsers)
	prometheus.MustRegister(OpenConnections)
	prometheus.MustRegister(MessagesPersisted)
}

// ObserveWsAction records one handled inbound event and its latency.
func ObserveWsAction(eventName string, elapsed time.Duration) {
	WSEventsTotal.WithLabelValues(eventName).Inc()
	WSEventDuration.WithLabelValues(eventName).Observe(float64(elapsed.Milliseconds()))
}

// SetOnline updates the presence gauges after a connect or disconnect.
func SetOnline(users, connections int) {
	OnlineUsers.Set(float64(users))
	OpenConnections.Set(float64(connections))
}
