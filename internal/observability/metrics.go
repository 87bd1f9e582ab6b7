package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	socketConnections   prometheus.Gauge
	onlineUsers         prometheus.Gauge
	socketEventsTotal   *prometheus.CounterVec
	messagesSentTotal   *prometheus.CounterVec
	messagesDroppedBusy *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		socketConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "socket_connections",
			Help: "Number of live websocket connections.",
		})

		onlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "presence_online_users",
			Help: "Number of users with a presence entry.",
		})

		socketEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socket_events_total",
			Help: "Total number of inbound socket events processed.",
		}, []string{"event", "outcome"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of chat messages persisted and routed.",
		}, []string{"kind"})

		messagesDroppedBusy = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_dropped_slow_client_total",
			Help: "Messages dropped because a client send buffer was full.",
		}, []string{"event"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			socketConnections,
			onlineUsers,
			socketEventsTotal,
			messagesSentTotal,
			messagesDroppedBusy,
		)
	})
}

// HTTPRequests exposes the counter for HTTP requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for HTTP requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// SocketConnections exposes the live connection gauge.
func SocketConnections() prometheus.Gauge {
	RegisterMetrics()
	return socketConnections
}

// OnlineUsers exposes the presence gauge.
func OnlineUsers() prometheus.Gauge {
	RegisterMetrics()
	return onlineUsers
}

// SocketEvents exposes the inbound event counter.
func SocketEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return socketEventsTotal
}

// MessagesSent exposes the routed message counter.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// MessagesDropped exposes the slow-client drop counter.
func MessagesDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesDroppedBusy
}
