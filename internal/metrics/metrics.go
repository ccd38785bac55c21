// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Authentication
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_auth_attempts_total",
			Help: "Authentication attempts by outcome (ok, anonymous or failure type)",
		},
		[]string{"result"},
	)

	AuthDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studyhall_auth_duration_seconds",
			Help:    "Duration of successful authentications",
			Buckets: prometheus.DefBuckets,
		},
	)

	ServerConfigErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhall_auth_server_config_errors_total",
			Help: "Connections rejected because the signing secret is missing",
		},
	)

	// Sockets and presence
	SocketSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyhall_socket_sessions",
			Help: "Current number of authenticated socket sessions on this node",
		},
	)

	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyhall_online_users",
			Help: "Current number of users with at least one session on this node",
		},
	)

	SocketEmits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_socket_emits_total",
			Help: "Events emitted to sockets",
		},
		[]string{"event"},
	)

	// Notifications
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_notifications_dispatched_total",
			Help: "Dispatch calls by notification type and outcome",
		},
		[]string{"type", "result"},
	)

	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_notification_deliveries_total",
			Help: "Live delivery attempts by outcome (delivered, offline, no_transport, panic)",
		},
		[]string{"result"},
	)

	// Cluster
	ClusterMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_cluster_messages_total",
			Help: "Room broadcasts relayed over NATS",
		},
		[]string{"direction", "result"},
	)

	ClusterBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyhall_cluster_breaker_state",
			Help: "NATS publish circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	// HTTP
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhall_api_request_duration_seconds",
			Help:    "HTTP request duration by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_rate_limited_total",
			Help: "Requests and handshakes rejected by the rate limiter",
		},
		[]string{"surface"},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
