package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the messaging service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketplace_chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_messages_total",
			Help: "Total number of message log mutations.",
		},
		[]string{"action"},
	)
	notificationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_notifications_created_total",
			Help: "Total number of notifications persisted.",
		},
		[]string{"type"},
	)
	broadcastFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_broadcast_failures_total",
			Help: "Total number of real-time deliveries that failed.",
		},
		[]string{"driver"},
	)
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketplace_chat_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		messagesTotal,
		notificationsCreatedTotal,
		broadcastFailuresTotal,
		breakerState,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes the default registry.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// HealthHandler reports liveness.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncMessage(action string) {
	messagesTotal.WithLabelValues(action).Inc()
}

func IncNotificationCreated(notificationType string) {
	notificationsCreatedTotal.WithLabelValues(notificationType).Inc()
}

func IncBroadcastFailure(driver string) {
	broadcastFailuresTotal.WithLabelValues(driver).Inc()
}

func SetBreakerState(name string, state float64) {
	breakerState.WithLabelValues(name).Set(state)
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
