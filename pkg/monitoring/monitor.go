package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionsGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbt_submissions_total",
			Help: "CBT submissions by outcome",
		},
		[]string{"outcome"},
	)

	WebhookItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_webhook_items_total",
			Help: "WhatsApp webhook messages and statuses ingested",
		},
		[]string{"kind", "outcome"},
	)

	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_total",
			Help: "Events published to or received from the hub",
		},
		[]string{"op", "direction"},
	)

	HubConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connections",
			Help: "Open WebSocket connections on this instance",
		},
	)

	PaymentsVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_verified_total",
			Help: "Payment verifications by resulting order status",
		},
		[]string{"status"},
	)
)

func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		SubmissionsGraded,
		WebhookItems,
		EventsPublished,
		HubConnections,
		PaymentsVerified,
	)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
