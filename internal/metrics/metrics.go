package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	TaskNumbersAllocated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "task_numbers_allocated_total",
			Help: "Total number of task numbers handed out by the allocator",
		},
	)

	CounterLockTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "task_counter_lock_timeouts_total",
			Help: "Allocations that gave up waiting for the project counter lock",
		},
	)

	NotificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_enqueued_total",
			Help: "Notification messages handed to the delivery queue",
		},
		[]string{"type"},
	)

	NotificationsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_persisted_total",
			Help: "Notification rows written by the delivery worker",
		},
		[]string{"type"},
	)

	RealtimePushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_pushes_total",
			Help: "Realtime push attempts by result",
		},
		[]string{"result"},
	)

	DeliveriesAbandoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_deliveries_abandoned_total",
			Help: "Realtime deliveries dropped after exhausting retries",
		},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Currently registered realtime connections",
		},
	)
)

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func RecordTaskNumberAllocated() {
	TaskNumbersAllocated.Inc()
}

func RecordCounterLockTimeout() {
	CounterLockTimeouts.Inc()
}

func RecordNotificationEnqueued(notificationType string) {
	NotificationsEnqueued.WithLabelValues(notificationType).Inc()
}

func RecordNotificationPersisted(notificationType string) {
	NotificationsPersisted.WithLabelValues(notificationType).Inc()
}

func RecordRealtimePush(result string) {
	RealtimePushes.WithLabelValues(result).Inc()
}

func RecordDeliveryAbandoned() {
	DeliveriesAbandoned.Inc()
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
