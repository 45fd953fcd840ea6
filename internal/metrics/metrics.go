package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReqCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corex_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "corex_request_duration_seconds",
			Help: "Request duration seconds",
		},
		[]string{"method", "path"},
	)

	CodesIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corex_codes_issued_total",
			Help: "Sharing and invitation codes issued",
		},
		[]string{"namespace"},
	)

	CodesRedeemed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corex_codes_redeemed_total",
			Help: "Sharing and invitation codes redeemed",
		},
		[]string{"namespace", "result"},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corex_notifications_sent_total",
			Help: "Notification emails attempted",
		},
		[]string{"kind", "result"},
	)

	GoalTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corex_goal_transitions_total",
			Help: "Goal status transitions persisted by recompute",
		},
		[]string{"status"},
	)
)

func Register() {
	prometheus.MustRegister(
		ReqCount,
		ReqDuration,
		CodesIssued,
		CodesRedeemed,
		NotificationsSent,
		GoalTransitions,
	)
}

// Middleware records request counts and latencies per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		ReqCount.WithLabelValues(c.Method(), path, strconv.Itoa(c.Response().StatusCode())).Inc()
		ReqDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}
