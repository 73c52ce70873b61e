package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	gatewayCallsTotal   *prometheus.CounterVec
	gatewayCallDuration *prometheus.HistogramVec
	webhookDeliveries   *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
)

// Gateway call outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

func initMetrics() {
	gatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propkit",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total number of calls to payment and shipping providers.",
		},
		[]string{"gateway", "operation", "outcome"},
	)

	gatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "propkit",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Latency of calls to payment and shipping providers.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"gateway", "operation"},
	)

	webhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propkit",
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Total number of inbound webhook deliveries by outcome.",
		},
		[]string{"channel", "outcome"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propkit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the API.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "propkit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration observed at the API layer.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	prometheus.MustRegister(gatewayCallsTotal, gatewayCallDuration, webhookDeliveries, httpRequestsTotal, httpRequestDuration)
}

// ObserveGatewayCall records one provider call.
func ObserveGatewayCall(gateway, operation string, err error, elapsed time.Duration) {
	metricsOnce.Do(initMetrics)

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	gatewayCallsTotal.WithLabelValues(gateway, operation, outcome).Inc()
	gatewayCallDuration.WithLabelValues(gateway, operation).Observe(elapsed.Seconds())
}

// RecordWebhookDelivery counts one inbound delivery by channel and outcome.
func RecordWebhookDelivery(channel, outcome string) {
	metricsOnce.Do(initMetrics)
	webhookDeliveries.WithLabelValues(channel, outcome).Inc()
}

// Middleware records request counts and latency per matched route.
func Middleware() fiber.Handler {
	metricsOnce.Do(initMetrics)
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
