package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const withdrawalSubmitRoute = "/api/v1/payout/withdrawals"

var (
	payoutHTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payouts",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests served by the payout API",
		},
		[]string{"service", "method", "route", "status"},
	)

	// Buckets stop at the request timeout ceiling.
	payoutHTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payouts",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Payout API latency in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2, 4, 8},
		},
		[]string{"service", "method", "route"},
	)

	payoutHTTPInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "payouts",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Payout API requests currently being served",
		},
		[]string{"service"},
	)

	withdrawalSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payouts",
			Subsystem: "http",
			Name:      "withdrawal_submissions_total",
			Help:      "Withdrawal submissions by outcome (accepted, refused, failed)",
		},
		[]string{"service", "outcome"},
	)
)

// Metrics records request counts and latency for the payout API
func Metrics(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		inFlight := payoutHTTPInFlight.WithLabelValues(serviceName)
		inFlight.Inc()
		defer inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		status := c.Writer.Status()

		payoutHTTPRequests.WithLabelValues(serviceName, method, route, strconv.Itoa(status)).Inc()
		payoutHTTPLatency.WithLabelValues(serviceName, method, route).Observe(time.Since(start).Seconds())

		if method == http.MethodPost && route == withdrawalSubmitRoute {
			withdrawalSubmissions.WithLabelValues(serviceName, submissionOutcome(status)).Inc()
		}
	}
}

func submissionOutcome(status int) string {
	switch {
	case status < http.StatusBadRequest:
		return "accepted"
	case status < http.StatusInternalServerError:
		return "refused"
	default:
		return "failed"
	}
}
