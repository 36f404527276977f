package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartbrain_http_requests_total",
		Help: "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smartbrain_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	authEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartbrain_auth_events_total",
		Help: "Authentication events (register, signin, signout, gate) by result.",
	}, []string{"event", "result"})
)

// PrometheusMiddleware records request count and latency. Unmatched routes are
// grouped under "unmatched" to keep label cardinality bounded.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordAuthEvent increments the auth event counter, e.g. ("signin", "invalid_credentials").
func RecordAuthEvent(event, result string) {
	authEventsTotal.WithLabelValues(event, result).Inc()
}
