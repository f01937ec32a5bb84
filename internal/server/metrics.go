package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealercrm",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of API requests broken down by route and result.",
	}, []string{"route", "result"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dealercrm",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for API requests.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"route", "result"})
)

// instrument labels requests by route template so ids do not explode the
// label set.
func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		result := "2xx"
		switch status := c.Writer.Status(); {
		case status >= 500:
			result = "5xx"
		case status >= 400:
			result = "4xx"
		}

		apiRequests.WithLabelValues(route, result).Inc()
		apiLatency.WithLabelValues(route, result).Observe(time.Since(start).Seconds())
	}
}
