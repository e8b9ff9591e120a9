package ledgerd

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_requests_total",
		Help: "Total HTTP requests by path and response status.",
	}, []string{"path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledgerd_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_transactions_total",
		Help: "Submitted transactions by outcome.",
	}, []string{"result"})

	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerd_actions_total",
		Help: "Committed actions by type.",
	}, []string{"type"})
)

// prometheusMiddleware records per-request metrics.
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestsTotal.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}

func metricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func recordSubmit(actionTypes []string, err error) {
	if err != nil {
		transactionsTotal.WithLabelValues("rejected").Inc()
		return
	}
	transactionsTotal.WithLabelValues("committed").Inc()
	for _, t := range actionTypes {
		actionsTotal.WithLabelValues(t).Inc()
	}
}
