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

	// 进度事件计数，result 区分 created / duplicate
	ProgressEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_events_total",
			Help: "Total number of progress events (attempts, solves, unlocks)",
		},
		[]string{"event", "result"},
	)

	BallotCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballots_total",
			Help: "Total number of ballot casts",
		},
		[]string{"kind", "result"},
	)

	RanklistRecomputeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranklist_recomputes_total",
			Help: "Total number of ranklist page recomputations",
		},
		[]string{"scope", "trigger"},
	)

	LivePushCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranklist_live_pushes_total",
			Help: "Total number of live ranklist pushes over websocket",
		},
		[]string{"result"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ProgressEventCounter)
	prometheus.MustRegister(BallotCounter)
	prometheus.MustRegister(RanklistRecomputeCounter)
	prometheus.MustRegister(LivePushCounter)
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
