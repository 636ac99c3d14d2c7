package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 提交结果标签
const (
	OutcomeGraded       = "graded"
	OutcomeRejected     = "rejected"
	OutcomeAttemptLimit = "attempt_limit"
	OutcomeFailed       = "failed"
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
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_submissions_total",
			Help: "Assessment submissions by outcome",
		},
		[]string{"outcome"},
	)

	ScoreRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assessment_submission_score_ratio",
			Help:    "Score divided by max score of graded submissions",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	registerOnce sync.Once
)

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(SubmissionCounter)
		prometheus.MustRegister(ScoreRatio)
	})
}

// ObserveSubmission 记录一次提交的结果；maxScore 为 0 时不记录得分率
func ObserveSubmission(outcome string, score, maxScore int) {
	SubmissionCounter.WithLabelValues(outcome).Inc()
	if outcome == OutcomeGraded && maxScore > 0 {
		ScoreRatio.Observe(float64(score) / float64(maxScore))
	}
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
