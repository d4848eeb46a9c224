// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ohs"

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	recommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periodicity_recommendations_total",
			Help:      "Exam periodicity recommendations by recommended months",
		},
		[]string{"months"},
	)

	rulesFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periodicity_rules_fired_total",
			Help:      "Recommendation rules that decided the outcome",
		},
		[]string{"rule"},
	)

	degradedReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indicator_degraded_reads_total",
			Help:      "Indicator reads that failed and were zero-filled",
		},
		[]string{"source"},
	)

	duplicationTargetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_matrix_duplication_targets_total",
			Help:      "Risk matrix duplication targets by result",
		},
		[]string{"result"},
	)
)

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// Middleware records request counts and latency keyed by the route template,
// not the raw path.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// --- Business metric helpers ---

func RecordRecommendation(months int, rule string) {
	recommendationsTotal.WithLabelValues(strconv.Itoa(months)).Inc()
	rulesFiredTotal.WithLabelValues(rule).Inc()
}

func RecordDegradedRead(source string) {
	degradedReadsTotal.WithLabelValues(source).Inc()
}

// RecordDuplicationTarget counts one duplication target; result is
// "success" or "failure".
func RecordDuplicationTarget(result string) {
	duplicationTargetsTotal.WithLabelValues(result).Inc()
}
