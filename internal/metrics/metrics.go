// Package metrics holds the Prometheus collectors for the HTTP server and the
// target evaluator. Collectors register with the default registry on init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ldl_http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ldl_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ldl_http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	EvaluationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ldl_evaluations_total",
			Help: "Total completed target evaluations",
		},
	)

	RiskCategoryTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ldl_risk_category_total",
			Help: "Evaluations by region and matched guideline rule",
		},
		[]string{"region", "rule"},
	)

	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ldl_validation_failures_total",
			Help: "Rejected profiles by offending field",
		},
		[]string{"field"},
	)

	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ldl_report_cache_operations_total",
			Help: "Report cache operations by kind and result",
		},
		[]string{"op", "result"},
	)

	FeedbackSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ldl_feedback_submissions_total",
			Help: "Clinician feedback submissions by region and agreement",
		},
		[]string{"region", "agrees"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(RiskCategoryTotals)
	prometheus.MustRegister(ValidationFailures)
	prometheus.MustRegister(CacheOperations)
	prometheus.MustRegister(FeedbackSubmissions)
}
