package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prasanna192005/ObservoAI/internal/anomaly"
)

// Baseline stat label values on bank_baseline_latency_seconds.
const (
	StatAvg = "avg"
	StatP95 = "p95"
	StatP99 = "p99"
)

// Anomaly type label values on bank_anomalies_total.
const (
	AnomalyLatency      = "latency"
	AnomalyErrorRate    = "error_rate"
	AnomalyPatternShift = "pattern_shift"
)

// Recorder translates anomaly.Results into Prometheus series. The engine
// itself never touches a metrics backend; the middleware hands every Result
// to a Recorder.
type Recorder struct {
	latency   *prometheus.HistogramVec
	baseline  *prometheus.GaugeVec
	errorRate *prometheus.GaugeVec
	errors    *prometheus.CounterVec
	anomalies *prometheus.CounterVec
	warnings  *prometheus.CounterVec
}

// NewRecorder registers all collectors on reg and returns a ready Recorder.
// Use prometheus.NewRegistry() in tests to avoid cross-test interference.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_api_latency_seconds",
			Help:    "Observed request latency per route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status_code"}),

		baseline: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_baseline_latency_seconds",
			Help: "Rolling latency baseline per route (avg, p95, p99).",
		}, []string{"route", "stat"}),

		errorRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_error_rate",
			Help: "Fraction of requests per route that ended in error.",
		}, []string{"route"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_errors_total",
			Help: "Errored requests per route, by status-code category.",
		}, []string{"route", "category"}),

		anomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_anomalies_total",
			Help: "Observations that crossed an anomaly threshold.",
		}, []string{"route", "type"}),

		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_early_warning_signals_total",
			Help: "Early-warning signals raised before a hard threshold was crossed.",
		}, []string{"route", "signal"}),
	}
}

// Record forwards one observation result to all collectors.
func (r *Recorder) Record(res *anomaly.Result) {
	status := "unknown"
	if res.StatusCode > 0 {
		status = strconv.Itoa(res.StatusCode)
	}
	r.latency.WithLabelValues(res.Route, status).Observe(res.Duration)

	r.baseline.WithLabelValues(res.Route, StatAvg).Set(res.Baseline.Average)
	r.baseline.WithLabelValues(res.Route, StatP95).Set(res.Baseline.P95)
	r.baseline.WithLabelValues(res.Route, StatP99).Set(res.Baseline.P99)

	r.errorRate.WithLabelValues(res.Route).Set(res.ErrorRate)

	if res.IsError {
		r.errors.WithLabelValues(res.Route, res.ErrorCategory).Inc()
	}

	if res.LatencyAnomaly {
		r.anomalies.WithLabelValues(res.Route, AnomalyLatency).Inc()
	}
	if res.ErrorRateAnomaly {
		r.anomalies.WithLabelValues(res.Route, AnomalyErrorRate).Inc()
	}
	if res.PatternShift {
		r.anomalies.WithLabelValues(res.Route, AnomalyPatternShift).Inc()
	}

	for _, sig := range res.Warnings {
		r.warnings.WithLabelValues(res.Route, sig).Inc()
	}
}
