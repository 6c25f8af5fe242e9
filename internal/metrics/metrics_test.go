package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/prasanna192005/ObservoAI/internal/anomaly"
)

func newRecorder() *Recorder {
	return NewRecorder(prometheus.NewRegistry())
}

func TestRecord_BaselineGauges(t *testing.T) {
	r := newRecorder()
	r.Record(&anomaly.Result{
		Route:      "GET:/api/accounts",
		Duration:   0.12,
		StatusCode: 200,
		Baseline:   anomaly.Baseline{Average: 0.1, P95: 0.2, P99: 0.3, Count: 42},
	})

	if got := testutil.ToFloat64(r.baseline.WithLabelValues("GET:/api/accounts", StatAvg)); got != 0.1 {
		t.Errorf("avg gauge = %v, want 0.1", got)
	}
	if got := testutil.ToFloat64(r.baseline.WithLabelValues("GET:/api/accounts", StatP95)); got != 0.2 {
		t.Errorf("p95 gauge = %v, want 0.2", got)
	}
	if got := testutil.ToFloat64(r.baseline.WithLabelValues("GET:/api/accounts", StatP99)); got != 0.3 {
		t.Errorf("p99 gauge = %v, want 0.3", got)
	}
}

func TestRecord_ErrorCountersOnlyOnError(t *testing.T) {
	r := newRecorder()

	r.Record(&anomaly.Result{Route: "GET:/api/accounts", StatusCode: 200})
	r.Record(&anomaly.Result{
		Route:         "GET:/api/accounts",
		StatusCode:    500,
		IsError:       true,
		ErrorCategory: anomaly.CategoryServerError,
		ErrorRate:     0.5,
	})

	got := testutil.ToFloat64(r.errors.WithLabelValues("GET:/api/accounts", anomaly.CategoryServerError))
	if got != 1 {
		t.Errorf("errors counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.errorRate.WithLabelValues("GET:/api/accounts")); got != 0.5 {
		t.Errorf("error rate gauge = %v, want 0.5", got)
	}
}

func TestRecord_WarningAndAnomalyCounters(t *testing.T) {
	r := newRecorder()
	r.Record(&anomaly.Result{
		Route:          "POST:/api/transactions",
		StatusCode:     200,
		LatencyAnomaly: true,
		Warnings: []string{
			anomaly.SignalLatencyApproaching,
			anomaly.SignalErrorRateApproaching,
		},
	})

	if got := testutil.ToFloat64(r.anomalies.WithLabelValues("POST:/api/transactions", AnomalyLatency)); got != 1 {
		t.Errorf("latency anomaly counter = %v, want 1", got)
	}
	for _, sig := range []string{anomaly.SignalLatencyApproaching, anomaly.SignalErrorRateApproaching} {
		if got := testutil.ToFloat64(r.warnings.WithLabelValues("POST:/api/transactions", sig)); got != 1 {
			t.Errorf("warning counter %s = %v, want 1", sig, got)
		}
	}
}
