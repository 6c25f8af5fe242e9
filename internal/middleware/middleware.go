package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prasanna192005/ObservoAI/internal/alerts"
	"github.com/prasanna192005/ObservoAI/internal/anomaly"
	"github.com/prasanna192005/ObservoAI/internal/metrics"
	"github.com/prasanna192005/ObservoAI/internal/store"
)

// Telemetry instruments HTTP handlers with the anomaly signal engine and
// fans each observation result out to the configured sinks. Any sink may be
// nil; the corresponding forwarding step is skipped.
type Telemetry struct {
	engine   *anomaly.Engine
	recorder *metrics.Recorder
	store    *store.Store
	alerts   *alerts.Engine
}

// NewTelemetry wires a Telemetry middleware to its sinks.
func NewTelemetry(engine *anomaly.Engine, recorder *metrics.Recorder, st *store.Store, al *alerts.Engine) *Telemetry {
	return &Telemetry{engine: engine, recorder: recorder, store: st, alerts: al}
}

// Wrap instruments next for the given route template. The engine's route key
// is "METHOD:template", derived per request so one wrapped handler can serve
// several methods.
func (t *Telemetry) Wrap(template string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := r.Method + ":" + template
		duration := time.Since(start).Seconds()
		isError := sw.status >= 400

		res, err := t.engine.Observe(route, duration, isError, sw.status)
		if err != nil {
			// Elapsed wall time is never negative; this only trips on a
			// broken clock.
			slog.Error("telemetry: observation rejected", "route", route, "err", err)
			return
		}

		t.forward(res)
		logSignals(res)
	})
}

func (t *Telemetry) forward(res *anomaly.Result) {
	if t.recorder != nil {
		t.recorder.Record(res)
	}
	if t.store != nil {
		t.store.Put(res)
	}
	if t.alerts != nil {
		t.alerts.Evaluate(res)
	}
}

// logSignals emits the human-readable anomaly and warning lines.
func logSignals(res *anomaly.Result) {
	if res.LatencyAnomaly {
		slog.Warn("[ANOMALY] request latency above baseline",
			"route", res.Route,
			"duration_s", res.Duration,
			"baseline_p95_s", res.Baseline.P95,
		)
	}
	if res.ErrorRateAnomaly {
		slog.Warn("[ANOMALY] error rate above threshold",
			"route", res.Route,
			"error_rate", res.ErrorRate,
			"errors", res.ErrorCount,
			"total", res.TotalCount,
		)
	}
	if res.PatternShift {
		slog.Warn("[ANOMALY] latency pattern shift",
			"route", res.Route,
			"duration_s", res.Duration,
			"baseline_p95_s", res.Baseline.P95,
			"baseline_avg_s", res.Baseline.Average,
		)
	}
	for _, sig := range res.Warnings {
		slog.Warn("[WARNING] "+sig,
			"route", res.Route,
			"duration_s", res.Duration,
			"error_rate", res.ErrorRate,
			"baseline_avg_s", res.Baseline.Average,
		)
	}
}

// Recovery recovers from handler panics and returns 500 so the telemetry
// wrapper above it still records the request as a server error.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("panic in handler", "path", r.URL.Path, "panic", v)
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// reqSeq disambiguates generated request IDs within one nanosecond tick.
var reqSeq atomic.Uint64

// RequestID echoes or assigns an X-Request-ID header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = fmt.Sprintf("req_%d_%d", time.Now().UnixNano(), reqSeq.Add(1))
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

// statusWriter captures the status code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
