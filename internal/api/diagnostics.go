package api

import (
	"fmt"

	"github.com/prasanna192005/ObservoAI/internal/anomaly"
)

// DiagnosticHint is one human-readable insight about a route's health.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives human-readable diagnostic hints from a route's
// latest observation result. Critical hints come first, then warnings,
// then info.
func computeDiagnostics(res *anomaly.Result) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── Cold baseline ────────────────────────────────────────────────────────
	if res.Baseline.Count <= anomaly.DefaultMinSamples {
		hints = append(hints, DiagnosticHint{
			Key:   "warming_up",
			Level: "info",
			Title: "Warming up",
			Detail: fmt.Sprintf(
				"This route has only seen %d requests. Anomaly detection stays off "+
					"until the baseline has more than %d samples, because flagging "+
					"against a handful of data points produces mostly noise. "+
					"No action needed.",
				res.Baseline.Count, anomaly.DefaultMinSamples,
			),
		})
		return hints
	}

	// ── Latency anomaly ──────────────────────────────────────────────────────
	if res.LatencyAnomaly {
		v := res.Duration
		hints = append(hints, DiagnosticHint{
			Key:   "latency_anomaly",
			Level: "critical",
			Title: fmt.Sprintf("%.0fms spike", res.Duration*1000),
			Detail: fmt.Sprintf(
				"The last request took %.3fs against a p95 baseline of %.3fs — more "+
					"than double the typical worst case. One-off spikes can be GC pauses "+
					"or cold caches; a sustained pattern usually means a slow dependency "+
					"or an overloaded downstream. Check what this route calls.",
				res.Duration, res.Baseline.P95,
			),
			Value: &v,
		})
	}

	// ── Error rate ───────────────────────────────────────────────────────────
	if res.ErrorRateAnomaly {
		v := res.ErrorRate
		level := "warning"
		if res.ErrorRate >= 0.2 {
			level = "critical"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "error_rate",
			Level: level,
			Title: fmt.Sprintf("%.1f%% errors", res.ErrorRate*100),
			Detail: fmt.Sprintf(
				"%d of the %d requests on this route have failed (%.1f%%). "+
					"The last failure was a %s error. Check the error logs for this "+
					"route, validate its dependencies, and review recent code changes.",
				res.ErrorCount, res.TotalCount, res.ErrorRate*100,
				categoryLabel(res.ErrorCategory),
			),
			Value: &v,
		})
	}

	// ── Pattern shift ────────────────────────────────────────────────────────
	if res.PatternShift {
		v := res.Duration
		hints = append(hints, DiagnosticHint{
			Key:   "pattern_shift",
			Level: "warning",
			Title: "Latency pattern shift",
			Detail: fmt.Sprintf(
				"Request durations are drifting away from this route's established "+
					"profile: the last request (%.3fs) sits %.3fs away from the p95, "+
					"more than the whole long-run average (%.3fs). This often precedes "+
					"a visible latency regression — worth watching before it crosses "+
					"the hard threshold.",
				res.Duration, abs(res.Duration-res.Baseline.P95), res.Baseline.Average,
			),
			Value: &v,
		})
	}

	// ── Early warnings ───────────────────────────────────────────────────────
	for _, sig := range res.Warnings {
		switch sig {
		case anomaly.SignalLatencyApproaching:
			hints = append(hints, DiagnosticHint{
				Key:   "latency_approaching",
				Level: "info",
				Title: "Latency trending up",
				Detail: fmt.Sprintf(
					"The last request (%.3fs) is above 80%% of the anomaly threshold "+
						"relative to the average (%.3fs). Not an anomaly yet, but the "+
						"margin is shrinking.",
					res.Duration, res.Baseline.Average,
				),
			})
		case anomaly.SignalErrorRateApproaching:
			hints = append(hints, DiagnosticHint{
				Key:   "error_rate_approaching",
				Level: "info",
				Title: "Error rate trending up",
				Detail: fmt.Sprintf(
					"The error rate (%.2f%%) has crossed 80%% of the alerting "+
						"threshold. A few more failures will tip this route into an "+
						"anomaly.",
					res.ErrorRate*100,
				),
			})
		}
	}

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"This route is behaving normally: %.1f%% errors over %d requests, "+
					"p95 latency %.3fs. Nothing to do.",
				res.ErrorRate*100, res.TotalCount, res.Baseline.P95,
			),
		})
	}
	return hints
}

func categoryLabel(cat string) string {
	switch cat {
	case anomaly.CategoryValidation:
		return "validation (400)"
	case anomaly.CategoryAuthorization:
		return "authorization (401/403)"
	case anomaly.CategoryNotFound:
		return "not-found (404)"
	case anomaly.CategoryRateLimit:
		return "rate-limit (429)"
	case anomaly.CategoryServerError:
		return "server (5xx)"
	default:
		return "unclassified"
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
