package alerts

import (
	"strconv"
	"strings"

	"github.com/prasanna192005/ObservoAI/internal/anomaly"
)

// evalCondition evaluates a rule condition string against an observation
// result.
//
// Supported expressions (field operator value):
//
//	error_rate > 0.05
//	latency_p95 > 0.5
//	latency_p99 > 1.0
//	avg_latency > 0.25
//	duration > 2.0
//	sample_count > 1000
//	anomaly == latency
//	anomaly == error_rate
//	anomaly == pattern_shift
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, res *anomaly.Result) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "anomaly" {
		if op != "==" {
			return false, 0
		}
		switch rhs {
		case "latency":
			return res.LatencyAnomaly, res.Duration
		case "error_rate":
			return res.ErrorRateAnomaly, res.ErrorRate
		case "pattern_shift":
			return res.PatternShift, res.Duration
		default:
			return false, 0
		}
	}

	v, ok := numericField(field, res)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the observation result.
func numericField(field string, res *anomaly.Result) (float64, bool) {
	switch field {
	case "error_rate":
		return res.ErrorRate, true
	case "latency_p95":
		return res.Baseline.P95, true
	case "latency_p99":
		return res.Baseline.P99, true
	case "avg_latency":
		return res.Baseline.Average, true
	case "duration":
		return res.Duration, true
	case "sample_count":
		return float64(res.Baseline.Count), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
