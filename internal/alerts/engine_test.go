package alerts

import (
	"testing"
	"time"

	"github.com/prasanna192005/ObservoAI/internal/anomaly"
	"github.com/prasanna192005/ObservoAI/internal/config"
)

func result(route string, rate float64) *anomaly.Result {
	return &anomaly.Result{
		Route:     route,
		Duration:  0.1,
		ErrorRate: rate,
		Baseline:  anomaly.Baseline{Average: 0.1, P95: 0.2, P99: 0.3, Count: 50},
	}
}

func engineWithRule(cond, severity string, cooldown time.Duration) *Engine {
	return New(config.AlertsConfig{
		Rules: []config.AlertRule{{
			Name:      "test-rule",
			Condition: cond,
			Severity:  severity,
			Cooldown:  cooldown,
		}},
	})
}

// --- condition parsing -------------------------------------------------------

func TestEvalCondition(t *testing.T) {
	res := result("GET:/api/accounts", 0.1)
	res.LatencyAnomaly = true

	cases := []struct {
		cond  string
		fires bool
	}{
		{"error_rate > 0.05", true},
		{"error_rate > 0.5", false},
		{"latency_p95 > 0.1", true},
		{"latency_p99 >= 0.3", true},
		{"avg_latency < 0.2", true},
		{"sample_count > 10", true},
		{"anomaly == latency", true},
		{"anomaly == error_rate", false},
		{"anomaly == pattern_shift", false},
		{"nonsense", false},
		{"unknown_field > 1", false},
		{"error_rate > notanumber", false},
	}
	for _, tc := range cases {
		fires, _ := evalCondition(tc.cond, res)
		if fires != tc.fires {
			t.Errorf("evalCondition(%q) = %v, want %v", tc.cond, fires, tc.fires)
		}
	}
}

// --- firing and resolution ---------------------------------------------------

func TestEvaluate_FiresAndResolves(t *testing.T) {
	e := engineWithRule("error_rate > 0.05", "critical", time.Minute)

	e.Evaluate(result("GET:/api/accounts", 0.2))
	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("active after fire: got %d, want 1", len(active))
	}
	if active[0].State != "firing" || active[0].Severity != "critical" {
		t.Errorf("alert: %+v", active[0])
	}

	// Condition back under threshold — alert resolves but stays in the
	// recent-history window.
	e.Evaluate(result("GET:/api/accounts", 0.0))
	active = e.Active()
	if len(active) != 1 {
		t.Fatalf("active after resolve: got %d, want 1 (recent history)", len(active))
	}
	if active[0].State != "resolved" {
		t.Errorf("state: got %q, want resolved", active[0].State)
	}
}

func TestEvaluate_CooldownSuppressesRefire(t *testing.T) {
	e := engineWithRule("error_rate > 0.05", "warning", time.Hour)

	e.Evaluate(result("GET:/api/accounts", 0.2))
	e.Evaluate(result("GET:/api/accounts", 0.2))
	e.Evaluate(result("GET:/api/accounts", 0.2))

	if got := len(e.Active()); got != 1 {
		t.Errorf("active: got %d, want 1 (cooldown suppresses re-fires)", got)
	}
}

func TestEvaluate_PerRouteKeys(t *testing.T) {
	e := engineWithRule("error_rate > 0.05", "warning", time.Minute)

	e.Evaluate(result("GET:/api/accounts", 0.2))
	e.Evaluate(result("POST:/api/transactions", 0.2))

	if got := len(e.Active()); got != 2 {
		t.Errorf("active: got %d, want 2 (one per route)", got)
	}
}

func TestEvaluate_NoRulesIsNoOp(t *testing.T) {
	e := New(config.AlertsConfig{})
	e.Evaluate(result("GET:/api/accounts", 1.0))
	if got := len(e.Active()); got != 0 {
		t.Errorf("active: got %d, want 0", got)
	}
}
