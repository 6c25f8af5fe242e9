package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prasanna192005/ObservoAI/internal/anomaly"
	"github.com/prasanna192005/ObservoAI/internal/api"
	"github.com/prasanna192005/ObservoAI/internal/store"
)

// --- test helpers -----------------------------------------------------------

func newStore(results ...*anomaly.Result) *store.Store {
	st := store.New(5 * time.Minute)
	for _, r := range results {
		st.Put(r)
	}
	return st
}

func res(route string) *anomaly.Result {
	return &anomaly.Result{
		Route:     route,
		Duration:  0.1,
		Baseline:  anomaly.Baseline{Average: 0.1, P95: 0.15, P99: 0.2, Count: 50},
		ErrorRate: 0.02, ErrorCount: 1, TotalCount: 50,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_Empty(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/health")

	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.State != api.StateUnknown {
		t.Errorf("state: got %q, want unknown", resp.State)
	}
	if resp.RouteCount != 0 {
		t.Errorf("route_count: got %d, want 0", resp.RouteCount)
	}
}

func TestHealth_CriticalWhenAnomalous(t *testing.T) {
	bad := res("POST:/api/transactions")
	bad.LatencyAnomaly = true
	h := api.New(newStore(res("GET:/api/accounts"), bad), nil)

	var resp api.HealthResponse
	decode(t, get(t, h, "/api/v1/health"), &resp)

	if resp.State != api.StateCritical {
		t.Errorf("state: got %q, want critical", resp.State)
	}
	if resp.AnomalousRoutes != 1 {
		t.Errorf("anomalous_routes: got %d, want 1", resp.AnomalousRoutes)
	}
	if resp.RouteCount != 2 {
		t.Errorf("route_count: got %d, want 2", resp.RouteCount)
	}
}

func TestHealth_WarningState(t *testing.T) {
	warn := res("GET:/api/accounts")
	warn.Warnings = []string{anomaly.SignalLatencyApproaching}
	h := api.New(newStore(warn), nil)

	var resp api.HealthResponse
	decode(t, get(t, h, "/api/v1/health"), &resp)
	if resp.State != api.StateWarning {
		t.Errorf("state: got %q, want warning", resp.State)
	}
}

// --- /api/v1/routes ---------------------------------------------------------

func TestRoutes_ListSorted(t *testing.T) {
	h := api.New(newStore(res("POST:/api/transactions"), res("GET:/api/accounts")), nil)

	var out []api.RouteResponse
	decode(t, get(t, h, "/api/v1/routes"), &out)

	if len(out) != 2 {
		t.Fatalf("routes: got %d, want 2", len(out))
	}
	if out[0].Route != "GET:/api/accounts" || out[1].Route != "POST:/api/transactions" {
		t.Errorf("order: got %q, %q", out[0].Route, out[1].Route)
	}
	if out[0].LatencyP95 != 0.15 {
		t.Errorf("p95: got %v, want 0.15", out[0].LatencyP95)
	}
}

func TestRoutes_SingleByQueryParam(t *testing.T) {
	h := api.New(newStore(res("GET:/api/accounts/{id}")), nil)

	path := "/api/v1/routes?route=" + url.QueryEscape("GET:/api/accounts/{id}")
	rr := get(t, h, path)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}

	var out api.RouteResponse
	decode(t, rr, &out)
	if out.Route != "GET:/api/accounts/{id}" {
		t.Errorf("route: got %q", out.Route)
	}
	if len(out.Diagnostics) == 0 {
		t.Error("expected diagnostics on route response")
	}
}

func TestRoutes_SingleNotFound(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/routes?route=GET:/nope")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/routes", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/signals --------------------------------------------------------

func TestSignals_CountsLiveWarnings(t *testing.T) {
	r1 := res("GET:/api/accounts")
	r1.Warnings = []string{anomaly.SignalLatencyApproaching}
	r2 := res("POST:/api/transactions")
	r2.Warnings = []string{anomaly.SignalLatencyApproaching, anomaly.SignalErrorRateApproaching}

	h := api.New(newStore(r1, r2), nil)

	var resp api.SignalsResponse
	decode(t, get(t, h, "/api/v1/signals"), &resp)
	if resp.LatencyApproaching != 2 {
		t.Errorf("latency signals: got %d, want 2", resp.LatencyApproaching)
	}
	if resp.ErrorRateApproaching != 1 {
		t.Errorf("error-rate signals: got %d, want 1", resp.ErrorRateApproaching)
	}
}

// --- /api/v1/snapshot -------------------------------------------------------

func TestSnapshot(t *testing.T) {
	h := api.New(newStore(res("GET:/api/accounts")), nil)

	var resp api.SnapshotResponse
	decode(t, get(t, h, "/api/v1/snapshot"), &resp)
	if len(resp.Routes) != 1 {
		t.Fatalf("routes: got %d, want 1", len(resp.Routes))
	}
	if resp.GeneratedAt == "" {
		t.Error("generated_at missing")
	}
}

// --- API key auth -----------------------------------------------------------

func TestAPIKey(t *testing.T) {
	inner := api.New(newStore(), nil)
	h := api.APIKey("apikey", "X-Api-Key", "s3cret", inner)

	rr := get(t, h, "/api/v1/health")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("without key: got %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Api-Key", "s3cret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("with key: got %d, want 200", rr.Code)
	}
}

func TestAPIKey_PassthroughWhenDisabled(t *testing.T) {
	inner := api.New(newStore(), nil)
	h := api.APIKey("none", "X-Api-Key", "", inner)
	if rr := get(t, h, "/api/v1/health"); rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}
