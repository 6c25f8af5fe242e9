package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/prasanna192005/ObservoAI/internal/alerts"
	"github.com/prasanna192005/ObservoAI/internal/anomaly"
	"github.com/prasanna192005/ObservoAI/internal/store"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads route state from the snapshot store and returns JSON responses.
type Handler struct {
	store  *store.Store
	alerts *alerts.Engine
	mux    *http.ServeMux
}

// New creates a Handler wired to the given snapshot store and alert engine
// and registers all routes. alertEngine may be nil.
func New(st *store.Store, alertEngine *alerts.Engine) http.Handler {
	h := &Handler{store: st, alerts: alertEngine, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/routes", h.routes)
	h.mux.HandleFunc("/api/v1/signals", h.signals)
	h.mux.HandleFunc("/api/v1/alerts", h.alertList)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — overall state and route counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{RouteCount: len(entries)}
	if h.alerts != nil {
		resp.AlertCount = len(h.alerts.Active())
	}

	if len(entries) == 0 {
		resp.State = StateUnknown
		jsonResp(w, http.StatusOK, resp)
		return
	}

	var totalErrs, total int64
	for _, e := range entries {
		res := e.Result
		if res.Anomalous() {
			resp.AnomalousRoutes++
		} else if len(res.Warnings) > 0 {
			resp.WarningRoutes++
		}
		totalErrs += res.ErrorCount
		total += res.TotalCount
	}
	if total > 0 {
		resp.OverallErrorRate = float64(totalErrs) / float64(total)
	}

	switch {
	case resp.AnomalousRoutes > 0:
		resp.State = StateCritical
	case resp.WarningRoutes > 0:
		resp.State = StateWarning
	default:
		resp.State = StateHealthy
	}
	jsonResp(w, http.StatusOK, resp)
}

// routes returns GET /api/v1/routes — all live routes, or a single route
// when the "route" query parameter is given (route keys contain slashes, so
// they travel as a query parameter rather than a path segment).
func (h *Handler) routes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if key := r.URL.Query().Get("route"); key != "" {
		e, ok := h.store.Get(key)
		if !ok || time.Since(e.UpdatedAt) > h.store.TTL() {
			jsonErr(w, http.StatusNotFound, "route not found")
			return
		}
		jsonResp(w, http.StatusOK, toRouteResponse(e))
		return
	}

	entries := h.store.List()
	out := make([]RouteResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toRouteResponse(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	jsonResp(w, http.StatusOK, out)
}

// signals returns GET /api/v1/signals — how many live routes currently raise
// each early-warning signal.
func (h *Handler) signals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var resp SignalsResponse
	for _, e := range h.store.List() {
		for _, sig := range e.Result.Warnings {
			switch sig {
			case anomaly.SignalLatencyApproaching:
				resp.LatencyApproaching++
			case anomaly.SignalErrorRateApproaching:
				resp.ErrorRateApproaching++
			}
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// alertList returns GET /api/v1/alerts — firing and recently resolved alerts.
func (h *Handler) alertList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// snapshot returns GET /api/v1/snapshot — the full live state in one payload.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store))
}

// BuildSnapshot assembles the full snapshot payload. Shared with the
// WebSocket hub so both surfaces serve identical data.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	entries := st.List()
	out := make([]RouteResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toRouteResponse(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return SnapshotResponse{
		Routes:      out,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// RouteFromEntry converts one store entry to its API representation.
// Used by the WebSocket hub to build per-route delta payloads.
func RouteFromEntry(e *store.Entry) RouteResponse {
	return toRouteResponse(e)
}

// --- helpers ----------------------------------------------------------------

func toRouteResponse(e *store.Entry) RouteResponse {
	res := e.Result
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return RouteResponse{
		Route:            res.Route,
		AvgLatency:       res.Baseline.Average,
		LatencyP95:       res.Baseline.P95,
		LatencyP99:       res.Baseline.P99,
		SampleCount:      res.Baseline.Count,
		ErrorRate:        res.ErrorRate,
		ErrorCount:       res.ErrorCount,
		TotalCount:       res.TotalCount,
		LatencyAnomaly:   res.LatencyAnomaly,
		ErrorRateAnomaly: res.ErrorRateAnomaly,
		PatternShift:     res.PatternShift,
		Warnings:         warnings,
		Diagnostics:      computeDiagnostics(res),
		LastSeen:         e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func jsonResp(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, status int, msg string) {
	jsonResp(w, status, errorResponse{Error: msg})
}
