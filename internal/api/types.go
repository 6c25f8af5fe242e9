package api

// Overall state values returned by GET /api/v1/health.
const (
	StateHealthy  = "healthy"
	StateWarning  = "warning"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State            string  `json:"state"`
	RouteCount       int     `json:"route_count"`
	AnomalousRoutes  int     `json:"anomalous_routes"`
	WarningRoutes    int     `json:"warning_routes"`
	OverallErrorRate float64 `json:"overall_error_rate"`
	AlertCount       int     `json:"alert_count"`
}

// RouteResponse is one route entry in GET /api/v1/routes.
type RouteResponse struct {
	Route            string           `json:"route"`
	AvgLatency       float64          `json:"avg_latency_seconds"`
	LatencyP95       float64          `json:"latency_p95_seconds"`
	LatencyP99       float64          `json:"latency_p99_seconds"`
	SampleCount      int64            `json:"sample_count"`
	ErrorRate        float64          `json:"error_rate"`
	ErrorCount       int64            `json:"error_count"`
	TotalCount       int64            `json:"total_count"`
	LatencyAnomaly   bool             `json:"latency_anomaly"`
	ErrorRateAnomaly bool             `json:"error_rate_anomaly"`
	PatternShift     bool             `json:"pattern_shift"`
	Warnings         []string         `json:"warnings"`
	Diagnostics      []DiagnosticHint `json:"diagnostics"`
	LastSeen         string           `json:"last_seen"` // RFC3339
}

// SignalsResponse is the payload for GET /api/v1/signals: how many live
// routes currently raise each early-warning signal.
type SignalsResponse struct {
	LatencyApproaching   int `json:"latency_approaching_threshold"`
	ErrorRateApproaching int `json:"error_rate_approaching_threshold"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the WebSocket
// broadcast body.
type SnapshotResponse struct {
	Routes      []RouteResponse `json:"routes"`
	GeneratedAt string          `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
