// Package middleware attaches the anomaly signal engine to an HTTP server.
//
// Telemetry.Wrap instruments a handler for one route template: it times the
// request, captures the final status code, feeds the observation to the
// engine and forwards the result to the metrics recorder, the snapshot store
// and the alert engine. Anomalies and early warnings are logged with
// distinct "[ANOMALY]" / "[WARNING]" prefixes.
//
// The route key passed to the engine is always the template
// ("GET:/api/accounts/{id}"), never the raw URL, so baselines aggregate
// across path-parameter values.
package middleware
