// Package anomaly implements the per-route anomaly signal engine.
//
// engine.go provides the stateful Engine that maintains a rolling latency
// baseline and error-rate stats per route key and evaluates every completed
// request against them. Observe is the single entry point: it folds one
// (route, duration, isError) observation into the state and returns a Result
// carrying the updated baseline snapshot plus any anomaly flags and
// early-warning signals.
//
// The engine never logs and never exports metrics itself — callers (the HTTP
// middleware) forward Result fields to whatever sinks they use. This keeps
// the engine unit-testable without a metrics backend.
//
// Baselines are per process. Each service instance holds its own independent
// state; there is no cross-process sharing.
package anomaly
