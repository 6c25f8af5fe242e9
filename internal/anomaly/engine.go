package anomaly

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// Default engine tuning. Overridable via Options.
const (
	// DefaultWindowSize is the number of recent latency samples kept per route.
	DefaultWindowSize = 100

	// DefaultAnomalyThreshold flags a request when its duration exceeds
	// p95 * threshold.
	DefaultAnomalyThreshold = 2.0

	// DefaultErrorRateThreshold flags a route when its error rate exceeds
	// this fraction.
	DefaultErrorRateThreshold = 0.05

	// DefaultWarningFactor scales the anomaly thresholds down to produce
	// early-warning signals before the hard threshold is crossed.
	DefaultWarningFactor = 0.8

	// DefaultMinSamples is the number of observations a route needs before
	// anomaly evaluation kicks in. Cold baselines are too noisy to flag.
	DefaultMinSamples = 10
)

// Early-warning signal names. These appear verbatim as the "signal" label on
// the bank_early_warning_signals_total metric.
const (
	SignalLatencyApproaching   = "LATENCY_APPROACHING_THRESHOLD"
	SignalErrorRateApproaching = "ERROR_RATE_APPROACHING_THRESHOLD"
)

// ErrInvalidDuration is returned by Observe for a negative or non-finite
// duration. Rejecting at the boundary keeps bad input out of the rolling state.
var ErrInvalidDuration = errors.New("anomaly: duration must be a non-negative finite number of seconds")

// Options tunes a new Engine. The zero value of any field selects its default.
type Options struct {
	WindowSize         int
	AnomalyThreshold   float64
	ErrorRateThreshold float64
	WarningFactor      float64
	MinSamples         int
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.AnomalyThreshold <= 0 {
		o.AnomalyThreshold = DefaultAnomalyThreshold
	}
	if o.ErrorRateThreshold <= 0 {
		o.ErrorRateThreshold = DefaultErrorRateThreshold
	}
	if o.WarningFactor <= 0 {
		o.WarningFactor = DefaultWarningFactor
	}
	if o.MinSamples <= 0 {
		o.MinSamples = DefaultMinSamples
	}
	return o
}

// Baseline is a point-in-time copy of a route's rolling latency statistics.
// Average is a cumulative mean over all observations; P95/P99 are derived
// from the bounded window of recent samples.
type Baseline struct {
	Average float64 `json:"average"`
	P95     float64 `json:"p95"`
	P99     float64 `json:"p99"`
	Count   int64   `json:"count"`
}

// Result is the evaluation of a single observation against the updated state.
type Result struct {
	Route      string  `json:"route"`
	Duration   float64 `json:"duration_seconds"`
	StatusCode int     `json:"status_code,omitempty"`

	Baseline   Baseline `json:"baseline"`
	ErrorRate  float64  `json:"error_rate"`
	ErrorCount int64    `json:"error_count"`
	TotalCount int64    `json:"total_count"`

	IsError       bool   `json:"is_error"`
	ErrorCategory string `json:"error_category,omitempty"` // set only when IsError

	LatencyAnomaly   bool `json:"latency_anomaly"`
	ErrorRateAnomaly bool `json:"error_rate_anomaly"`
	PatternShift     bool `json:"pattern_shift"`

	// Warnings holds the early-warning signal names raised by this
	// observation, possibly empty.
	Warnings []string `json:"warnings,omitempty"`
}

// Anomalous reports whether any hard anomaly flag is set.
func (r *Result) Anomalous() bool {
	return r.LatencyAnomaly || r.ErrorRateAnomaly
}

// Engine converts a stream of per-request observations into rolling per-route
// baselines and anomaly signals.
//
// All exported methods are safe for concurrent use. Observations on distinct
// route keys do not serialize against each other; observations on the same
// key do.
type Engine struct {
	optMu sync.RWMutex
	opts  Options

	mu     sync.RWMutex
	routes map[string]*routeState
}

// routeState is the mutable per-route accumulator. Guarded by its own mutex
// so that hot routes don't contend with each other.
type routeState struct {
	mu sync.Mutex

	// Latency baseline.
	average float64
	count   int64
	window  []float64 // FIFO, capacity Options.WindowSize
	p95     float64
	p99     float64

	// Error-rate stats.
	errorCount int64
	totalCount int64
	rate       float64
}

// NewEngine returns a ready-to-use Engine with the given options.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts:   opts.withDefaults(),
		routes: make(map[string]*routeState),
	}
}

// SetOptions replaces the engine's threshold tuning. Window size changes only
// apply to samples observed afterwards; existing windows are not resized.
// Intended for config hot-reload.
func (e *Engine) SetOptions(opts Options) {
	e.optMu.Lock()
	e.opts = opts.withDefaults()
	e.optMu.Unlock()
}

// Observe folds one completed request into the state for route and evaluates
// the updated baseline.
//
// route must be the matched route template (e.g. "GET:/api/accounts/{id}"),
// never the raw path, so that statistics aggregate across path-parameter
// values. statusCode is optional; pass 0 when the caller does not know it.
//
// Returns ErrInvalidDuration for a negative or non-finite duration, leaving
// all state untouched.
func (e *Engine) Observe(route string, durationSeconds float64, isError bool, statusCode int) (*Result, error) {
	if durationSeconds < 0 || math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) {
		return nil, ErrInvalidDuration
	}

	e.optMu.RLock()
	opts := e.opts
	e.optMu.RUnlock()

	st := e.stateFor(route)

	st.mu.Lock()
	st.updateBaseline(durationSeconds, opts.WindowSize)
	st.updateErrorRate(isError)

	res := &Result{
		Route:      route,
		Duration:   durationSeconds,
		StatusCode: statusCode,
		Baseline: Baseline{
			Average: st.average,
			P95:     st.p95,
			P99:     st.p99,
			Count:   st.count,
		},
		ErrorRate:  st.rate,
		ErrorCount: st.errorCount,
		TotalCount: st.totalCount,
		IsError:    isError,
	}
	st.mu.Unlock()

	evaluate(opts, res)
	if isError {
		res.ErrorCategory = Categorize(statusCode)
	}
	return res, nil
}

// Routes returns the route keys currently tracked, in no particular order.
func (e *Engine) Routes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.routes))
	for k := range e.routes {
		out = append(out, k)
	}
	return out
}

func (e *Engine) stateFor(route string) *routeState {
	e.mu.RLock()
	st, ok := e.routes[route]
	e.mu.RUnlock()
	if ok {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.routes[route]; ok {
		return st
	}
	st = &routeState{}
	e.routes[route] = st
	return st
}

// updateBaseline folds one latency sample into the cumulative mean and the
// bounded FIFO window, then recomputes the window percentiles.
//
// The mean is cumulative over the route's whole lifetime — old data never
// decays. The percentiles, in contrast, see only the last windowSize samples.
func (st *routeState) updateBaseline(duration float64, windowSize int) {
	if st.count == 0 {
		st.average = duration
		st.count = 1
		st.window = append(st.window, duration)
		st.p95 = duration
		st.p99 = duration
		return
	}

	st.average = (st.average*float64(st.count) + duration) / float64(st.count+1)
	st.count++

	st.window = append(st.window, duration)
	if len(st.window) > windowSize {
		st.window = st.window[1:]
	}

	sorted := make([]float64, len(st.window))
	copy(sorted, st.window)
	sort.Float64s(sorted)
	st.p95 = percentile(sorted, 0.95, st.average)
	st.p99 = percentile(sorted, 0.99, st.average)
}

func (st *routeState) updateErrorRate(isError bool) {
	st.totalCount++
	if isError {
		st.errorCount++
	}
	st.rate = float64(st.errorCount) / float64(st.totalCount)
}

// percentile returns sorted[floor(len*p)], clamped to the last element.
// Returns fallback when the window is empty.
//
// This is deliberately the index formula the rest of the system was tuned
// against, not an interpolating textbook percentile.
func percentile(sorted []float64, p float64, fallback float64) float64 {
	n := len(sorted)
	if n == 0 {
		return fallback
	}
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// evaluate applies the threshold decisions to a Result whose baseline and
// error-rate fields are already up to date. Pure: reads res, writes only the
// flag and warning fields.
func evaluate(opts Options, res *Result) {
	opts = opts.withDefaults()

	// Hard anomalies only fire once the baseline has warmed up.
	if res.Baseline.Count > int64(opts.MinSamples) {
		res.LatencyAnomaly = res.Duration > res.Baseline.P95*opts.AnomalyThreshold
		res.ErrorRateAnomaly = res.ErrorRate > opts.ErrorRateThreshold
		res.PatternShift = math.Abs(res.Duration-res.Baseline.P95) > res.Baseline.Average
	}

	// Early warnings always run, cold baseline or not.
	if res.Duration > res.Baseline.Average*opts.AnomalyThreshold*opts.WarningFactor {
		res.Warnings = append(res.Warnings, SignalLatencyApproaching)
	}
	if res.ErrorRate > opts.ErrorRateThreshold*opts.WarningFactor {
		res.Warnings = append(res.Warnings, SignalErrorRateApproaching)
	}
}
