package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const defaultScrapeTimeout = 10 * time.Second

// Metric families emitted by bankd that the predictor consumes.
const (
	familyLatency   = "bank_api_latency_seconds"
	familyBaseline  = "bank_baseline_latency_seconds"
	familyErrorRate = "bank_error_rate"
	familyErrors    = "bank_errors_total"
	familySignals   = "bank_early_warning_signals_total"
)

// RouteSample is the normalized per-route view of one scrape.
// Counter fields hold raw totals — not rates. The analyzer keeps the
// previous sample and derives trends from deltas.
type RouteSample struct {
	Route string

	// Baseline gauges exported by the anomaly engine.
	AvgLatency float64
	LatencyP95 float64
	LatencyP99 float64

	// ErrorRate is the engine's current error fraction for the route.
	ErrorRate float64

	// RequestCount is the total number of observed requests (histogram
	// sample count summed over status codes).
	RequestCount float64

	// ErrorsByCategory holds bank_errors_total per category label.
	ErrorsByCategory map[string]float64

	// Signals holds bank_early_warning_signals_total per signal label.
	Signals map[string]float64
}

// Client scrapes one bankd /metrics endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient returns a Client for the given metrics URL.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultScrapeTimeout},
	}
}

// Scrape fetches and parses the exposition, returning one sample per route
// sorted by route key.
func (c *Client) Scrape(ctx context.Context) ([]RouteSample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape: build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape: unexpected status %d", resp.StatusCode)
	}
	return Parse(resp.Body)
}

// Parse decodes a Prometheus text exposition from r into per-route samples.
// A partial result with a non-fatal parse warning is still returned
// successfully.
func Parse(r io.Reader) ([]RouteSample, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("scrape: parse prometheus text: %w", err)
	}

	byRoute := make(map[string]*RouteSample)
	sample := func(route string) *RouteSample {
		s, ok := byRoute[route]
		if !ok {
			s = &RouteSample{
				Route:            route,
				ErrorsByCategory: make(map[string]float64),
				Signals:          make(map[string]float64),
			}
			byRoute[route] = s
		}
		return s
	}

	if mf := mfs[familyBaseline]; mf != nil {
		for _, m := range mf.GetMetric() {
			route := labelValue(m, "route")
			if route == "" {
				continue
			}
			s := sample(route)
			switch labelValue(m, "stat") {
			case "avg":
				s.AvgLatency = m.GetGauge().GetValue()
			case "p95":
				s.LatencyP95 = m.GetGauge().GetValue()
			case "p99":
				s.LatencyP99 = m.GetGauge().GetValue()
			}
		}
	}

	if mf := mfs[familyErrorRate]; mf != nil {
		for _, m := range mf.GetMetric() {
			if route := labelValue(m, "route"); route != "" {
				sample(route).ErrorRate = m.GetGauge().GetValue()
			}
		}
	}

	if mf := mfs[familyLatency]; mf != nil {
		for _, m := range mf.GetMetric() {
			if route := labelValue(m, "route"); route != "" {
				sample(route).RequestCount += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	if mf := mfs[familyErrors]; mf != nil {
		for _, m := range mf.GetMetric() {
			route := labelValue(m, "route")
			if route == "" {
				continue
			}
			sample(route).ErrorsByCategory[labelValue(m, "category")] += m.GetCounter().GetValue()
		}
	}

	if mf := mfs[familySignals]; mf != nil {
		for _, m := range mf.GetMetric() {
			route := labelValue(m, "route")
			if route == "" {
				continue
			}
			sample(route).Signals[labelValue(m, "signal")] += m.GetCounter().GetValue()
		}
	}

	out := make([]RouteSample, 0, len(byRoute))
	for _, s := range byRoute {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out, nil
}

// labelValue returns the value of the named label on m, or "".
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
