package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/prasanna192005/ObservoAI/internal/config"
	"github.com/prasanna192005/ObservoAI/internal/scrape"
)

// Severity levels, most severe first.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Trend labels derived from consecutive polls.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// trendBand is the relative change below which a metric counts as stable.
const trendBand = 0.10

// Prediction is one forecast failure for a route.
type Prediction struct {
	Date              string  `json:"date"`
	DayOfWeek         string  `json:"dayOfWeek"`
	Endpoint          string  `json:"endpoint"`
	FailureType       string  `json:"failure_type"`
	Metric            string  `json:"metric"`
	PredictedValue    float64 `json:"predicted_value"`
	Threshold         float64 `json:"threshold"`
	Confidence        float64 `json:"confidence"`
	Severity          string  `json:"severity"`
	Trend             string  `json:"trend,omitempty"`
	Reason            string  `json:"reason"`
	RecommendedAction string  `json:"recommended_action"`
}

// Scraper is the sample source. Satisfied by *scrape.Client; injectable
// for tests.
type Scraper interface {
	Scrape(ctx context.Context) ([]scrape.RouteSample, error)
}

// Analyzer polls route samples and maintains the latest prediction list.
//
// Analyzer is safe for concurrent use.
type Analyzer struct {
	scraper      Scraper
	pollInterval time.Duration
	outputPath   string

	latencyThreshold   float64
	errorRateThreshold float64

	mu          sync.Mutex
	prev        map[string]scrape.RouteSample
	predictions []Prediction

	now func() time.Time // injectable for deterministic tests
}

// New creates an Analyzer from the predictor configuration.
func New(scraper Scraper, cfg config.PredictorConfig) *Analyzer {
	return &Analyzer{
		scraper:            scraper,
		pollInterval:       cfg.PollInterval,
		outputPath:         cfg.OutputPath,
		latencyThreshold:   cfg.LatencyThreshold,
		errorRateThreshold: cfg.ErrorRateThreshold,
		prev:               make(map[string]scrape.RouteSample),
		now:                time.Now,
	}
}

// Analyze runs one scrape-and-analyze cycle, replaces the stored prediction
// list and persists it to the output file.
func (a *Analyzer) Analyze(ctx context.Context) ([]Prediction, error) {
	samples, err := a.scraper.Scrape(ctx)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	a.mu.Lock()
	preds := a.analyzeSamples(samples, a.now())
	a.predictions = preds
	a.mu.Unlock()

	if a.outputPath != "" {
		if err := a.save(preds); err != nil {
			slog.Error("predict: saving predictions failed", "path", a.outputPath, "err", err)
		}
	}
	return preds, nil
}

// Predictions returns a copy of the latest prediction list.
func (a *Analyzer) Predictions() []Prediction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Prediction, len(a.predictions))
	copy(out, a.predictions)
	return out
}

// Run executes the analysis loop until ctx is cancelled. Scrape failures
// are logged and retried on the next tick.
func (a *Analyzer) Run(ctx context.Context) {
	t := time.NewTicker(a.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			preds, err := a.Analyze(ctx)
			if err != nil {
				slog.Error("predict: analysis cycle failed", "err", err)
				continue
			}
			slog.Info("predict: analysis cycle completed", "predictions", len(preds))
		}
	}
}

// analyzeSamples derives predictions from one poll. Caller holds a.mu.
func (a *Analyzer) analyzeSamples(samples []scrape.RouteSample, now time.Time) []Prediction {
	var preds []Prediction

	for _, s := range samples {
		prev, hasPrev := a.prev[s.Route]

		if s.ErrorRate > a.errorRateThreshold {
			p := a.prediction(now, s.Route, "Elevated Error Rate", "error_rate",
				s.ErrorRate, a.errorRateThreshold)
			p.Reason = fmt.Sprintf("Error rate expected to exceed %.0f%%", a.errorRateThreshold*100)
			p.RecommendedAction = fmt.Sprintf(
				"Check error logs for %s, validate dependencies, and review recent code changes", s.Route)
			if hasPrev {
				p.Trend = trendOf(s.ErrorRate, prev.ErrorRate)
			}
			preds = append(preds, p)
		}

		if s.LatencyP95 > a.latencyThreshold {
			p := a.prediction(now, s.Route, "High Response Time", "response_time",
				s.LatencyP95, a.latencyThreshold)
			p.Reason = fmt.Sprintf("Response time expected to exceed %.0fms", a.latencyThreshold*1000)
			p.RecommendedAction = fmt.Sprintf(
				"Consider scaling up the service handling %s or optimizing database queries", s.Route)
			if hasPrev {
				p.Trend = trendOf(s.LatencyP95, prev.LatencyP95)
			}
			preds = append(preds, p)
		}

		// Early-warning pressure: signal counters growing between polls means
		// the engine keeps raising pre-threshold warnings for this route.
		if hasPrev {
			var delta float64
			for sig, v := range s.Signals {
				delta += positiveDelta(v, prev.Signals[sig])
			}
			if delta > 0 {
				p := a.prediction(now, s.Route, "Early Warning Pressure", "warning_signals",
					delta, 0)
				p.Severity = SeverityInfo
				p.Confidence = 50
				p.Reason = fmt.Sprintf("%.0f early-warning signals since the previous poll", delta)
				p.RecommendedAction = fmt.Sprintf(
					"Watch %s — metrics are approaching their anomaly thresholds", s.Route)
				preds = append(preds, p)
			}
		}

		a.prev[s.Route] = s
	}

	sort.Slice(preds, func(i, j int) bool {
		if ri, rj := severityRank(preds[i].Severity), severityRank(preds[j].Severity); ri != rj {
			return ri < rj
		}
		return preds[i].Endpoint < preds[j].Endpoint
	})
	return preds
}

// prediction fills the fields every prediction shares. Severity and
// confidence scale with how far the value sits above its threshold:
// 1.5x the threshold tips warning into critical.
func (a *Analyzer) prediction(now time.Time, route, failureType, metric string, value, threshold float64) Prediction {
	severity := SeverityWarning
	leadDays := 3
	if threshold > 0 && value >= threshold*1.5 {
		severity = SeverityCritical
		leadDays = 2
	}

	confidence := 50.0
	if threshold > 0 {
		confidence += (value/threshold - 1) * 100
	}
	if confidence > 95 {
		confidence = 95
	}

	date := now.AddDate(0, 0, leadDays)
	return Prediction{
		Date:           date.Format("2006-01-02"),
		DayOfWeek:      date.Weekday().String(),
		Endpoint:       route,
		FailureType:    failureType,
		Metric:         metric,
		PredictedValue: round4(value),
		Threshold:      threshold,
		Confidence:     round1(confidence),
		Severity:       severity,
	}
}

// save writes the prediction list to the output file.
func (a *Analyzer) save(preds []Prediction) error {
	data, err := json.MarshalIndent(preds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.outputPath, data, 0o644)
}

func trendOf(current, previous float64) string {
	if previous == 0 {
		return TrendStable
	}
	change := (current - previous) / previous
	switch {
	case change > trendBand:
		return TrendIncreasing
	case change < -trendBand:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// positiveDelta returns the counter delta, treating resets as zero.
func positiveDelta(current, previous float64) float64 {
	d := current - previous
	if d < 0 {
		return 0
	}
	return d
}

func severityRank(s string) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
