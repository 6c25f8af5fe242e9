package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prasanna192005/ObservoAI/internal/config"
)

// deliver pushes a to every configured webhook target. Called on its own
// goroutine per alert; failures are logged and never reach the caller.
func (e *Engine) deliver(a *Alert) {
	e.mu.Lock()
	targets := make([]config.WebhookConfig, len(e.webhooks))
	copy(targets, e.webhooks)
	e.mu.Unlock()

	for _, wh := range targets {
		url := wh.URL()
		if url == "" {
			continue
		}

		payload, err := buildPayload(wh.Type, a)
		if err != nil {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err := e.post(url, payload); err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"err", err,
			)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type,
			"rule", a.RuleName,
			"state", a.State,
		)
	}
}

// buildPayload renders the alert into the target's wire format. Each format
// carries the route's baseline context alongside the alert itself.
func buildPayload(kind string, a *Alert) ([]byte, error) {
	switch kind {
	case "slack":
		return json.Marshal(map[string]string{"text": slackText(a)})
	case "teams":
		return json.Marshal(teamsCard(a))
	case "pagerduty", "http":
		return json.Marshal(map[string]interface{}{
			"event":   "alert." + a.State,
			"sent_at": time.Now().UTC().Format(time.RFC3339),
			"alert":   a,
		})
	default:
		return nil, fmt.Errorf("unknown webhook type %q", kind)
	}
}

// slackText is a two-line mrkdwn message: the alert headline, then the
// route's baseline figures at fire time.
func slackText(a *Alert) string {
	return fmt.Sprintf("%s *%s* on `%s` (%s)\nerror_rate=%.4f  avg=%.4fs  p95=%.4fs  samples=%d",
		severityLabel(a.Severity), a.RuleName, a.Route, a.State,
		a.ErrorRate, a.AvgLatency, a.LatencyP95, a.SampleCount)
}

// teamsCard renders a MessageCard whose facts section carries the baseline.
func teamsCard(a *Alert) map[string]interface{} {
	return map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("ObservoAI Alert: %s", a.RuleName),
		"text":       a.Message,
		"sections": []map[string]interface{}{{
			"facts": []map[string]string{
				{"name": "Route", "value": a.Route},
				{"name": "State", "value": a.State},
				{"name": "Severity", "value": a.Severity},
				{"name": "Error rate", "value": fmt.Sprintf("%.4f", a.ErrorRate)},
				{"name": "Avg latency", "value": fmt.Sprintf("%.4fs", a.AvgLatency)},
				{"name": "P95 latency", "value": fmt.Sprintf("%.4fs", a.LatencyP95)},
				{"name": "Samples", "value": fmt.Sprintf("%d", a.SampleCount)},
			},
		}},
	}
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
