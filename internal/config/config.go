package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort      = 8080
	DefaultSnapshotTTL   = 5 * time.Minute
	DefaultPollInterval  = 30 * time.Second
	DefaultPredictorPort = 5000
	DefaultOutputPath    = "failure_predictions.json"

	// Predictor analysis thresholds, matching the original ML service.
	DefaultLatencyThreshold   = 0.1 // seconds
	DefaultErrorRateThreshold = 0.05
)

// Config is the top-level configuration for both bankd and the predictor.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Bank      BankConfig      `yaml:"bank"`
	Predictor PredictorConfig `yaml:"predictor"`
}

// BankConfig holds all bankd-side settings.
type BankConfig struct {
	// HTTPPort is the port serving the bank routes, the ops API, /metrics
	// and the WebSocket stream.
	HTTPPort int `yaml:"http_port"`

	// SnapshotTTL is how long an idle route stays visible in the ops API.
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`

	// Engine tunes the anomaly signal engine.
	Engine EngineConfig `yaml:"engine"`

	// Auth configures ops API authentication.
	Auth APIAuthConfig `yaml:"auth"`

	// Alerts holds alerting rule and webhook delivery configuration.
	Alerts AlertsConfig `yaml:"alerts"`
}

// EngineConfig overrides the engine defaults. Zero values select the
// built-in defaults (window 100, threshold 2.0, error rate 0.05,
// warning factor 0.8, min samples 10).
type EngineConfig struct {
	WindowSize         int     `yaml:"window_size"`
	AnomalyThreshold   float64 `yaml:"anomaly_threshold"`
	ErrorRateThreshold float64 `yaml:"error_rate_threshold"`
	WarningFactor      float64 `yaml:"warning_factor"`
	MinSamples         int     `yaml:"min_samples"`
}

// APIAuthConfig configures ops API authentication.
type APIAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header carrying the key. Defaults to X-Api-Key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key resolved from the environment.
func (a APIAuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name or the default.
func (a APIAuthConfig) EffectiveHeader() string {
	if a.Header == "" {
		return "X-Api-Key"
	}
	return a.Header
}

// AlertsConfig holds all alerting rules and webhook targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines a threshold-based alert condition over route snapshots.
type AlertRule struct {
	// Name is the human-readable alert identifier.
	Name string `yaml:"name"`

	// Condition is an expression like "error_rate > 0.05" or
	// "anomaly == latency".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// PredictorConfig holds all predictor-side settings.
type PredictorConfig struct {
	// HTTPPort is the port serving /predict and /predictions.
	HTTPPort int `yaml:"http_port"`

	// MetricsEndpoint is the full URL of bankd's /metrics endpoint.
	MetricsEndpoint string `yaml:"metrics_endpoint"`

	// PollInterval controls how often the analysis loop scrapes bankd.
	PollInterval time.Duration `yaml:"poll_interval"`

	// OutputPath is the JSON file the latest predictions are written to.
	OutputPath string `yaml:"output_path"`

	// LatencyThreshold flags a route whose p95 exceeds this many seconds.
	LatencyThreshold float64 `yaml:"latency_threshold"`

	// ErrorRateThreshold flags a route whose error rate exceeds this fraction.
	ErrorRateThreshold float64 `yaml:"error_rate_threshold"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Bank: BankConfig{
			HTTPPort:    DefaultHTTPPort,
			SnapshotTTL: DefaultSnapshotTTL,
		},
		Predictor: PredictorConfig{
			HTTPPort:           DefaultPredictorPort,
			PollInterval:       DefaultPollInterval,
			OutputPath:         DefaultOutputPath,
			LatencyThreshold:   DefaultLatencyThreshold,
			ErrorRateThreshold: DefaultErrorRateThreshold,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Bank.HTTPPort <= 0 || cfg.Bank.HTTPPort > 65535 {
		return fmt.Errorf("bank.http_port must be in 1..65535")
	}
	if cfg.Bank.SnapshotTTL <= 0 {
		return fmt.Errorf("bank.snapshot_ttl must be positive")
	}
	if cfg.Bank.Engine.WindowSize < 0 {
		return fmt.Errorf("bank.engine.window_size must not be negative")
	}
	if f := cfg.Bank.Engine.WarningFactor; f < 0 || f > 1 {
		return fmt.Errorf("bank.engine.warning_factor must be in 0..1")
	}
	switch cfg.Bank.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("bank.auth.mode: unknown mode %q", cfg.Bank.Auth.Mode)
	}
	for i, rule := range cfg.Bank.Alerts.Rules {
		if rule.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if rule.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, rule.Name)
		}
		switch rule.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, rule.Name, rule.Severity)
		}
	}
	for i, wh := range cfg.Bank.Alerts.Webhooks {
		switch wh.Type {
		case "teams", "slack", "pagerduty", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
	}
	if cfg.Predictor.PollInterval <= 0 {
		return fmt.Errorf("predictor.poll_interval must be positive")
	}
	if cfg.Predictor.LatencyThreshold <= 0 {
		return fmt.Errorf("predictor.latency_threshold must be positive")
	}
	if cfg.Predictor.ErrorRateThreshold <= 0 {
		return fmt.Errorf("predictor.error_rate_threshold must be positive")
	}
	return nil
}
