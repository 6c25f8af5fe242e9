// Package metrics exports engine observation results as Prometheus series.
// Series names match the original dashboards: bank_api_latency_seconds,
// bank_baseline_latency_seconds, bank_error_rate, bank_errors_total,
// bank_anomalies_total and bank_early_warning_signals_total.
package metrics
