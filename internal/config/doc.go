// Package config loads and validates the YAML configuration shared by the
// bankd service and the predictor sidecar. Secrets (API keys, webhook URLs)
// are referenced by environment-variable name and resolved at read time.
// Watch provides fsnotify-based hot reload so engine thresholds and alert
// rules can change without a restart.
package config
