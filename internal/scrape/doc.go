// Package scrape fetches bankd's Prometheus exposition and normalizes the
// bank_* series into per-route samples for the predictor's analysis loop.
package scrape
