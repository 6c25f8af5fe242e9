// Package bank is the demo banking service that sits behind the telemetry
// middleware. Accounts, customers and transactions live in memory and are
// seeded at startup; the handlers are deliberately thin. The package exists
// to generate realistic per-route traffic, not to be a correct bank.
package bank
