// Package alerts evaluates threshold rules against observation results and
// delivers webhook notifications when rules fire or resolve. Rules are
// plain "field operator value" condition strings from the config file,
// evaluated per route with a cooldown between re-fires.
package alerts
