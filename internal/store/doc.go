// Package store keeps the latest observation result per route in memory.
// It provides a thread-safe snapshot store with TTL eviction so routes that
// stop receiving traffic eventually disappear from the ops API and the
// WebSocket stream.
package store
