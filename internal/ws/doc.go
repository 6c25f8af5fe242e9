// Package ws streams live route snapshots to WebSocket clients. The hub
// broadcasts the same payload as GET /api/v1/snapshot on a fixed interval,
// plus once immediately on connect.
package ws
