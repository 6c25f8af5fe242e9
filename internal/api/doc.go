// Package api serves the ops REST API over the route snapshot store.
// All endpoints live under /api/v1 and return JSON. The same snapshot
// payload the API serves is broadcast by the WebSocket hub.
package api
