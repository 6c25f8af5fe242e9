package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prasanna192005/ObservoAI/internal/anomaly"
	"github.com/prasanna192005/ObservoAI/internal/store"
	wsHub "github.com/prasanna192005/ObservoAI/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func newStore(results ...*anomaly.Result) *store.Store {
	st := store.New(5 * time.Minute)
	for _, r := range results {
		st.Put(r)
	}
	return st
}

func res(route string) *anomaly.Result {
	return &anomaly.Result{
		Route:    route,
		Duration: 0.1,
		Baseline: anomaly.Baseline{Average: 0.1, P95: 0.15, P99: 0.2, Count: 30},
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
func startHub(t *testing.T, st *store.Store) (wsURL string, hub *wsHub.Hub) {
	t.Helper()

	hub = wsHub.New(st, testInterval)
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSnapshot(t *testing.T) {
	wsURL, _ := startHub(t, newStore(res("GET:/api/accounts")))

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["event"] != "snapshot" {
		t.Errorf("event: got %v, want snapshot", m["event"])
	}
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	if data["generated_at"] == nil || data["generated_at"] == "" {
		t.Error("generated_at: missing")
	}
}

func TestHub_MessageContainsRoutes(t *testing.T) {
	wsURL, _ := startHub(t, newStore(res("GET:/api/accounts"), res("POST:/api/transactions")))

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m map[string]interface{}
	json.Unmarshal(msg, &m) //nolint:errcheck
	data := m["data"].(map[string]interface{})
	routes, ok := data["routes"].([]interface{})
	if !ok {
		t.Fatal("routes: missing or wrong type")
	}
	if len(routes) != 2 {
		t.Errorf("routes: got %d, want 2", len(routes))
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume initial message

	// Give the hub a moment to register the client.
	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 1 {
		t.Errorf("Count: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_DeltaOnTick(t *testing.T) {
	st := newStore()
	wsURL, _ := startHub(t, st)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate snapshot (empty store)

	// Add a route after connect; the next tick should carry it as a delta.
	st.Put(res("GET:/api/customers"))

	msg := readMessage(t, conn)
	var m map[string]interface{}
	json.Unmarshal(msg, &m) //nolint:errcheck
	if m["event"] != "delta" {
		t.Errorf("event: got %v, want delta", m["event"])
	}
	data := m["data"].(map[string]interface{})
	routes := data["routes"].([]interface{})
	if len(routes) != 1 {
		t.Errorf("routes after tick: got %d, want 1", len(routes))
	}
}

func TestHub_DeltaCarriesOnlyChangedRoutes(t *testing.T) {
	st := newStore(res("GET:/api/accounts"), res("POST:/api/transactions"))
	wsURL, _ := startHub(t, st)
	time.Sleep(3 * testInterval) // let ticks fold the seeded routes into the diff state

	conn := dial(t, wsURL)
	readMessage(t, conn) // snapshot

	// Only one route moves; the delta must not repeat the other.
	st.Put(res("GET:/api/accounts"))

	msg := readMessage(t, conn)
	var m map[string]interface{}
	json.Unmarshal(msg, &m) //nolint:errcheck
	data := m["data"].(map[string]interface{})
	routes := data["routes"].([]interface{})
	if len(routes) != 1 {
		t.Fatalf("changed routes: got %d, want 1", len(routes))
	}
	route := routes[0].(map[string]interface{})
	if route["route"] != "GET:/api/accounts" {
		t.Errorf("changed route: got %v, want GET:/api/accounts", route["route"])
	}
}

func TestHub_QuietWhenNothingChanges(t *testing.T) {
	st := newStore(res("GET:/api/accounts"))
	wsURL, _ := startHub(t, st)
	time.Sleep(3 * testInterval) // let ticks fold the seeded route into the diff state

	conn := dial(t, wsURL)
	readMessage(t, conn) // snapshot

	// No store writes from here on: ticks must stay off the wire.
	conn.SetReadDeadline(time.Now().Add(10 * testInterval))
	if _, msg, err := conn.ReadMessage(); err == nil {
		t.Errorf("idle ticks produced a message: %s", msg)
	}
}
