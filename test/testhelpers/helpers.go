// Package testhelpers provides shared utilities for the integration tests.
//
// It wires a complete server (hub, consumers, REST API, in-memory history
// store) behind an httptest.Server and offers WebSocket dialing and event
// reading helpers so individual tests stay focused on behavior.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/DSwithSiam/demo-websocket-project/internal/auth"
	"github.com/DSwithSiam/demo-websocket-project/internal/consumer"
	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
	"github.com/DSwithSiam/demo-websocket-project/internal/server"
	"github.com/DSwithSiam/demo-websocket-project/internal/store"
)

// TestToken is accepted by the test server's validator.
const TestToken = "integration-token"

// TestIdentity is the identity bound to TestToken.
var TestIdentity = auth.Identity{ID: "9", Username: "tester", Email: "tester@example.com"}

// ChatServer bundles the pieces of a running test server that tests need to
// reach directly.
type ChatServer struct {
	HTTP     *httptest.Server
	Hub      *hub.Hub
	Messages *store.MemoryStore
}

// StartChatServer starts a fully wired chat server on a random port. The
// server and its hub are torn down when the test finishes.
func StartChatServer(t *testing.T) *ChatServer {
	t.Helper()

	cfg := server.NewConfig()
	// Broadcast tests send bursts of frames back to back.
	cfg.RateLimit.Burst = 100

	registry := hub.NewHub()
	messages := store.NewMemoryStore()
	validator := &auth.StaticValidator{Tokens: map[string]auth.Identity{
		TestToken: TestIdentity,
	}}
	policy := server.NewOriginPolicy(cfg.AllowedOrigins)

	ws := server.NewHandlers(registry, cfg, policy, validator, messages)
	api := server.NewAPI(registry, messages, consumer.NewNotifier(registry), validator)

	ts := httptest.NewServer(server.SetupRoutes(ws, api))
	t.Cleanup(func() {
		_ = registry.Shutdown(2 * time.Second)
		ts.Close()
	})

	return &ChatServer{HTTP: ts, Hub: registry, Messages: messages}
}

// WSURL converts the test server's base URL into a WebSocket URL for the
// given path, which may include a query string.
func (s *ChatServer) WSURL(path string) string {
	return "ws" + strings.TrimPrefix(s.HTTP.URL, "http") + path
}

// Dial opens a WebSocket connection with an allowed Origin header and
// registers cleanup. It fails the test if the handshake fails.
func Dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, err := DialRaw(url, "http://localhost:8080")
	require.NoError(t, err, "websocket handshake to %s", url)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// DialRaw opens a WebSocket connection with the given Origin header and
// returns the handshake error unchecked.
func DialRaw(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendJSON writes a JSON frame and fails the test on error.
func SendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// ReadEvent reads the next JSON frame with a deadline and decodes it into a
// generic map.
func ReadEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event map[string]any
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

// WaitForEvent reads frames until one with the given type arrives, failing
// the test if the deadline passes first.
func WaitForEvent(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		event := ReadEvent(t, conn)
		if event["type"] == eventType {
			return event
		}
	}
	t.Fatalf("no %q event arrived before the deadline", eventType)
	return nil
}

// ExpectSilence asserts that no frame arrives within the given window.
func ExpectSilence(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(window)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "expected no frame, got one")
	netErr, ok := err.(interface{ Timeout() bool })
	require.True(t, ok && netErr.Timeout(), "expected read timeout, got: %v", err)
}
