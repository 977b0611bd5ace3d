// Package testhelpers provides common utilities for testing the booking
// server.
//
// It contains helpers for wiring a complete backend (store, hub, scheduler,
// routes) around an httptest server, for driving WebSocket booking sessions,
// and for asserting on protocol messages, reducing duplication across unit
// and integration tests.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tablecast/tablecast/internal/booking"
	"github.com/tablecast/tablecast/internal/server"
)

// Backend bundles a fully wired booking service running behind an
// httptest.Server.
type Backend struct {
	Store     *booking.Store
	Hub       *server.Hub
	Scheduler *server.Scheduler
	App       *server.App
	Server    *httptest.Server
}

// StartBackend wires a complete booking backend with the given confirmation
// delay and starts it on an httptest server. Cleanup is registered on t.
func StartBackend(t *testing.T, confirmDelay time.Duration) *Backend {
	t.Helper()
	server.SetConfig(nil)
	return StartBackendKeepConfig(t, confirmDelay)
}

// StartBackendKeepConfig is StartBackend without resetting the active server
// configuration first, for tests that tune it before wiring the backend.
func StartBackendKeepConfig(t *testing.T, confirmDelay time.Duration) *Backend {
	t.Helper()

	store := booking.NewStore()
	hub := server.NewHub()
	scheduler := server.NewScheduler(store, hub, confirmDelay)
	app := server.NewApp(hub, store, scheduler)

	go hub.Run()

	ts := httptest.NewServer(server.SetupRoutes(app))

	t.Cleanup(func() {
		ts.Close()
		scheduler.Stop()
		_ = hub.Shutdown(2 * time.Second)
		server.SetConfig(nil)
	})

	return &Backend{
		Store:     store,
		Hub:       hub,
		Scheduler: scheduler,
		App:       app,
		Server:    ts,
	}
}

// StartRawServer starts an httptest server around an already-wired App. The
// caller owns hub and scheduler shutdown; only the HTTP server is cleaned up.
func StartRawServer(t *testing.T, app *server.App) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(server.SetupRoutes(app))
	t.Cleanup(ts.Close)
	return ts
}

// Dial opens a booking session against the given http(s) base URL.
func Dial(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/"
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// WSURL returns the ws:// URL of the backend's root endpoint.
func (b *Backend) WSURL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http") + "/"
}

// Connect opens a booking session against the backend and registers cleanup.
func (b *Backend) Connect(t *testing.T) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(b.WSURL(), nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendJSON writes one JSON message on the session.
func SendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}
}

// SendRaw writes a raw text frame on the session.
func SendRaw(t *testing.T, conn *websocket.Conn, data []byte) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Failed to send raw message: %v", err)
	}
}

// ReadMessage reads the next protocol message within the timeout.
func ReadMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return msg
}

// ReadUntilType reads messages until one of the given type arrives, skipping
// others (broadcasts interleave freely with direct replies).
func ReadUntilType(t *testing.T, conn *websocket.Conn, msgType string, timeout time.Duration) map[string]any {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for message of type %q", msgType)
		}
		msg := ReadMessage(t, conn, remaining)
		if msg["type"] == msgType {
			return msg
		}
	}
}

// ExpectWelcome consumes and verifies the fixed welcome sequence: the
// connection greeting followed by a bookings_update snapshot, in that order.
// It returns the snapshot's booking list.
func ExpectWelcome(t *testing.T, conn *websocket.Conn) []any {
	t.Helper()

	greeting := ReadMessage(t, conn, 5*time.Second)
	if greeting["type"] != "connection" {
		t.Fatalf("Expected connection greeting first, got %v", greeting["type"])
	}
	if greeting["status"] != "success" {
		t.Errorf("Expected greeting status success, got %v", greeting["status"])
	}

	snapshot := ReadMessage(t, conn, 5*time.Second)
	if snapshot["type"] != "bookings_update" {
		t.Fatalf("Expected bookings_update after greeting, got %v", snapshot["type"])
	}

	bookings, ok := snapshot["bookings"].([]any)
	if !ok {
		t.Fatalf("bookings_update carries no bookings array: %v", snapshot)
	}
	return bookings
}

// ExpectNoMessage asserts that no message arrives within the timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message, but received one")
	}
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of message: %v", err)
}

// ValidBookingMessage returns a new_booking message with all required fields.
func ValidBookingMessage() map[string]any {
	return map[string]any{
		"type":            "new_booking",
		"restaurant":      "La Piazza",
		"date":            "2026-09-14",
		"time":            "19:30",
		"guests":          4,
		"name":            "Dana Reyes",
		"phone":           "+1 555 0142",
		"specialRequests": "window table",
	}
}

// MakeRequest executes an HTTP request against the backend with a 5-second
// timeout.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}

// AssertStatusCode checks the HTTP response status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks the HTTP response Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}
