// Package server exposes the HTTP surface: the root endpoint that either
// upgrades to WebSocket or serves the booking page, and the empty 404 for
// everything else.
package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tablecast/tablecast/internal/booking"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// App bundles the hub, booking store, and confirmation scheduler behind the
// HTTP handlers. Nothing is package-global; tests wire their own instances.
type App struct {
	hub       *Hub
	store     *booking.Store
	scheduler *Scheduler
}

// NewApp creates the handler set around the given collaborators.
func NewApp(hub *Hub, store *booking.Store, scheduler *Scheduler) *App {
	return &App{
		hub:       hub,
		store:     store,
		scheduler: scheduler,
	}
}

// Hub returns the app's session hub, used by callers coordinating shutdown.
func (a *App) Hub() *Hub {
	return a.hub
}

// RootHandler serves the root endpoint. WebSocket upgrade requests become
// booking sessions; a plain GET returns the booking page.
func (a *App) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		a.serveWebSocket(w, r)
		return
	}
	PageHandler(w, r)
}

// serveWebSocket upgrades the connection, registers the session, and queues
// the welcome sequence (greeting, then current booking snapshot).
func (a *App) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, a.hub, a.store, a.scheduler, r.RemoteAddr)

	// Queue the welcome sequence before registration: the messages sit in the
	// send buffer until the hub starts the write pump, so the greeting always
	// precedes the snapshot and no broadcast can slip in front of either.
	client.sendWelcome()
	a.hub.Register(client)
}

// NotFoundHandler answers every unknown path with a bare 404 and empty body.
func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}
