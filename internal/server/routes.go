// Package server wires HTTP handlers into a gorilla/mux router for the
// booking application.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures and returns the application router. Only the root
// path is routable: it serves the booking page or upgrades to WebSocket.
// Every other path gets a 404 with an empty body.
func SetupRoutes(app *App) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", app.RootHandler)
	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)
	return r
}
