// Command server starts the Tablecast booking coordination service.
//
// Clients connect to the root endpoint: a plain GET serves the booking page,
// a WebSocket upgrade opens a live booking session. Configuration comes from
// the environment (optionally via a .env file); see internal/server/config.go
// for the supported variables.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tablecast/tablecast/internal/booking"
	"github.com/tablecast/tablecast/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Starting Tablecast booking server...")

	// Load .env if present; a missing file is not an error.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	store := booking.NewStore()
	hub := server.NewHub()
	scheduler := server.NewScheduler(store, hub, server.DefaultConfirmationDelay)
	app := server.NewApp(hub, store, scheduler)

	go hub.Run()
	log.Println("Hub started and ready to manage booking sessions")

	router := server.SetupRoutes(app)
	httpServer := server.CreateServer(config.Addr(), router)

	errCh := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case err := <-errCh:
		log.Fatalf("HTTP server failed: %v", err)
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
	scheduler.Stop()

	log.Println("Server stopped")
}
