package integration

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablecast/tablecast/internal/booking"
	"github.com/tablecast/tablecast/internal/server"
	"github.com/tablecast/tablecast/test/testhelpers"
)

// TestGracefulShutdown verifies an idle hub shuts down cleanly.
func TestGracefulShutdown(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, hub.Shutdown(5*time.Second))
}

// TestGracefulShutdownWithClients verifies active sessions are closed during
// hub shutdown.
func TestGracefulShutdownWithClients(t *testing.T) {
	server.SetConfig(nil)
	t.Cleanup(func() { server.SetConfig(nil) })

	store := booking.NewStore()
	hub := server.NewHub()
	scheduler := server.NewScheduler(store, hub, time.Minute)
	app := server.NewApp(hub, store, scheduler)
	go hub.Run()

	backendServer := testhelpers.StartRawServer(t, app)

	const numClients = 5
	conns := make([]*websocket.Conn, 0, numClients)
	for i := 0; i < numClients; i++ {
		conn := testhelpers.Dial(t, backendServer.URL)
		testhelpers.ExpectWelcome(t, conn)
		conns = append(conns, conn)
	}

	require.Eventually(t, func() bool {
		return hub.ClientCount() == numClients
	}, 5*time.Second, 20*time.Millisecond)

	scheduler.Stop()
	require.NoError(t, hub.Shutdown(5*time.Second))

	// Every client should observe its connection closing.
	for i, conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		assert.NotPanics(t, func() { _ = conn.Close() }, "client %d", i)
	}
}

// TestShutdownCancelsPendingConfirmations verifies scheduler Stop prevents
// confirmations from firing after shutdown.
func TestShutdownCancelsPendingConfirmations(t *testing.T) {
	backend := testhelpers.StartBackend(t, 200*time.Millisecond)

	conn := backend.Connect(t)
	testhelpers.ExpectWelcome(t, conn)
	testhelpers.SendJSON(t, conn, testhelpers.ValidBookingMessage())
	testhelpers.ReadUntilType(t, conn, "booking_confirmation", 5*time.Second)

	backend.Scheduler.Stop()
	time.Sleep(400 * time.Millisecond)

	list := backend.Store.List()
	require.Len(t, list, 1)
	assert.Equal(t, booking.StatusPending, list[0].Status, "stopped scheduler must not confirm")
}
