// Package integration contains integration tests for the booking server.
//
// These tests run the complete system (store, hub, scheduler, HTTP routes)
// behind a real HTTP server and drive it over real WebSocket connections,
// verifying end-to-end protocol behavior.
package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablecast/tablecast/internal/booking"
	"github.com/tablecast/tablecast/test/testhelpers"
)

const confirmDelay = 100 * time.Millisecond

// TestWelcomeSequence verifies a new session receives the greeting and then
// the current (empty) booking snapshot, in that order.
func TestWelcomeSequence(t *testing.T) {
	backend := testhelpers.StartBackend(t, confirmDelay)
	conn := backend.Connect(t)

	bookings := testhelpers.ExpectWelcome(t, conn)
	assert.Empty(t, bookings, "fresh server has no bookings")
}

// TestNewBookingSuccess verifies the full success path: confirmation reply to
// the requester, list broadcast, and the delayed restaurant confirmation.
func TestNewBookingSuccess(t *testing.T) {
	backend := testhelpers.StartBackend(t, confirmDelay)
	conn := backend.Connect(t)
	testhelpers.ExpectWelcome(t, conn)

	testhelpers.SendJSON(t, conn, testhelpers.ValidBookingMessage())

	reply := testhelpers.ReadUntilType(t, conn, "booking_confirmation", 5*time.Second)
	assert.Equal(t, true, reply["success"])
	assert.Equal(t, "BK1", reply["bookingId"])
	assert.Contains(t, reply["message"], "BK1")

	update := testhelpers.ReadUntilType(t, conn, "bookings_update", 5*time.Second)
	records := update["bookings"].([]any)
	require.Len(t, records, 1)
	first := records[0].(map[string]any)
	assert.Equal(t, "BK1", first["id"])
	assert.Equal(t, "pending", first["status"])
	assert.Nil(t, first["confirmedAt"])

	status := testhelpers.ReadUntilType(t, conn, "booking_status_update", 5*time.Second)
	assert.Equal(t, "BK1", status["bookingId"])
	assert.Equal(t, "confirmed", status["status"])

	list := backend.Store.List()
	require.Len(t, list, 1)
	assert.Equal(t, booking.StatusConfirmed, list[0].Status)
	require.NotNil(t, list[0].ConfirmedAt)
}

// TestNewBookingValidationFailure verifies a request missing a required field
// yields a failure reply to the requester only and leaves the store unchanged.
func TestNewBookingValidationFailure(t *testing.T) {
	required := []string{"restaurant", "date", "time", "guests", "name", "phone"}

	for _, field := range required {
		t.Run("missing "+field, func(t *testing.T) {
			backend := testhelpers.StartBackend(t, confirmDelay)
			requester := backend.Connect(t)
			observer := backend.Connect(t)
			testhelpers.ExpectWelcome(t, requester)
			testhelpers.ExpectWelcome(t, observer)

			msg := testhelpers.ValidBookingMessage()
			delete(msg, field)
			testhelpers.SendJSON(t, requester, msg)

			reply := testhelpers.ReadUntilType(t, requester, "booking_confirmation", 5*time.Second)
			assert.Equal(t, false, reply["success"])
			_, hasID := reply["bookingId"]
			assert.False(t, hasID)

			// No broadcast on failure; the observer stays silent.
			testhelpers.ExpectNoMessage(t, observer, 200*time.Millisecond)
			assert.Zero(t, backend.Store.Len())
		})
	}
}

// TestGetBookingsReturnsCurrentList verifies get_bookings replies to the
// requester only, with the full list in creation order.
func TestGetBookingsReturnsCurrentList(t *testing.T) {
	backend := testhelpers.StartBackend(t, time.Minute)
	conn := backend.Connect(t)
	testhelpers.ExpectWelcome(t, conn)

	testhelpers.SendJSON(t, conn, map[string]any{"type": "get_bookings"})
	empty := testhelpers.ReadUntilType(t, conn, "bookings_list", 5*time.Second)
	assert.Empty(t, empty["bookings"])

	for i := 0; i < 3; i++ {
		testhelpers.SendJSON(t, conn, testhelpers.ValidBookingMessage())
		testhelpers.ReadUntilType(t, conn, "booking_confirmation", 5*time.Second)
	}

	testhelpers.SendJSON(t, conn, map[string]any{"type": "get_bookings"})
	reply := testhelpers.ReadUntilType(t, conn, "bookings_list", 5*time.Second)

	records := reply["bookings"].([]any)
	require.Len(t, records, 3)
	for i, rec := range records {
		entry := rec.(map[string]any)
		assert.Equal(t, []string{"BK1", "BK2", "BK3"}[i], entry["id"])
	}
}

// TestMalformedMessageGetsErrorReply verifies undecodable payloads produce
// exactly one error reply and the connection survives.
func TestMalformedMessageGetsErrorReply(t *testing.T) {
	backend := testhelpers.StartBackend(t, confirmDelay)
	conn := backend.Connect(t)
	testhelpers.ExpectWelcome(t, conn)

	testhelpers.SendRaw(t, conn, []byte(`{not valid json`))

	reply := testhelpers.ReadMessage(t, conn, 5*time.Second)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "Unable to process request", reply["message"])

	testhelpers.ExpectNoMessage(t, conn, 200*time.Millisecond)
	assert.Zero(t, backend.Store.Len())

	// Connection still works after the error.
	testhelpers.SendJSON(t, conn, map[string]any{"type": "get_bookings"})
	list := testhelpers.ReadUntilType(t, conn, "bookings_list", 5*time.Second)
	assert.Empty(t, list["bookings"])
}

// TestUnknownMessageTypeGetsErrorReply verifies unrecognized types produce an
// error reply without touching the store.
func TestUnknownMessageTypeGetsErrorReply(t *testing.T) {
	backend := testhelpers.StartBackend(t, confirmDelay)
	conn := backend.Connect(t)
	testhelpers.ExpectWelcome(t, conn)

	testhelpers.SendJSON(t, conn, map[string]any{"type": "cancel_booking", "bookingId": "BK1"})

	reply := testhelpers.ReadMessage(t, conn, 5*time.Second)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "Unknown message type", reply["message"])
	assert.Zero(t, backend.Store.Len())
}

// TestNonNumericGuestsRejected pins the guest-count policy: a non-numeric
// guest count is a validation failure, not a protocol error.
func TestNonNumericGuestsRejected(t *testing.T) {
	backend := testhelpers.StartBackend(t, confirmDelay)
	conn := backend.Connect(t)
	testhelpers.ExpectWelcome(t, conn)

	msg := testhelpers.ValidBookingMessage()
	msg["guests"] = "a few of us"
	testhelpers.SendJSON(t, conn, msg)

	reply := testhelpers.ReadUntilType(t, conn, "booking_confirmation", 5*time.Second)
	assert.Equal(t, false, reply["success"])
	assert.Zero(t, backend.Store.Len())
}

// TestStringGuestsAccepted verifies numeric strings (what HTML forms send)
// are accepted.
func TestStringGuestsAccepted(t *testing.T) {
	backend := testhelpers.StartBackend(t, time.Minute)
	conn := backend.Connect(t)
	testhelpers.ExpectWelcome(t, conn)

	msg := testhelpers.ValidBookingMessage()
	msg["guests"] = "6"
	testhelpers.SendJSON(t, conn, msg)

	reply := testhelpers.ReadUntilType(t, conn, "booking_confirmation", 5*time.Second)
	assert.Equal(t, true, reply["success"])

	list := backend.Store.List()
	require.Len(t, list, 1)
	assert.Equal(t, 6, list[0].Guests)
}

// TestConfirmationFiresAfterRequesterDisconnects verifies the deferred
// confirmation is independent of the requesting session's lifetime.
func TestConfirmationFiresAfterRequesterDisconnects(t *testing.T) {
	backend := testhelpers.StartBackend(t, 300*time.Millisecond)

	observer := backend.Connect(t)
	testhelpers.ExpectWelcome(t, observer)

	requester := backend.Connect(t)
	testhelpers.ExpectWelcome(t, requester)
	testhelpers.SendJSON(t, requester, testhelpers.ValidBookingMessage())
	testhelpers.ReadUntilType(t, requester, "booking_confirmation", 5*time.Second)
	require.NoError(t, requester.Close())

	status := testhelpers.ReadUntilType(t, observer, "booking_status_update", 5*time.Second)
	assert.Equal(t, "BK1", status["bookingId"])
	assert.Equal(t, "confirmed", status["status"])
}

// TestLateJoinerReceivesConfirmation verifies a session that connects after
// the booking was created still receives the status broadcast, and that its
// welcome snapshot already contains the pending booking.
func TestLateJoinerReceivesConfirmation(t *testing.T) {
	backend := testhelpers.StartBackend(t, 500*time.Millisecond)

	requester := backend.Connect(t)
	testhelpers.ExpectWelcome(t, requester)
	testhelpers.SendJSON(t, requester, testhelpers.ValidBookingMessage())
	testhelpers.ReadUntilType(t, requester, "booking_confirmation", 5*time.Second)

	late := backend.Connect(t)
	bookings := testhelpers.ExpectWelcome(t, late)
	require.Len(t, bookings, 1)
	assert.Equal(t, "pending", bookings[0].(map[string]any)["status"])

	status := testhelpers.ReadUntilType(t, late, "booking_status_update", 5*time.Second)
	assert.Equal(t, "BK1", status["bookingId"])
}

// TestTwoClientScenario runs the full scenario: A connects and books, B (a
// prior session) sees the pending record, and both receive the confirmation.
func TestTwoClientScenario(t *testing.T) {
	backend := testhelpers.StartBackend(t, 300*time.Millisecond)

	clientB := backend.Connect(t)
	testhelpers.ExpectWelcome(t, clientB)

	clientA := backend.Connect(t)
	bookings := testhelpers.ExpectWelcome(t, clientA)
	assert.Empty(t, bookings)

	testhelpers.SendJSON(t, clientA, testhelpers.ValidBookingMessage())

	reply := testhelpers.ReadUntilType(t, clientA, "booking_confirmation", 5*time.Second)
	assert.Equal(t, true, reply["success"])
	assert.Equal(t, "BK1", reply["bookingId"])

	update := testhelpers.ReadUntilType(t, clientB, "bookings_update", 5*time.Second)
	records := update["bookings"].([]any)
	require.Len(t, records, 1)
	pending := records[0].(map[string]any)
	assert.Equal(t, "BK1", pending["id"])
	assert.Equal(t, "pending", pending["status"])

	statusA := testhelpers.ReadUntilType(t, clientA, "booking_status_update", 5*time.Second)
	statusB := testhelpers.ReadUntilType(t, clientB, "booking_status_update", 5*time.Second)
	for _, status := range []map[string]any{statusA, statusB} {
		assert.Equal(t, "BK1", status["bookingId"])
		assert.Equal(t, "confirmed", status["status"])
	}
}
