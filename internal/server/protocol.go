// Package server: protocol.go defines the typed JSON envelope exchanged with
// booking clients and the encoders for every outbound message kind.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tablecast/tablecast/internal/booking"
)

// Inbound message types.
const (
	msgTypeNewBooking  = "new_booking"
	msgTypeGetBookings = "get_bookings"
)

// Outbound message types.
const (
	msgTypeConnection          = "connection"
	msgTypeBookingsUpdate      = "bookings_update"
	msgTypeBookingsList        = "bookings_list"
	msgTypeBookingConfirmation = "booking_confirmation"
	msgTypeBookingStatusUpdate = "booking_status_update"
	msgTypeError               = "error"
)

// Fixed protocol texts. Clients display these verbatim, so they are part of
// the wire contract.
const (
	greetingText    = "Connected to the booking server"
	parseErrorText  = "Unable to process request"
	unknownTypeText = "Unknown message type"
	rejectionText   = "Not all required fields are filled in"
)

// inboundEnvelope is the minimal shape decoded first to route an inbound
// message; the type-specific payload is decoded in a second pass.
type inboundEnvelope struct {
	Type string `json:"type"`
}

// guestCount tolerates the guest count arriving as a JSON number or a numeric
// string (HTML forms send numbers as strings). Anything non-numeric decodes to
// zero, which the store's required-field validation then rejects.
type guestCount int

func (g *guestCount) UnmarshalJSON(data []byte) error {
	*g = 0

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if n, err := strconv.Atoi(s); err == nil {
		*g = guestCount(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*g = guestCount(int(f))
	}
	return nil
}

// bookingRequest is the payload of a new_booking message.
type bookingRequest struct {
	Restaurant      string     `json:"restaurant"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	Guests          guestCount `json:"guests"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	SpecialRequests string     `json:"specialRequests"`
}

func (r bookingRequest) params() booking.CreateParams {
	return booking.CreateParams{
		Restaurant:      r.Restaurant,
		Date:            r.Date,
		Time:            r.Time,
		Guests:          int(r.Guests),
		Name:            r.Name,
		Phone:           r.Phone,
		SpecialRequests: r.SpecialRequests,
	}
}

type connectionMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type bookingsMessage struct {
	Type     string            `json:"type"`
	Bookings []booking.Booking `json:"bookings"`
}

type confirmationMessage struct {
	Type      string `json:"type"`
	Success   bool   `json:"success"`
	BookingID string `json:"bookingId,omitempty"`
	Message   string `json:"message"`
}

type statusUpdateMessage struct {
	Type      string `json:"type"`
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func encodeGreeting() ([]byte, error) {
	return json.Marshal(connectionMessage{
		Type:    msgTypeConnection,
		Message: greetingText,
		Status:  "success",
	})
}

// encodeBookings serializes a full list snapshot under the given message type
// (bookings_update for pushes, bookings_list for get_bookings replies; the
// two shapes are otherwise identical).
func encodeBookings(msgType string, bookings []booking.Booking) ([]byte, error) {
	if bookings == nil {
		bookings = []booking.Booking{}
	}
	return json.Marshal(bookingsMessage{Type: msgType, Bookings: bookings})
}

func encodeBookingCreated(id string) ([]byte, error) {
	return json.Marshal(confirmationMessage{
		Type:      msgTypeBookingConfirmation,
		Success:   true,
		BookingID: id,
		Message:   fmt.Sprintf("Booking #%s created successfully! Awaiting confirmation from the restaurant.", id),
	})
}

func encodeBookingRejected() ([]byte, error) {
	return json.Marshal(confirmationMessage{
		Type:    msgTypeBookingConfirmation,
		Success: false,
		Message: rejectionText,
	})
}

func encodeStatusUpdate(b booking.Booking) ([]byte, error) {
	return json.Marshal(statusUpdateMessage{
		Type:      msgTypeBookingStatusUpdate,
		BookingID: b.ID,
		Status:    string(b.Status),
		Message:   fmt.Sprintf("The restaurant has confirmed your booking #%s", b.ID),
	})
}

func encodeError(text string) ([]byte, error) {
	return json.Marshal(errorMessage{Type: msgTypeError, Message: text})
}
