// Package booking implements the in-memory booking store: sequential
// identifier allocation, field validation, and the pending-to-confirmed
// status transition driven by the confirmation scheduler.
package booking

import "time"

// Status represents the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	// StatusCancelled is reserved; no code path currently produces it.
	StatusCancelled Status = "cancelled"
)

// Booking is a single reservation record. The JSON field names are part of
// the wire protocol and must not change.
type Booking struct {
	ID              string     `json:"id"`
	Restaurant      string     `json:"restaurant"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	Guests          int        `json:"guests"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	SpecialRequests string     `json:"specialRequests"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	ConfirmedAt     *time.Time `json:"confirmedAt"`
}
