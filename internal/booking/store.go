package booking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidBooking wraps every validation failure returned by Create so
// callers can distinguish bad input from anything else without inspecting
// individual field errors.
var ErrInvalidBooking = errors.New("invalid booking request")

// CreateParams carries the client-supplied fields for a new booking.
// Guests uses the validator's zero-value semantics: a missing, zero, or
// non-numeric guest count all arrive here as 0 and fail the required rule.
type CreateParams struct {
	Restaurant      string `validate:"required"`
	Date            string `validate:"required"`
	Time            string `validate:"required"`
	Guests          int    `validate:"required"`
	Name            string `validate:"required"`
	Phone           string `validate:"required"`
	SpecialRequests string
}

// Store is the in-memory booking collection shared by all sessions.
// Identifiers are sequential (BK1, BK2, ...) and never reused; the list
// preserves insertion order because snapshots are broadcast wholesale.
type Store struct {
	mu       sync.RWMutex
	seq      int
	bookings []*Booking
	validate *validator.Validate
}

// NewStore creates an empty booking store.
func NewStore() *Store {
	return &Store{
		validate: validator.New(),
	}
}

// Create validates the request, allocates the next identifier, and appends a
// pending booking. The returned error wraps ErrInvalidBooking when any
// required field is missing or empty.
func (s *Store) Create(params CreateParams) (Booking, error) {
	if err := s.validate.Struct(params); err != nil {
		return Booking{}, fmt.Errorf("%w: %v", ErrInvalidBooking, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	b := &Booking{
		ID:              fmt.Sprintf("BK%d", s.seq),
		Restaurant:      params.Restaurant,
		Date:            params.Date,
		Time:            params.Time,
		Guests:          params.Guests,
		Name:            params.Name,
		Phone:           params.Phone,
		SpecialRequests: params.SpecialRequests,
		Status:          StatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	s.bookings = append(s.bookings, b)

	return *b, nil
}

// Confirm transitions a pending booking to confirmed and stamps the
// confirmation time. It reports false when no booking has the given id.
// Confirming an already-confirmed booking is a no-op that still succeeds.
func (s *Store) Confirm(id string) (Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bookings {
		if b.ID != id {
			continue
		}
		if b.Status == StatusPending {
			now := time.Now().UTC()
			b.Status = StatusConfirmed
			b.ConfirmedAt = &now
		}
		return *b, true
	}
	return Booking{}, false
}

// List returns a snapshot of all bookings in creation order. The slice and
// its elements are copies; mutating them does not affect the store.
func (s *Store) List() []Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Booking, len(s.bookings))
	for i, b := range s.bookings {
		out[i] = *b
	}
	return out
}

// Len returns the number of bookings in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}
