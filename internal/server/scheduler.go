// Package server schedules the delayed restaurant confirmation for each
// booking and fans the resulting status update out to every open session.
package server

import (
	"log"
	"sync"
	"time"

	"github.com/tablecast/tablecast/internal/booking"
)

// DefaultConfirmationDelay is how long after creation the simulated
// restaurant confirmation fires.
const DefaultConfirmationDelay = 3 * time.Second

// Broadcaster delivers a payload to every open session. *Hub satisfies it;
// tests substitute their own.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Scheduler arms a one-shot timer per created booking. Timers are keyed by
// booking id and cancellable in principle, though the booking flow never
// cancels one: a scheduled confirmation always fires, regardless of whether
// the requesting session is still connected.
type Scheduler struct {
	mu          sync.Mutex
	delay       time.Duration
	store       *booking.Store
	broadcaster Broadcaster
	timers      map[string]*time.Timer
	stopped     bool
}

// NewScheduler creates a scheduler that confirms bookings after the given
// delay. A non-positive delay falls back to DefaultConfirmationDelay.
func NewScheduler(store *booking.Store, broadcaster Broadcaster, delay time.Duration) *Scheduler {
	if delay <= 0 {
		delay = DefaultConfirmationDelay
	}
	return &Scheduler{
		delay:       delay,
		store:       store,
		broadcaster: broadcaster,
		timers:      make(map[string]*time.Timer),
	}
}

// Schedule arms the confirmation timer for a booking. Scheduling the same id
// twice is a no-op; each booking gets exactly one confirmation.
func (s *Scheduler) Schedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if _, exists := s.timers[id]; exists {
		return
	}

	s.timers[id] = time.AfterFunc(s.delay, func() {
		s.fire(id)
	})
}

// Cancel stops the pending confirmation for a booking, reporting whether a
// timer was armed. No caller in the booking flow uses this today; it exists
// for a future delete path and for shutdown.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	return timer.Stop()
}

// Pending reports the number of armed confirmation timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels all pending timers. Used during process shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// fire marks the booking confirmed and broadcasts the status update to all
// currently-open sessions, including ones that connected after the booking
// was created.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	stopped := s.stopped
	s.mu.Unlock()

	if stopped {
		return
	}

	b, ok := s.store.Confirm(id)
	if !ok {
		log.Printf("Confirmation fired for unknown booking %s", id)
		return
	}

	log.Printf("Booking %s confirmed by the restaurant", b.ID)

	payload, err := encodeStatusUpdate(b)
	if err != nil {
		log.Printf("Failed to encode status update for %s: %v", b.ID, err)
		return
	}
	s.broadcaster.Broadcast(payload)
}
