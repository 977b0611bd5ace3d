// Package server manages individual booking sessions, handling read/write
// pumps, inbound message dispatch, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tablecast/tablecast/internal/booking"
)

// Client represents one connected booking session. It owns the WebSocket
// connection, the buffered send channel drained by the write pump, and the
// dependencies needed to dispatch inbound protocol messages.
type Client struct {
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	store          *booking.Store
	scheduler      *Scheduler
	id             string
	addr           string
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a session for the given connection. The send channel is
// buffered so the welcome sequence and broadcasts never block senders.
func NewClient(conn *websocket.Conn, hub *Hub, store *booking.Store, scheduler *Scheduler, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	limiter := newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval)

	return &Client{
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		store:          store,
		scheduler:      scheduler,
		id:             uuid.NewString(),
		addr:           addr,
		closed:         false,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    limiter,
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the session identifier used for log correlation.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing messages.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// enqueue queues a payload for this session only. Sends are fire-and-forget:
// if the buffer is full the payload is dropped and logged, never blocking the
// caller.
func (c *Client) enqueue(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Session %s: send on closed channel recovered", c.id)
		}
	}()

	select {
	case c.send <- payload:
	default:
		log.Printf("Session %s: send buffer full, dropping message", c.id)
	}
}

// reply encodes with the given encoder and queues the result for the
// requesting session.
func (c *Client) reply(payload []byte, err error) {
	if err != nil {
		log.Printf("Session %s: failed to encode reply: %v", c.id, err)
		return
	}
	c.enqueue(payload)
}

// sendWelcome queues the connection greeting followed by the current booking
// snapshot. The order is part of the protocol: clients must see the greeting
// before any data.
func (c *Client) sendWelcome() {
	c.reply(encodeGreeting())
	c.reply(encodeBookings(msgTypeBookingsUpdate, c.store.List()))
}

// dispatch decodes one inbound message and routes it. Decode failures and
// unknown types produce an error reply; the connection always stays open.
func (c *Client) dispatch(raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("Session %s: undecodable message: %v", c.id, err)
		c.reply(encodeError(parseErrorText))
		return
	}

	switch env.Type {
	case msgTypeNewBooking:
		c.handleNewBooking(raw)
	case msgTypeGetBookings:
		c.reply(encodeBookings(msgTypeBookingsList, c.store.List()))
	default:
		log.Printf("Session %s: unknown message type %q", c.id, env.Type)
		c.reply(encodeError(unknownTypeText))
	}
}

// handleNewBooking validates and stores a booking request. On success the
// requester gets a confirmation reply, the delayed restaurant confirmation is
// scheduled, and the updated list is broadcast to every session. On failure
// only the requester hears about it.
func (c *Client) handleNewBooking(raw []byte) {
	var req bookingRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Printf("Session %s: malformed new_booking payload: %v", c.id, err)
		c.reply(encodeError(parseErrorText))
		return
	}

	b, err := c.store.Create(req.params())
	if err != nil {
		if !errors.Is(err, booking.ErrInvalidBooking) {
			log.Printf("Session %s: create failed: %v", c.id, err)
		}
		c.reply(encodeBookingRejected())
		return
	}

	log.Printf("Session %s: created booking %s for %q", c.id, b.ID, b.Restaurant)
	c.reply(encodeBookingCreated(b.ID))

	c.scheduler.Schedule(b.ID)

	if payload, err := encodeBookings(msgTypeBookingsUpdate, c.store.List()); err != nil {
		log.Printf("Failed to encode bookings update: %v", err)
	} else {
		c.hub.Broadcast(payload)
	}
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Error setting initial read deadline for session %s: %v", c.id, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			log.Printf("Error setting read deadline in pong handler for session %s: %v", c.id, err)
		}
		return nil
	})
}

// handleReadError logs an appropriate message for the error type and reports
// whether the read loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		log.Printf("Message from session %s exceeded maximum size of %d bytes", c.id, c.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		log.Printf("Session %s disconnected: %v", c.id, err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		log.Printf("Session %s connection closed: %v", c.id, err)
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		log.Printf("Unexpected WebSocket error from session %s: %v", c.id, err)
		return true
	}

	log.Printf("WebSocket read error from session %s: %v", c.id, err)
	return true
}

// checkRateLimit reports whether the next inbound message may be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for session %s (%d messages per %s); discarding message", c.id, c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in readPump: %v", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		if !c.checkRateLimit() {
			continue
		}

		c.dispatch(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleOutbound(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection closes the WebSocket connection, logging only unexpected
// failures.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection in writePump: %v", err)
		}
	}
}

// handleOutbound writes one protocol message per WebSocket frame. Each
// outbound payload keeps its own message boundary; clients rely on one JSON
// object per frame.
func (c *Client) handleOutbound(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Error setting write deadline for session %s: %v", c.id, err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		log.Printf("Error writing message to session %s: %v", c.id, err)
		return false
	}
	return true
}

// writeCloseMessage sends a close frame after the hub closed the send channel.
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to session %s: %v", c.id, err)
		}
	}
	return false
}

// handlePing sends a ping to keep the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Printf("Error setting write deadline for ping to session %s: %v", c.id, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		log.Printf("Error writing ping message to session %s: %v", c.id, err)
		return false
	}
	return true
}
