package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"carpool/internal/auth"
	"carpool/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64

	sinkTimeout = 5 * time.Second
)

// Client is one authenticated websocket connection.
type Client struct {
	hub  *Hub
	sink EventSink
	conn *websocket.Conn

	mu      sync.Mutex
	send    chan []byte
	dropped bool

	userID string
	role   auth.Role
	tripID string
}

func newClient(hub *Hub, sink EventSink, conn *websocket.Conn, claims *auth.Claims) *Client {
	return &Client{
		hub:    hub,
		sink:   sink,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: claims.UserID,
		role:   claims.Role,
	}
}

// enqueue hands a message to the write pump. A client that cannot keep up
// is dropped rather than allowed to block the broadcaster. The caller holds
// the hub's read lock, so removal happens on a separate goroutine; the
// dropped flag keeps the send channel from being closed twice or written
// after close.
func (c *Client) enqueue(message []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return
	}

	select {
	case c.send <- message:
	default:
		c.dropped = true
		close(c.send)
		go c.hub.unregister(c)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: read from %s: %v", c.userID, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("malformed message")
			continue
		}
		c.dispatch(&env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(env *Envelope) {
	switch env.Event {
	case EventTripJoin:
		var p JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.TripID == "" {
			c.sendError("trip:join requires trip_id")
			return
		}
		c.hub.Join(c, p.TripID)

	case EventDriverLocationUpdate:
		if c.role != auth.RoleDriver {
			c.sendError("location updates are driver only")
			return
		}
		var p DriverLocationPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.TripID == "" {
			c.sendError("malformed location update")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := c.sink.DriverLocation(ctx, c.userID, p.TripID, domain.Point{Lat: p.Lat, Lng: p.Lng})
		cancel()
		if err != nil {
			log.Printf("realtime: driver location %s: %v", c.userID, err)
			return
		}

		c.hub.BroadcastToTrip(p.TripID, EventShareDriverLocation, p)

	case EventTripStatusUpdate:
		if c.role != auth.RoleDriver {
			c.sendError("stop updates are driver only")
			return
		}
		var p StopStatusPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.TripID == "" || p.BookingID == "" {
			c.sendError("malformed stop update")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := c.sink.StopStatus(ctx, p.TripID, p.BookingID, p.WaypointID, domain.StopStatus(p.Status))
		cancel()
		if err != nil {
			log.Printf("realtime: stop update %s: %v", p.BookingID, err)
			c.sendError("stop update failed")
			return
		}

		c.hub.BroadcastToTrip(p.TripID, EventBookingStatusUpdate, BookingEventPayload{
			TripID:    p.TripID,
			BookingID: p.BookingID,
			Status:    p.Status,
		})

		// Riders who have not joined the room yet still learn the trip
		// departed.
		if domain.StopStatus(p.Status) == domain.StopStatusOngoing {
			c.hub.BroadcastAll(EventTripStartedSignal, TripStartedPayload{
				TripID:   p.TripID,
				DriverID: c.userID,
			})
		}

	default:
		c.sendError("unknown event")
	}
}

func (c *Client) sendError(message string) {
	raw, err := marshalEvent(EventError, map[string]string{"message": message})
	if err != nil {
		return
	}
	c.enqueue(raw)
}
