package realtime

import (
	"log"
	"sync"
)

// Hub tracks connected clients and the trip rooms they joined. A client may
// be in at most one room at a time; rejoining moves it.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
	delete(h.clients, c)
}

// Join subscribes a client to a trip room, leaving its previous room first.
func (h *Hub) Join(c *Client, tripID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(c)

	room, ok := h.rooms[tripID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[tripID] = room
	}
	room[c] = struct{}{}
	c.tripID = tripID
}

func (h *Hub) leaveLocked(c *Client) {
	if c.tripID == "" {
		return
	}
	if room, ok := h.rooms[c.tripID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.tripID)
		}
	}
	c.tripID = ""
}

// BroadcastToTrip sends an event to every client in a trip room.
func (h *Hub) BroadcastToTrip(tripID, event string, data any) {
	message, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("realtime: marshal %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[tripID] {
		c.enqueue(message)
	}
}

// BroadcastAll sends an event to every connected client regardless of room.
func (h *Hub) BroadcastAll(event string, data any) {
	message, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("realtime: marshal %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(message)
	}
}

// RoomSize reports how many clients are in a trip room.
func (h *Hub) RoomSize(tripID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tripID])
}
