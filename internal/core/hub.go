package core

import (
	"sync"

	"github.com/heartlinkhq/heartlink-server/internal/presence"
)

// Hub is the connection registry and delivery fan-out. It maps logical user
// ids to their live connections and pushes events to them. Pushes are
// fire-and-forget: a user with no connections is a silent no-op, and a slow
// connection drops events rather than stalling the caller.
//
// Presence broadcasts are global, not scoped to a user's contacts; that
// mirrors the deployed behavior of the platform this serves.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client              // connID -> client
	byUser   map[string]map[*Client]struct{} // userID -> clients
	rooms    map[string]map[*Client]struct{}
	presence *presence.Tracker
}

// NewHub creates a hub backed by the given presence tracker.
func NewHub(tracker *presence.Tracker) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		byUser:   make(map[string]map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		presence: tracker,
	}
}

// Register adds a new, not yet identified connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister removes a connection. If it was the owning user's last
// connection, a presence-offline event is broadcast.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	if c.UserID != "" {
		if set := h.byUser[c.UserID]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.byUser, c.UserID)
			}
		}
	}
	for room := range c.Rooms {
		h.leaveRoomLocked(c, room)
	}
	h.mu.Unlock()

	userID, wasLast := h.presence.Disconnect(c.ID)
	if userID != "" && wasLast {
		h.Broadcast(&Event{Kind: EventPresence, User: userID, Online: false})
	}
}

// Identify associates a connection with a logical user and broadcasts a
// presence-online event.
func (h *Hub) Identify(c *Client, userID string) {
	h.mu.Lock()
	if c.UserID != "" && c.UserID != userID {
		if set := h.byUser[c.UserID]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.byUser, c.UserID)
			}
		}
	}
	c.UserID = userID
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Client]struct{})
	}
	h.byUser[userID][c] = struct{}{}
	h.mu.Unlock()

	h.presence.Identify(c.ID, userID)
	h.Broadcast(&Event{Kind: EventPresence, User: userID, Online: true})
}

// PushToUser delivers an event to every connection identified as userID.
// No connections means the push is dropped.
func (h *Hub) PushToUser(userID string, event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		c.send(event)
	}
}

// Broadcast delivers an event to every connection, identified or not.
func (h *Hub) Broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.send(event)
	}
}

// JoinRoom subscribes a connection to a named room.
func (h *Hub) JoinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.Rooms[room] = struct{}{}
}

// LeaveRoom unsubscribes a connection from a named room.
func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(c, room)
}

func (h *Hub) leaveRoomLocked(c *Client, room string) {
	if set := h.rooms[room]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.Rooms, room)
}
