package mockapi

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event is a websocket message pushed to connected storefronts.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event types emitted by the order handlers.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type branchEvent struct {
	BranchID uuid.UUID
	Event    Event
}

// Hub routes order events to per-branch rooms. Owner connections join
// the uuid.Nil room and receive events for every branch.
type Hub struct {
	rooms map[uuid.UUID]map[*wsClient]bool

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan *branchEvent

	mu sync.RWMutex
}

// NewHub creates a hub. Run must be started as a goroutine.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan *branchEvent, 256),
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.branchID] == nil {
				h.rooms[client.branchID] = make(map[*wsClient]bool)
			}
			h.rooms[client.branchID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.branchID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.branchID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			h.deliver(event.BranchID, message)
			if event.BranchID != uuid.Nil {
				// Owner room sees every branch's events.
				h.deliver(uuid.Nil, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver sends message to every client in the room, dropping clients
// whose send buffers are full. Callers hold the lock.
func (h *Hub) deliver(room uuid.UUID, message []byte) {
	for client := range h.rooms[room] {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.rooms[room], client)
			if len(h.rooms[room]) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

// BroadcastToBranch pushes an event to the branch's room and the owner
// room. Payload must be JSON-marshalable.
func (h *Hub) BroadcastToBranch(branchID uuid.UUID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcast <- &branchEvent{
		BranchID: branchID,
		Event:    Event{Type: eventType, Payload: data},
	}
}
