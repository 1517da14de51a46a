package websocket

import (
	"encoding/json"
	"sync"

	"github.com/verdantleaf/storefront-backend/pkg/logger"
)

// Hub tracks live chat connections by room. Each visitor owns one
// room, but may have several tabs open on it, so a room maps to a
// list of clients.
type Hub struct {
	rooms map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage

	mu sync.RWMutex
}

type roomMessage struct {
	RoomID  uint
	Payload []byte
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *roomMessage, 1024),
	}
}

// Run processes registrations and broadcasts. Call it once in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.rooms[client.RoomID] = append(h.rooms[client.RoomID], client)
			count := len(h.rooms[client.RoomID])
			h.mu.Unlock()
			logger.Info("Chat client connected", map[string]interface{}{
				"room_id":     client.RoomID,
				"connections": count,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.RoomID]; ok {
				remaining := make([]*Client, 0, len(clients))
				removed := false
				for _, c := range clients {
					if c == client {
						removed = true
						continue
					}
					remaining = append(remaining, c)
				}
				if removed {
					if len(remaining) == 0 {
						delete(h.rooms, client.RoomID)
					} else {
						h.rooms[client.RoomID] = remaining
					}
					close(client.Send)
				}
			}
			h.mu.Unlock()
			logger.Info("Chat client disconnected", map[string]interface{}{
				"room_id": client.RoomID,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.rooms[message.RoomID] {
				select {
				case client.Send <- message.Payload:
				default:
					// Send buffer full; drop the connection rather
					// than block the hub
					go h.Unregister(client)
					logger.Warn("Chat client send buffer full, disconnecting", map[string]interface{}{
						"room_id": message.RoomID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

// SendToRoom pushes a payload to every connection on the room. Chat
// delivery is best effort: if the broadcast queue is full the payload
// is dropped, the message itself is already stored.
func (h *Hub) SendToRoom(roomID uint, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal chat payload", err, map[string]interface{}{
			"room_id": roomID,
		})
		return
	}

	select {
	case h.broadcast <- &roomMessage{RoomID: roomID, Payload: data}:
	default:
		logger.Warn("Chat broadcast queue full, payload dropped", map[string]interface{}{
			"room_id": roomID,
		})
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// RoomConnectionCount reports the live connections on a room.
func (h *Hub) RoomConnectionCount(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
