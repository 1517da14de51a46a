package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024

	// Client frames above this rate are discarded.
	maxFramesPerSecond = 10
)

// Client is one live connection on a chat room. Chat messages travel
// over the REST endpoint; the socket carries server pushes and typing
// indicators.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	RoomID uint
	Send   chan []byte

	frameCount    int
	lastResetTime time.Time
}

func NewClient(hub *Hub, conn *websocket.Conn, roomID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		RoomID: roomID,
		Send:   make(chan []byte, 64),
	}
}

// clientFrame is what the browser may send over the socket.
type clientFrame struct {
	Type string `json:"type"` // typing_start, typing_stop
}

func (c *Client) allowFrame() bool {
	now := time.Now()
	if now.Sub(c.lastResetTime) >= time.Second {
		c.frameCount = 0
		c.lastResetTime = now
	}
	c.frameCount++
	return c.frameCount <= maxFramesPerSecond
}

// ReadPump consumes frames from the peer until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("Chat socket read error", err, map[string]interface{}{
					"room_id": c.RoomID,
				})
			}
			break
		}

		if !c.allowFrame() {
			logger.Warn("Chat socket rate limit exceeded", map[string]interface{}{
				"room_id": c.RoomID,
			})
			continue
		}

		var frame clientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			logger.Debug("Unparseable chat socket frame", map[string]interface{}{
				"room_id": c.RoomID,
			})
			continue
		}

		// Typing indicators are relayed to the room's other tabs
		if frame.Type == "typing_start" || frame.Type == "typing_stop" {
			c.Hub.SendToRoom(c.RoomID, map[string]interface{}{
				"type": frame.Type,
			})
		}
	}
}

// WritePump forwards queued payloads and keeps the connection alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("Chat socket write error", err, map[string]interface{}{
					"room_id": c.RoomID,
				})
				return
			}

			// Drain what queued up while we were writing
			n := len(c.Send)
			for i := 0; i < n; i++ {
				msg := <-c.Send
				if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					logger.Error("Chat socket write error", err, map[string]interface{}{
						"room_id": c.RoomID,
					})
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
