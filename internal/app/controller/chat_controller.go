package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	apperrors "github.com/verdantleaf/storefront-backend/internal/errors"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
	"github.com/verdantleaf/storefront-backend/internal/websocket"
)

// ChatController exposes the shopping assistant chat. Guests get a
// room bound to their anonymous id, users to their account.
type ChatController struct {
	chatService service.ChatService
	hub         *websocket.Hub
	upgrader    gorillaws.Upgrader
}

func NewChatController(chatService service.ChatService, hub *websocket.Hub) *ChatController {
	return &ChatController{
		chatService: chatService,
		hub:         hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS layer in front
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type SendChatMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// GetRoom returns the visitor's chat room, creating it on first use
// GET /api/v1/chat/room
func (ctrl *ChatController) GetRoom(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	room, err := ctrl.chatService.GetOrCreateRoom(middleware.GetIdentity(c))
	if err != nil {
		log.Error("Failed to open chat room", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "chat room")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room": room,
	})
}

// GetMessages returns the room history
// GET /api/v1/chat/rooms/:id/messages
func (ctrl *ChatController) GetMessages(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid room id")
		return
	}

	messages, err := ctrl.chatService.GetRoomMessages(middleware.GetIdentity(c), uint(roomID))
	if err != nil {
		if errors.Is(err, service.ErrChatRoomNotFound) {
			apperrors.NotFound(c, apperrors.ChatRoomNotFound, "Chat room not found")
			return
		}
		log.Error("Failed to load chat history", err, map[string]interface{}{
			"room_id": roomID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "chat history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
	})
}

// SendMessage stores the visitor's message and returns it along with
// the assistant's reply
// POST /api/v1/chat/rooms/:id/messages
func (ctrl *ChatController) SendMessage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid room id")
		return
	}

	var req SendChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Message content is required")
		return
	}

	customerMsg, assistantMsg, err := ctrl.chatService.SendMessage(c.Request.Context(), middleware.GetIdentity(c), uint(roomID), req.Content)
	if err != nil {
		if errors.Is(err, service.ErrChatRoomNotFound) {
			apperrors.NotFound(c, apperrors.ChatRoomNotFound, "Chat room not found")
			return
		}
		log.Error("Failed to send chat message", err, map[string]interface{}{
			"room_id": roomID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "chat message")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": customerMsg,
		"reply":   assistantMsg,
	})
}

// Connect upgrades to a WebSocket delivering live room events
// GET /api/v1/chat/ws
func (ctrl *ChatController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	room, err := ctrl.chatService.GetOrCreateRoom(middleware.GetIdentity(c))
	if err != nil {
		log.Error("Failed to open chat room for socket", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "chat room")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := websocket.NewClient(ctrl.hub, conn, room.ID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
