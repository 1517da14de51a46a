package service

import (
	"context"
	"errors"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/internal/metrics"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrChatRoomNotFound = errors.New("chat room not found")

// historyWindow bounds how much of the conversation is replayed to the
// assistant on each turn.
const historyWindow = 20

const assistantFallbackReply = "Sorry, I can't answer right now. Please try again in a moment " +
	"or email hello@verdantleaf.example and we'll get back to you."

// RoomBroadcaster pushes chat events to connected websocket clients.
// Delivery is best effort.
type RoomBroadcaster interface {
	SendToRoom(roomID uint, payload interface{})
}

type ChatService interface {
	GetOrCreateRoom(identity Identity) (*model.ChatRoom, error)
	GetRoomMessages(identity Identity, roomID uint) ([]model.ChatMessage, error)
	SendMessage(ctx context.Context, identity Identity, roomID uint, content string) (*model.ChatMessage, *model.ChatMessage, error)
}

type chatService struct {
	chatRepo  repository.ChatRepository
	assistant AssistantService
	hub       RoomBroadcaster
}

func NewChatService(chatRepo repository.ChatRepository, assistant AssistantService, hub RoomBroadcaster) ChatService {
	return &chatService{
		chatRepo:  chatRepo,
		assistant: assistant,
		hub:       hub,
	}
}

func (s *chatService) findRoom(identity Identity) (*model.ChatRoom, error) {
	if identity.IsUser() {
		return s.chatRepo.FindRoomByUserID(*identity.UserID)
	}
	return s.chatRepo.FindRoomBySessionID(identity.SessionID)
}

// GetOrCreateRoom returns the owner's chat room, creating it on first
// use.
func (s *chatService) GetOrCreateRoom(identity Identity) (*model.ChatRoom, error) {
	room, err := s.findRoom(identity)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room = &model.ChatRoom{}
	if identity.IsUser() {
		room.UserID = identity.UserID
	} else {
		sid := identity.SessionID
		room.SessionID = &sid
	}

	if err := s.chatRepo.CreateRoom(room); err != nil {
		logger.Error("Failed to create chat room", err, map[string]interface{}{
			"user_id": identity.UserID,
		})
		return nil, err
	}

	logger.Info("Chat room created", map[string]interface{}{
		"room_id": room.ID,
		"user_id": identity.UserID,
	})
	return room, nil
}

// ownedRoom loads the room and verifies the caller owns it. A room
// owned by someone else reads as not found.
func (s *chatService) ownedRoom(identity Identity, roomID uint) (*model.ChatRoom, error) {
	room, err := s.chatRepo.FindRoomByID(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatRoomNotFound
		}
		return nil, err
	}

	if identity.IsUser() {
		if room.UserID == nil || *room.UserID != *identity.UserID {
			return nil, ErrChatRoomNotFound
		}
	} else {
		if room.SessionID == nil || *room.SessionID != identity.SessionID {
			return nil, ErrChatRoomNotFound
		}
	}
	return room, nil
}

func (s *chatService) GetRoomMessages(identity Identity, roomID uint) ([]model.ChatMessage, error) {
	if _, err := s.ownedRoom(identity, roomID); err != nil {
		return nil, err
	}
	return s.chatRepo.FindMessagesByRoom(roomID, 0)
}

// SendMessage stores the customer's message, asks the assistant for a
// reply and stores that too. Both messages are returned and broadcast
// to the room. An assistant failure still records the customer message
// and answers with a fallback.
func (s *chatService) SendMessage(ctx context.Context, identity Identity, roomID uint, content string) (*model.ChatMessage, *model.ChatMessage, error) {
	if _, err := s.ownedRoom(identity, roomID); err != nil {
		return nil, nil, err
	}

	history, err := s.chatRepo.FindMessagesByRoom(roomID, historyWindow)
	if err != nil {
		return nil, nil, err
	}

	customerMsg := &model.ChatMessage{
		ChatRoomID: roomID,
		Sender:     model.SenderCustomer,
		Content:    content,
	}
	if err := s.chatRepo.CreateMessage(customerMsg); err != nil {
		return nil, nil, err
	}
	s.broadcast(roomID, customerMsg)

	replyText, err := s.assistant.Reply(ctx, history, content)
	if err != nil {
		logger.Warn("Assistant reply failed, using fallback", map[string]interface{}{
			"room_id": roomID,
			"error":   err.Error(),
		})
		metrics.AssistantRepliesTotal.WithLabelValues("fallback").Inc()
		replyText = assistantFallbackReply
	} else {
		metrics.AssistantRepliesTotal.WithLabelValues("ok").Inc()
	}

	assistantMsg := &model.ChatMessage{
		ChatRoomID: roomID,
		Sender:     model.SenderAssistant,
		Content:    replyText,
	}
	if err := s.chatRepo.CreateMessage(assistantMsg); err != nil {
		return nil, nil, err
	}

	if err := s.chatRepo.UpdateRoomLastMessage(roomID, replyText, assistantMsg.CreatedAt); err != nil {
		logger.Error("Failed to update chat room last message", err, map[string]interface{}{
			"room_id": roomID,
		})
	}

	s.broadcast(roomID, assistantMsg)
	return customerMsg, assistantMsg, nil
}

func (s *chatService) broadcast(roomID uint, msg *model.ChatMessage) {
	if s.hub == nil {
		return
	}
	s.hub.SendToRoom(roomID, map[string]interface{}{
		"type":    "new_message",
		"message": msg,
	})
}
