package repository

import (
	"time"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type ChatRepository interface {
	CreateRoom(room *model.ChatRoom) error
	FindRoomByID(id uint) (*model.ChatRoom, error)
	FindRoomByUserID(userID uint) (*model.ChatRoom, error)
	FindRoomBySessionID(sessionID string) (*model.ChatRoom, error)
	CreateMessage(message *model.ChatMessage) error
	FindMessagesByRoom(roomID uint, limit int) ([]model.ChatMessage, error)
	UpdateRoomLastMessage(roomID uint, content string, at time.Time) error
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateRoom(room *model.ChatRoom) error {
	logger.Debug("Creating chat room in database", map[string]interface{}{
		"user_id":    room.UserID,
		"session_id": room.SessionID,
	})

	if err := r.db.Create(room).Error; err != nil {
		logger.Error("Failed to create chat room in database", err, map[string]interface{}{
			"user_id": room.UserID,
		})
		return err
	}
	return nil
}

func (r *chatRepository) FindRoomByID(id uint) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := r.db.First(&room, id).Error; err != nil {
		logger.Error("Failed to find chat room by ID in database", err, map[string]interface{}{
			"room_id": id,
		})
		return nil, err
	}
	return &room, nil
}

func (r *chatRepository) FindRoomByUserID(userID uint) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *chatRepository) FindRoomBySessionID(sessionID string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *chatRepository) CreateMessage(message *model.ChatMessage) error {
	if err := r.db.Create(message).Error; err != nil {
		logger.Error("Failed to create chat message in database", err, map[string]interface{}{
			"room_id": message.ChatRoomID,
			"sender":  message.Sender,
		})
		return err
	}
	return nil
}

func (r *chatRepository) FindMessagesByRoom(roomID uint, limit int) ([]model.ChatMessage, error) {
	query := r.db.Where("chat_room_id = ?", roomID).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []model.ChatMessage
	if err := query.Find(&messages).Error; err != nil {
		logger.Error("Failed to find chat messages in database", err, map[string]interface{}{
			"room_id": roomID,
		})
		return nil, err
	}
	return messages, nil
}

func (r *chatRepository) UpdateRoomLastMessage(roomID uint, content string, at time.Time) error {
	err := r.db.Model(&model.ChatRoom{}).Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"last_message_content": content,
			"last_message_at":      at,
		}).Error
	if err != nil {
		logger.Error("Failed to update chat room last message", err, map[string]interface{}{
			"room_id": roomID,
		})
		return err
	}
	return nil
}
