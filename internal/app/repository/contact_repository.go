package repository

import (
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type ContactRepository interface {
	Create(message *model.ContactMessage) error
	FindAll(limit, offset int) ([]model.ContactMessage, int64, error)
	FindByID(id uint) (*model.ContactMessage, error)
	MarkAnswered(id uint) error
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(message *model.ContactMessage) error {
	logger.Debug("Creating contact message in database", map[string]interface{}{
		"email":   message.Email,
		"subject": message.Subject,
	})

	if err := r.db.Create(message).Error; err != nil {
		logger.Error("Failed to create contact message in database", err, map[string]interface{}{
			"email": message.Email,
		})
		return err
	}
	return nil
}

func (r *contactRepository) FindAll(limit, offset int) ([]model.ContactMessage, int64, error) {
	var total int64
	if err := r.db.Model(&model.ContactMessage{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count contact messages in database", err)
		return nil, 0, err
	}

	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var messages []model.ContactMessage
	if err := query.Find(&messages).Error; err != nil {
		logger.Error("Failed to find contact messages in database", err)
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *contactRepository) FindByID(id uint) (*model.ContactMessage, error) {
	var message model.ContactMessage
	if err := r.db.First(&message, id).Error; err != nil {
		logger.Error("Failed to find contact message by ID in database", err, map[string]interface{}{
			"contact_id": id,
		})
		return nil, err
	}
	return &message, nil
}

func (r *contactRepository) MarkAnswered(id uint) error {
	if err := r.db.Model(&model.ContactMessage{}).Where("id = ?", id).
		Update("answered", true).Error; err != nil {
		logger.Error("Failed to mark contact message as answered", err, map[string]interface{}{
			"contact_id": id,
		})
		return err
	}
	return nil
}
