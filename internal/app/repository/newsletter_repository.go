package repository

import (
	"time"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type NewsletterRepository interface {
	Create(subscriber *model.NewsletterSubscriber) error
	FindByEmail(email string) (*model.NewsletterSubscriber, error)
	Update(subscriber *model.NewsletterSubscriber) error
	Unsubscribe(email string) error
	FindAll() ([]model.NewsletterSubscriber, error)
}

type newsletterRepository struct {
	db *gorm.DB
}

func NewNewsletterRepository(db *gorm.DB) NewsletterRepository {
	return &newsletterRepository{db: db}
}

func (r *newsletterRepository) Create(subscriber *model.NewsletterSubscriber) error {
	logger.Debug("Creating newsletter subscriber in database", map[string]interface{}{
		"email": subscriber.Email,
	})

	if err := r.db.Create(subscriber).Error; err != nil {
		logger.Error("Failed to create newsletter subscriber in database", err, map[string]interface{}{
			"email": subscriber.Email,
		})
		return err
	}
	return nil
}

func (r *newsletterRepository) FindByEmail(email string) (*model.NewsletterSubscriber, error) {
	var subscriber model.NewsletterSubscriber
	if err := r.db.Where("email = ?", email).First(&subscriber).Error; err != nil {
		return nil, err
	}
	return &subscriber, nil
}

func (r *newsletterRepository) Update(subscriber *model.NewsletterSubscriber) error {
	if err := r.db.Save(subscriber).Error; err != nil {
		logger.Error("Failed to update newsletter subscriber in database", err, map[string]interface{}{
			"email": subscriber.Email,
		})
		return err
	}
	return nil
}

// FindAll returns active subscribers, newest first.
func (r *newsletterRepository) FindAll() ([]model.NewsletterSubscriber, error) {
	var subscribers []model.NewsletterSubscriber
	err := r.db.Where("unsubscribed_at IS NULL").
		Order("created_at DESC").
		Find(&subscribers).Error
	if err != nil {
		logger.Error("Failed to fetch newsletter subscribers", err)
		return nil, err
	}
	return subscribers, nil
}

func (r *newsletterRepository) Unsubscribe(email string) error {
	logger.Debug("Unsubscribing newsletter subscriber in database", map[string]interface{}{
		"email": email,
	})

	if err := r.db.Model(&model.NewsletterSubscriber{}).
		Where("email = ?", email).
		Update("unsubscribed_at", time.Now()).Error; err != nil {
		logger.Error("Failed to unsubscribe newsletter subscriber in database", err, map[string]interface{}{
			"email": email,
		})
		return err
	}
	return nil
}
