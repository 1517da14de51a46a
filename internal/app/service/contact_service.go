package service

import (
	"errors"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrContactMessageNotFound = errors.New("contact message not found")

type ContactService interface {
	SubmitMessage(name, email, subject, message string) (*model.ContactMessage, error)
	ListMessages(limit, offset int) ([]model.ContactMessage, int64, error)
	MarkAnswered(id uint) error
}

type contactService struct {
	contactRepo repository.ContactRepository
	notifier    NotificationService
}

func NewContactService(contactRepo repository.ContactRepository, notifier NotificationService) ContactService {
	return &contactService{
		contactRepo: contactRepo,
		notifier:    notifier,
	}
}

// SubmitMessage stores the contact form submission and forwards it to
// the company inbox. The submission succeeds even if mail delivery
// fails.
func (s *contactService) SubmitMessage(name, email, subject, message string) (*model.ContactMessage, error) {
	logger.Info("Contact form submitted", map[string]interface{}{
		"email":   email,
		"subject": subject,
	})

	msg := &model.ContactMessage{
		Name:    name,
		Email:   email,
		Subject: subject,
		Message: message,
	}

	if err := s.contactRepo.Create(msg); err != nil {
		logger.Error("Failed to store contact message", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	go s.notifier.SendContactFormNotification(msg)

	return msg, nil
}

func (s *contactService) ListMessages(limit, offset int) ([]model.ContactMessage, int64, error) {
	return s.contactRepo.FindAll(limit, offset)
}

func (s *contactService) MarkAnswered(id uint) error {
	_, err := s.contactRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContactMessageNotFound
		}
		return err
	}

	if err := s.contactRepo.MarkAnswered(id); err != nil {
		logger.Error("Failed to mark contact message as answered", err, map[string]interface{}{
			"message_id": id,
		})
		return err
	}
	return nil
}
