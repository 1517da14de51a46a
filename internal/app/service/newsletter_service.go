package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"github.com/verdantleaf/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

const (
	welcomeDiscountPercent = 10
	welcomeDiscountTTL     = 90 * 24 * time.Hour
)

var (
	ErrAlreadySubscribed = errors.New("email is already subscribed")
	ErrNotSubscribed     = errors.New("email is not subscribed")
)

type NewsletterService interface {
	Subscribe(email string) (*model.NewsletterSubscriber, error)
	Unsubscribe(email string) error
	ListSubscribers() ([]model.NewsletterSubscriber, error)
}

type newsletterService struct {
	newsletterRepo repository.NewsletterRepository
	discountRepo   repository.DiscountRepository
	notifier       NotificationService
}

func NewNewsletterService(
	newsletterRepo repository.NewsletterRepository,
	discountRepo repository.DiscountRepository,
	notifier NotificationService,
) NewsletterService {
	return &newsletterService{
		newsletterRepo: newsletterRepo,
		discountRepo:   discountRepo,
		notifier:       notifier,
	}
}

// Subscribe adds the email to the newsletter list and mints a
// single-use welcome discount code. A previously unsubscribed email is
// reactivated and keeps its original code; an active subscription
// errors.
func (s *newsletterService) Subscribe(email string) (*model.NewsletterSubscriber, error) {
	logger.Info("Newsletter subscription requested", map[string]interface{}{
		"email": email,
	})

	existing, err := s.newsletterRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing subscriber", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	if existing != nil {
		if existing.UnsubscribedAt == nil {
			logger.Warn("Email is already subscribed", map[string]interface{}{
				"email": email,
			})
			return nil, ErrAlreadySubscribed
		}

		existing.UnsubscribedAt = nil
		if err := s.newsletterRepo.Update(existing); err != nil {
			logger.Error("Failed to resubscribe email", err, map[string]interface{}{
				"email": email,
			})
			return nil, err
		}

		logger.Info("Email resubscribed to newsletter", map[string]interface{}{
			"email": email,
		})
		return existing, nil
	}

	code, err := s.mintWelcomeCode()
	if err != nil {
		logger.Error("Failed to mint welcome discount code", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	subscriber := &model.NewsletterSubscriber{Email: email, DiscountCode: code}
	if err := s.newsletterRepo.Create(subscriber); err != nil {
		logger.Error("Failed to create newsletter subscriber", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	go s.notifier.SendNewsletterWelcome(email, code)

	logger.Info("Email subscribed to newsletter", map[string]interface{}{
		"email": email,
	})
	return subscriber, nil
}

func (s *newsletterService) mintWelcomeCode() (string, error) {
	suffix, err := util.GenerateCode(6)
	if err != nil {
		return "", err
	}

	code := fmt.Sprintf("WELCOME-%s", suffix)
	expires := time.Now().Add(welcomeDiscountTTL)
	discount := &model.DiscountCode{
		Code:       code,
		Type:       model.DiscountPercentage,
		Value:      welcomeDiscountPercent,
		UsageLimit: 1,
		Active:     true,
		ExpiresAt:  &expires,
	}
	if err := s.discountRepo.Create(discount); err != nil {
		return "", err
	}
	return code, nil
}

func (s *newsletterService) Unsubscribe(email string) error {
	subscriber, err := s.newsletterRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotSubscribed
		}
		return err
	}

	if subscriber.UnsubscribedAt != nil {
		return ErrNotSubscribed
	}

	if err := s.newsletterRepo.Unsubscribe(email); err != nil {
		logger.Error("Failed to unsubscribe email", err, map[string]interface{}{
			"email": email,
		})
		return err
	}

	logger.Info("Email unsubscribed from newsletter", map[string]interface{}{
		"email": email,
	})
	return nil
}

func (s *newsletterService) ListSubscribers() ([]model.NewsletterSubscriber, error) {
	return s.newsletterRepo.FindAll()
}
