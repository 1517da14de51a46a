package service

import (
	"errors"
	"time"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrDiscountNotFound  = errors.New("discount code not found")
	ErrDiscountExpired   = errors.New("discount code has expired")
	ErrDiscountExhausted = errors.New("discount code usage limit reached")
	ErrDiscountInactive  = errors.New("discount code is not active")
)

type DiscountService interface {
	Validate(code string, subtotal float64) (*model.DiscountCode, float64, error)
	CreateCode(code *model.DiscountCode) error
	ListCodes() ([]model.DiscountCode, error)
	UpdateCode(code *model.DiscountCode) error
	DeleteCode(id uint) error
}

type discountService struct {
	discountRepo repository.DiscountRepository
}

func NewDiscountService(discountRepo repository.DiscountRepository) DiscountService {
	return &discountService{discountRepo: discountRepo}
}

// Validate checks the code against its status, expiry and usage limit
// and returns the amount it would take off the given subtotal. It does
// NOT consume a use; redemption happens inside the order transaction.
func (s *discountService) Validate(code string, subtotal float64) (*model.DiscountCode, float64, error) {
	logger.Debug("Validating discount code", map[string]interface{}{
		"code": code,
	})

	discount, err := s.discountRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Discount code not found", map[string]interface{}{
				"code": code,
			})
			return nil, 0, ErrDiscountNotFound
		}
		logger.Error("Failed to fetch discount code", err, map[string]interface{}{
			"code": code,
		})
		return nil, 0, err
	}

	if !discount.Active {
		logger.Warn("Discount code is inactive", map[string]interface{}{
			"code": code,
		})
		return nil, 0, ErrDiscountInactive
	}

	if discount.ExpiresAt != nil && discount.ExpiresAt.Before(time.Now()) {
		logger.Warn("Discount code has expired", map[string]interface{}{
			"code":       code,
			"expires_at": discount.ExpiresAt,
		})
		return nil, 0, ErrDiscountExpired
	}

	if discount.UsageLimit > 0 && discount.UsedCount >= discount.UsageLimit {
		logger.Warn("Discount code usage limit reached", map[string]interface{}{
			"code":        code,
			"usage_limit": discount.UsageLimit,
			"used_count":  discount.UsedCount,
		})
		return nil, 0, ErrDiscountExhausted
	}

	amountOff := discount.AmountOff(subtotal)

	logger.Debug("Discount code validated", map[string]interface{}{
		"code":       code,
		"amount_off": amountOff,
	})
	return discount, amountOff, nil
}

func (s *discountService) CreateCode(code *model.DiscountCode) error {
	logger.Info("Creating discount code", map[string]interface{}{
		"code": code.Code,
		"type": code.Type,
	})
	return s.discountRepo.Create(code)
}

func (s *discountService) ListCodes() ([]model.DiscountCode, error) {
	return s.discountRepo.FindAll()
}

func (s *discountService) UpdateCode(code *model.DiscountCode) error {
	logger.Info("Updating discount code", map[string]interface{}{
		"discount_id": code.ID,
		"code":        code.Code,
	})
	return s.discountRepo.Update(code)
}

func (s *discountService) DeleteCode(id uint) error {
	logger.Info("Deleting discount code", map[string]interface{}{
		"discount_id": id,
	})
	return s.discountRepo.Delete(id)
}
