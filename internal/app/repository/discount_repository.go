package repository

import (
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type DiscountRepository interface {
	Create(code *model.DiscountCode) error
	FindByCode(code string) (*model.DiscountCode, error)
	FindAll() ([]model.DiscountCode, error)
	Redeem(tx *gorm.DB, id uint) (int64, error)
	Update(code *model.DiscountCode) error
	Delete(id uint) error
}

type discountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

func (r *discountRepository) Create(code *model.DiscountCode) error {
	logger.Debug("Creating discount code in database", map[string]interface{}{
		"code": code.Code,
		"type": code.Type,
	})

	if err := r.db.Create(code).Error; err != nil {
		logger.Error("Failed to create discount code in database", err, map[string]interface{}{
			"code": code.Code,
		})
		return err
	}
	return nil
}

func (r *discountRepository) FindByCode(code string) (*model.DiscountCode, error) {
	var discount model.DiscountCode
	if err := r.db.Where("code = ?", code).First(&discount).Error; err != nil {
		logger.Debug("Discount code not found in database", map[string]interface{}{
			"code": code,
		})
		return nil, err
	}
	return &discount, nil
}

func (r *discountRepository) FindAll() ([]model.DiscountCode, error) {
	var codes []model.DiscountCode
	if err := r.db.Order("created_at DESC").Find(&codes).Error; err != nil {
		logger.Error("Failed to find discount codes in database", err)
		return nil, err
	}
	return codes, nil
}

// Redeem increments the usage counter with a guarded single-statement
// update. Zero affected rows means the limit was already reached by a
// concurrent checkout. Accepts an open transaction; pass nil to use the
// repository's own handle.
func (r *discountRepository) Redeem(tx *gorm.DB, id uint) (int64, error) {
	if tx == nil {
		tx = r.db
	}

	result := tx.Model(&model.DiscountCode{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", id).
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		logger.Error("Failed to redeem discount code in database", result.Error, map[string]interface{}{
			"discount_id": id,
		})
		return 0, result.Error
	}

	logger.Debug("Discount code redeemed in database", map[string]interface{}{
		"discount_id": id,
		"rows":        result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *discountRepository) Update(code *model.DiscountCode) error {
	logger.Debug("Updating discount code in database", map[string]interface{}{
		"discount_id": code.ID,
		"code":        code.Code,
	})

	if err := r.db.Save(code).Error; err != nil {
		logger.Error("Failed to update discount code in database", err, map[string]interface{}{
			"discount_id": code.ID,
		})
		return err
	}
	return nil
}

func (r *discountRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.DiscountCode{}, id).Error; err != nil {
		logger.Error("Failed to delete discount code from database", err, map[string]interface{}{
			"discount_id": id,
		})
		return err
	}
	return nil
}
