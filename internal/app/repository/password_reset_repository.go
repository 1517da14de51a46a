package repository

import (
	"time"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type PasswordResetRepository interface {
	Create(reset *model.PasswordReset) error
	FindLatestActiveByEmail(email string) (*model.PasswordReset, error)
	FindLatestByEmail(email string) (*model.PasswordReset, error)
	MarkUsed(id uint) error
	InvalidateByEmail(email string) error
	DeleteExpired(before time.Time) (int64, error)
}

type passwordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(reset *model.PasswordReset) error {
	logger.Debug("Creating password reset in database", map[string]interface{}{
		"user_id": reset.UserID,
		"email":   reset.Email,
	})

	if err := r.db.Create(reset).Error; err != nil {
		logger.Error("Failed to create password reset in database", err, map[string]interface{}{
			"email": reset.Email,
		})
		return err
	}
	return nil
}

// FindLatestActiveByEmail returns the most recent unused reset row for
// the email. Expiry is the caller's concern so it can distinguish an
// expired credential from a missing one.
func (r *passwordResetRepository) FindLatestActiveByEmail(email string) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	err := r.db.Where("email = ? AND used = ?", email, false).
		Order("created_at DESC").
		First(&reset).Error
	if err != nil {
		logger.Debug("No active password reset found", map[string]interface{}{
			"email": email,
		})
		return nil, err
	}
	return &reset, nil
}

// FindLatestByEmail returns the most recent reset row for the email,
// used or not.
func (r *passwordResetRepository) FindLatestByEmail(email string) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	err := r.db.Where("email = ?", email).
		Order("created_at DESC").
		First(&reset).Error
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *passwordResetRepository) MarkUsed(id uint) error {
	if err := r.db.Model(&model.PasswordReset{}).Where("id = ?", id).
		Update("used", true).Error; err != nil {
		logger.Error("Failed to mark password reset as used", err, map[string]interface{}{
			"reset_id": id,
		})
		return err
	}
	return nil
}

// InvalidateByEmail marks all pending resets for the email as used so
// only the newest issued temporary password works.
func (r *passwordResetRepository) InvalidateByEmail(email string) error {
	if err := r.db.Model(&model.PasswordReset{}).
		Where("email = ? AND used = ?", email, false).
		Update("used", true).Error; err != nil {
		logger.Error("Failed to invalidate password resets", err, map[string]interface{}{
			"email": email,
		})
		return err
	}
	return nil
}

func (r *passwordResetRepository) DeleteExpired(before time.Time) (int64, error) {
	result := r.db.Where("expires_at < ?", before).Delete(&model.PasswordReset{})
	if result.Error != nil {
		logger.Error("Failed to delete expired password resets", result.Error)
		return 0, result.Error
	}

	logger.Debug("Expired password resets deleted", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
