package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/internal/db"
	"gorm.io/gorm"
)

func setupDiscountServiceTest(t *testing.T) (DiscountService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	discountRepo := repository.NewDiscountRepository(testDB)
	return NewDiscountService(discountRepo), testDB
}

func TestDiscountService_Validate_Percentage(t *testing.T) {
	discountService, testDB := setupDiscountServiceTest(t)

	testDB.Create(&model.DiscountCode{
		Code:   "SPRING20",
		Type:   model.DiscountPercentage,
		Value:  20,
		Active: true,
	})

	discount, amountOff, err := discountService.Validate("SPRING20", 50.00)
	assert.NoError(t, err)
	assert.Equal(t, "SPRING20", discount.Code)
	assert.InDelta(t, 10.00, amountOff, 0.001)
}

func TestDiscountService_Validate_FixedCappedAtSubtotal(t *testing.T) {
	discountService, testDB := setupDiscountServiceTest(t)

	testDB.Create(&model.DiscountCode{
		Code:   "TENOFF",
		Type:   model.DiscountFixed,
		Value:  10,
		Active: true,
	})

	_, amountOff, err := discountService.Validate("TENOFF", 6.00)
	assert.NoError(t, err)
	assert.InDelta(t, 6.00, amountOff, 0.001)
}

func TestDiscountService_Validate_NotFound(t *testing.T) {
	discountService, _ := setupDiscountServiceTest(t)

	_, _, err := discountService.Validate("NOPE", 50.00)
	assert.ErrorIs(t, err, ErrDiscountNotFound)
}

func TestDiscountService_Validate_Inactive(t *testing.T) {
	discountService, testDB := setupDiscountServiceTest(t)

	testDB.Create(&model.DiscountCode{
		Code:   "PAUSED",
		Type:   model.DiscountFixed,
		Value:  5,
		Active: false,
	})

	_, _, err := discountService.Validate("PAUSED", 50.00)
	assert.ErrorIs(t, err, ErrDiscountInactive)
}

func TestDiscountService_Validate_Expired(t *testing.T) {
	discountService, testDB := setupDiscountServiceTest(t)

	expired := time.Now().Add(-time.Hour)
	testDB.Create(&model.DiscountCode{
		Code:      "BYGONE",
		Type:      model.DiscountFixed,
		Value:     5,
		Active:    true,
		ExpiresAt: &expired,
	})

	_, _, err := discountService.Validate("BYGONE", 50.00)
	assert.ErrorIs(t, err, ErrDiscountExpired)
}

func TestDiscountService_Validate_Exhausted(t *testing.T) {
	discountService, testDB := setupDiscountServiceTest(t)

	testDB.Create(&model.DiscountCode{
		Code:       "ONESHOT",
		Type:       model.DiscountFixed,
		Value:      5,
		UsageLimit: 1,
		UsedCount:  1,
		Active:     true,
	})

	_, _, err := discountService.Validate("ONESHOT", 50.00)
	assert.ErrorIs(t, err, ErrDiscountExhausted)
}

func TestDiscountService_Validate_UnlimitedUsage(t *testing.T) {
	discountService, testDB := setupDiscountServiceTest(t)

	testDB.Create(&model.DiscountCode{
		Code:      "EVERGREEN",
		Type:      model.DiscountFixed,
		Value:     5,
		UsedCount: 500,
		Active:    true,
	})

	_, amountOff, err := discountService.Validate("EVERGREEN", 50.00)
	assert.NoError(t, err)
	assert.InDelta(t, 5.00, amountOff, 0.001)
}
