package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/db"
	"gorm.io/gorm"
)

func setupDiscountTest(t *testing.T) (*gorm.DB, DiscountRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	return testDB, NewDiscountRepository(testDB)
}

func TestDiscountRepository_CreateAndFind(t *testing.T) {
	testDB, repo := setupDiscountTest(t)
	defer db.CleanupTestDB(testDB)

	code := &model.DiscountCode{
		Code:       "WELCOME10",
		Type:       model.DiscountPercentage,
		Value:      10,
		UsageLimit: 100,
		Active:     true,
	}
	require.NoError(t, repo.Create(code))

	found, err := repo.FindByCode("WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, model.DiscountPercentage, found.Type)
	assert.Equal(t, float64(10), found.Value)
}

func TestDiscountRepository_Redeem(t *testing.T) {
	testDB, repo := setupDiscountTest(t)
	defer db.CleanupTestDB(testDB)

	code := &model.DiscountCode{
		Code:       "ONCE",
		Type:       model.DiscountFixed,
		Value:      5,
		UsageLimit: 1,
		Active:     true,
	}
	require.NoError(t, repo.Create(code))

	rows, err := repo.Redeem(nil, code.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// Second redemption hits the limit
	rows, err = repo.Redeem(nil, code.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	found, err := repo.FindByCode("ONCE")
	require.NoError(t, err)
	assert.Equal(t, 1, found.UsedCount)
}

func TestDiscountRepository_RedeemUnlimited(t *testing.T) {
	testDB, repo := setupDiscountTest(t)
	defer db.CleanupTestDB(testDB)

	code := &model.DiscountCode{
		Code:   "FOREVER",
		Type:   model.DiscountPercentage,
		Value:  15,
		Active: true,
	}
	require.NoError(t, repo.Create(code))

	for i := 0; i < 3; i++ {
		rows, err := repo.Redeem(nil, code.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rows)
	}

	found, err := repo.FindByCode("FOREVER")
	require.NoError(t, err)
	assert.Equal(t, 3, found.UsedCount)
}

func TestDiscountRepository_RedeemRollback(t *testing.T) {
	testDB, repo := setupDiscountTest(t)
	defer db.CleanupTestDB(testDB)

	code := &model.DiscountCode{
		Code:       "TXTEST",
		Type:       model.DiscountFixed,
		Value:      5,
		UsageLimit: 1,
		Active:     true,
	}
	require.NoError(t, repo.Create(code))

	// Redemption inside a failed transaction must not consume the code
	err := testDB.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.Redeem(tx, code.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), rows)
		return gorm.ErrInvalidTransaction
	})
	assert.Error(t, err)

	found, err := repo.FindByCode("TXTEST")
	require.NoError(t, err)
	assert.Equal(t, 0, found.UsedCount)
}

func TestDiscountRepository_Update(t *testing.T) {
	testDB, repo := setupDiscountTest(t)
	defer db.CleanupTestDB(testDB)

	expiry := time.Now().Add(24 * time.Hour)
	code := &model.DiscountCode{
		Code:      "SPRING",
		Type:      model.DiscountPercentage,
		Value:     20,
		Active:    true,
		ExpiresAt: &expiry,
	}
	require.NoError(t, repo.Create(code))

	code.Active = false
	require.NoError(t, repo.Update(code))

	found, err := repo.FindByCode("SPRING")
	require.NoError(t, err)
	assert.False(t, found.Active)
}
