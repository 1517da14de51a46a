package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/internal/db"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T) (CartService, *model.User, *model.Product, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartService := NewCartService(cartRepo, productRepo)

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         model.RoleCustomer,
	}
	testDB.Create(user)

	product := &model.Product{
		Name:          "Blue Tansy Night Serum",
		Slug:          "blue-tansy-night-serum",
		Price:         42.00,
		Category:      model.CategorySerum,
		SizeML:        30,
		StockQuantity: 10,
		Active:        true,
	}
	testDB.Create(product)

	return cartService, user, product, testDB
}

func TestCartService_GetCart_LazyCreate(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	view, err := cartService.GetCart(UserIdentity(user.ID))
	assert.NoError(t, err)
	assert.NotNil(t, view.Cart)
	assert.Len(t, view.Cart.Items, 0)
	assert.Equal(t, 0.0, view.Subtotal)

	// Second fetch returns the same cart
	again, err := cartService.GetCart(UserIdentity(user.ID))
	assert.NoError(t, err)
	assert.Equal(t, view.Cart.ID, again.Cart.ID)
}

func TestCartService_AddItem_Success(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	view, err := cartService.AddItem(UserIdentity(user.ID), product.ID, 2)
	assert.NoError(t, err)
	assert.Len(t, view.Cart.Items, 1)
	assert.Equal(t, 2, view.ItemCnt)
	assert.InDelta(t, 84.00, view.Subtotal, 0.001)
}

func TestCartService_AddItem_SumsExisting(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(UserIdentity(user.ID), product.ID, 2)
	require.NoError(t, err)

	view, err := cartService.AddItem(UserIdentity(user.ID), product.ID, 3)
	assert.NoError(t, err)
	assert.Len(t, view.Cart.Items, 1)
	assert.Equal(t, 5, view.Cart.Items[0].Quantity)
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(UserIdentity(user.ID), product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = cartService.AddItem(UserIdentity(user.ID), product.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(UserIdentity(user.ID), 9999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_InactiveProduct(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	testDB.Model(product).Update("active", false)

	_, err := cartService.AddItem(UserIdentity(user.ID), product.ID, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestCartService_AddItem_SessionCart(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	view, err := cartService.AddItem(SessionIdentity("session-abc"), product.ID, 1)
	assert.NoError(t, err)
	assert.Nil(t, view.Cart.UserID)
	require.NotNil(t, view.Cart.SessionID)
	assert.Equal(t, "session-abc", *view.Cart.SessionID)
}

func TestCartService_UpdateItem(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(UserIdentity(user.ID), product.ID, 2)
	require.NoError(t, err)

	view, err := cartService.UpdateItem(UserIdentity(user.ID), product.ID, 7)
	assert.NoError(t, err)
	assert.Equal(t, 7, view.Cart.Items[0].Quantity)
}

func TestCartService_UpdateItem_NotFound(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.UpdateItem(UserIdentity(user.ID), product.ID, 2)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_RemoveItem_Idempotent(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(UserIdentity(user.ID), product.ID, 2)
	require.NoError(t, err)

	view, err := cartService.RemoveItem(UserIdentity(user.ID), product.ID)
	assert.NoError(t, err)
	assert.Len(t, view.Cart.Items, 0)

	// Removing again is a no-op
	view, err = cartService.RemoveItem(UserIdentity(user.ID), product.ID)
	assert.NoError(t, err)
	assert.Len(t, view.Cart.Items, 0)
}

func TestCartService_ClearCart(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	_, err := cartService.AddItem(UserIdentity(user.ID), product.ID, 2)
	require.NoError(t, err)

	err = cartService.ClearCart(UserIdentity(user.ID))
	assert.NoError(t, err)

	view, err := cartService.GetCart(UserIdentity(user.ID))
	assert.NoError(t, err)
	assert.Len(t, view.Cart.Items, 0)
}

func TestCartService_MergeCarts(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	second := &model.Product{
		Name:          "Calendula Cleansing Balm",
		Slug:          "calendula-cleansing-balm",
		Price:         28.00,
		Category:      model.CategoryCleanser,
		StockQuantity: 5,
		Active:        true,
	}
	testDB.Create(second)

	// Session cart: 2x serum, 1x balm. User cart: 1x serum.
	_, err := cartService.AddItem(SessionIdentity("sess-merge"), product.ID, 2)
	require.NoError(t, err)
	_, err = cartService.AddItem(SessionIdentity("sess-merge"), second.ID, 1)
	require.NoError(t, err)
	_, err = cartService.AddItem(UserIdentity(user.ID), product.ID, 1)
	require.NoError(t, err)

	err = cartService.MergeCarts("sess-merge", user.ID)
	assert.NoError(t, err)

	view, err := cartService.GetCart(UserIdentity(user.ID))
	assert.NoError(t, err)
	assert.Len(t, view.Cart.Items, 2)
	for _, item := range view.Cart.Items {
		switch item.ProductID {
		case product.ID:
			assert.Equal(t, 3, item.Quantity)
		case second.ID:
			assert.Equal(t, 1, item.Quantity)
		}
	}

	// Session cart is gone
	view, err = cartService.GetCart(SessionIdentity("sess-merge"))
	assert.NoError(t, err)
	assert.Len(t, view.Cart.Items, 0)
}

func TestCartService_MergeCarts_NoSessionCart(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	err := cartService.MergeCarts("no-such-session", user.ID)
	assert.NoError(t, err)
}
