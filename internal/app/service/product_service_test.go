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

func setupProductServiceTest(t *testing.T) (ProductService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productRepo := repository.NewProductRepository(testDB)
	productService := NewProductService(productRepo)

	products := []model.Product{
		{Name: "Calendula Cleansing Balm", Slug: "calendula-cleansing-balm", Price: 28.00, Category: model.CategoryCleanser, StockQuantity: 10, Active: true},
		{Name: "Blue Tansy Night Serum", Slug: "blue-tansy-night-serum", Price: 42.00, Category: model.CategorySerum, StockQuantity: 5, Active: true, Featured: true},
		{Name: "Retired Toner", Slug: "retired-toner", Price: 19.00, Category: model.CategoryCleanser, StockQuantity: 0, Active: false},
	}
	for i := range products {
		require.NoError(t, testDB.Create(&products[i]).Error)
	}

	return productService, testDB
}

func TestProductService_ListStorefront_HidesInactive(t *testing.T) {
	productService, _ := setupProductServiceTest(t)

	products, total, err := productService.ListStorefront(repository.ProductFilter{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, p := range products {
		assert.True(t, p.Active)
	}
}

func TestProductService_ListProducts_IncludesInactive(t *testing.T) {
	productService, _ := setupProductServiceTest(t)

	_, total, err := productService.ListProducts(repository.ProductFilter{})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestProductService_ListStorefront_CategoryFilter(t *testing.T) {
	productService, _ := setupProductServiceTest(t)

	products, total, err := productService.ListStorefront(repository.ProductFilter{
		Category: model.CategoryCleanser,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, products, 1)
	assert.Equal(t, "calendula-cleansing-balm", products[0].Slug)
}

func TestProductService_GetProductBySlug(t *testing.T) {
	productService, _ := setupProductServiceTest(t)

	product, err := productService.GetProductBySlug("blue-tansy-night-serum")
	assert.NoError(t, err)
	assert.Equal(t, "Blue Tansy Night Serum", product.Name)
}

func TestProductService_GetProductBySlug_InactiveHidden(t *testing.T) {
	productService, _ := setupProductServiceTest(t)

	_, err := productService.GetProductBySlug("retired-toner")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_GetProductByID_NotFound(t *testing.T) {
	productService, _ := setupProductServiceTest(t)

	_, err := productService.GetProductByID(9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_CreateAndUpdate(t *testing.T) {
	productService, _ := setupProductServiceTest(t)

	product := &model.Product{
		Name:          "Oat Milk Moisturizer",
		Slug:          "oat-milk-moisturizer",
		Price:         34.00,
		Category:      model.CategoryMoisturizer,
		StockQuantity: 12,
		Active:        true,
	}
	require.NoError(t, productService.CreateProduct(product))
	require.NotZero(t, product.ID)

	product.Price = 36.00
	require.NoError(t, productService.UpdateProduct(product))

	fresh, err := productService.GetProductByID(product.ID)
	require.NoError(t, err)
	assert.InDelta(t, 36.00, fresh.Price, 0.001)
}

func TestProductService_DeleteProduct(t *testing.T) {
	productService, testDB := setupProductServiceTest(t)

	var product model.Product
	require.NoError(t, testDB.Where("slug = ?", "calendula-cleansing-balm").First(&product).Error)

	require.NoError(t, productService.DeleteProduct(product.ID))

	_, err := productService.GetProductByID(product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
