package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	"github.com/verdantleaf/storefront-backend/internal/db"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
	"gorm.io/gorm"
)

func setupCartControllerTest(t *testing.T) (*gin.Engine, *gorm.DB, *model.Product) {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartService := service.NewCartService(cartRepo, productRepo)
	ctrl := NewCartController(cartService)

	product := &model.Product{
		Name:          "Green Clay Renewal Mask",
		Slug:          "green-clay-renewal-mask",
		Price:         28.00,
		Category:      model.CategoryMask,
		StockQuantity: 25,
		Active:        true,
	}
	require.NoError(t, testDB.Create(product).Error)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.AnonymousSessionIDKey, "cart-test-session")
	})
	router.GET("/cart", ctrl.GetCart)
	router.DELETE("/cart", ctrl.ClearCart)
	router.POST("/cart/items", ctrl.AddItem)
	router.PUT("/cart/items/:productId", ctrl.UpdateItem)
	router.DELETE("/cart/items/:productId", ctrl.RemoveItem)

	return router, testDB, product
}

func cartRequest(router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCartController_GetCart_Empty(t *testing.T) {
	router, _, _ := setupCartControllerTest(t)

	w := cartRequest(router, "GET", "/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["item_count"])
}

func TestCartController_AddItem(t *testing.T) {
	router, _, product := setupCartControllerTest(t)

	w := cartRequest(router, "POST", "/cart/items", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   3,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["item_count"])
	assert.InDelta(t, 84.00, resp["subtotal"], 0.001)
}

func TestCartController_AddItem_InvalidQuantity(t *testing.T) {
	router, _, product := setupCartControllerTest(t)

	w := cartRequest(router, "POST", "/cart/items", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CART_INVALID_QUANTITY", resp["error"])
}

func TestCartController_AddItem_UnknownProduct(t *testing.T) {
	router, _, _ := setupCartControllerTest(t)

	w := cartRequest(router, "POST", "/cart/items", map[string]interface{}{
		"product_id": 9999,
		"quantity":   1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartController_AddItem_InactiveProduct(t *testing.T) {
	router, testDB, product := setupCartControllerTest(t)

	require.NoError(t, testDB.Model(product).Update("active", false).Error)

	w := cartRequest(router, "POST", "/cart/items", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCartController_UpdateAndRemoveItem(t *testing.T) {
	router, _, product := setupCartControllerTest(t)

	w := cartRequest(router, "POST", "/cart/items", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = cartRequest(router, "PUT", fmt.Sprintf("/cart/items/%d", product.ID), map[string]interface{}{
		"quantity": 5,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(5), resp["item_count"])

	w = cartRequest(router, "DELETE", fmt.Sprintf("/cart/items/%d", product.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["item_count"])
}

func TestCartController_UpdateItem_NotInCart(t *testing.T) {
	router, _, product := setupCartControllerTest(t)

	w := cartRequest(router, "PUT", fmt.Sprintf("/cart/items/%d", product.ID), map[string]interface{}{
		"quantity": 2,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartController_ClearCart(t *testing.T) {
	router, _, product := setupCartControllerTest(t)

	w := cartRequest(router, "POST", "/cart/items", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = cartRequest(router, "DELETE", "/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = cartRequest(router, "GET", "/cart", nil)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["item_count"])
}
