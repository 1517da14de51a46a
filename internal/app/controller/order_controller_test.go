package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

type fakeProvider struct {
	confirmResult *service.PaymentResult
	confirmErr    error
}

func (p *fakeProvider) CreatePayment(_ context.Context, _ float64, _, _ string, _ map[string]string) (*service.PaymentResult, error) {
	return &service.PaymentResult{Provider: model.ProviderStripe, Reference: "pi_created"}, nil
}

func (p *fakeProvider) ConfirmPayment(_ context.Context, _ string) (*service.PaymentResult, error) {
	return p.confirmResult, p.confirmErr
}

type fakePaymentService struct {
	provider *fakeProvider
}

func (s *fakePaymentService) Provider(_ model.PaymentProvider) (service.PaymentProvider, error) {
	return s.provider, nil
}

type silentNotifier struct{}

func (silentNotifier) SendOrderConfirmation(*model.Order)                {}
func (silentNotifier) NotifyCompanyOfOrder(*model.Order)                 {}
func (silentNotifier) SendContactFormNotification(*model.ContactMessage) {}
func (silentNotifier) SendPasswordRecovery(*model.User, string)          {}
func (silentNotifier) SendNewsletterWelcome(string, string)              {}

type orderControllerEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	provider *fakeProvider
	product  *model.Product
	method   *model.ShippingMethod
}

func setupOrderControllerTest(t *testing.T) *orderControllerEnv {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	shippingRepo := repository.NewShippingMethodRepository(testDB)
	discountRepo := repository.NewDiscountRepository(testDB)

	cartService := service.NewCartService(cartRepo, productRepo)
	discountService := service.NewDiscountService(discountRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, shippingRepo, discountRepo, discountService, silentNotifier{}, testDB)

	provider := &fakeProvider{
		confirmResult: &service.PaymentResult{
			Provider:  model.ProviderStripe,
			Reference: "pi_order_ctrl",
			Status:    "succeeded",
			Confirmed: true,
		},
	}
	paymentService := &fakePaymentService{provider: provider}

	ctrl := NewOrderController(orderService, paymentService, discountService, cartService)

	product := &model.Product{
		Name:          "Juniper Body Oil",
		Slug:          "juniper-body-oil",
		Price:         36.00,
		Category:      model.CategoryBody,
		StockQuantity: 10,
		Active:        true,
	}
	require.NoError(t, testDB.Create(product).Error)

	method := &model.ShippingMethod{Name: "Standard Shipping", Price: 4.99}
	require.NoError(t, testDB.Create(method).Error)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.AnonymousSessionIDKey, "order-test-session")
	})
	router.POST("/checkout", ctrl.Checkout)
	router.POST("/orders/lookup", ctrl.LookupOrder)
	router.GET("/shipping-methods", ctrl.ListShippingMethods)
	router.POST("/discounts/validate", ctrl.ValidateDiscount)

	return &orderControllerEnv{
		router:   router,
		db:       testDB,
		provider: provider,
		product:  product,
		method:   method,
	}
}

func orderRequest(router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
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

func (env *orderControllerEnv) fillCart(t *testing.T, quantity int) {
	cartRepo := repository.NewCartRepository(env.db)
	productRepo := repository.NewProductRepository(env.db)
	cartService := service.NewCartService(cartRepo, productRepo)
	_, err := cartService.AddItem(service.SessionIdentity("order-test-session"), env.product.ID, quantity)
	require.NoError(t, err)
}

func (env *orderControllerEnv) checkoutPayload() map[string]interface{} {
	return map[string]interface{}{
		"contact": map[string]string{
			"email": "guest@example.com",
			"name":  "Guest Buyer",
		},
		"shipping": map[string]interface{}{
			"address_line1":      "42 Moss Lane",
			"city":               "Portland",
			"postal_code":        "97202",
			"country":            "US",
			"shipping_method_id": env.method.ID,
		},
		"payment": map[string]string{
			"provider":  "stripe",
			"reference": "pi_order_ctrl",
		},
	}
}

func TestOrderController_Checkout(t *testing.T) {
	env := setupOrderControllerTest(t)
	env.fillCart(t, 2)

	w := orderRequest(env.router, "POST", "/checkout", env.checkoutPayload())
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	order := resp["order"].(map[string]interface{})
	assert.Equal(t, "paid", order["status"])
	assert.InDelta(t, 76.99, order["total"], 0.001) // 36*2 + 4.99
}

func TestOrderController_Checkout_EmptyCart(t *testing.T) {
	env := setupOrderControllerTest(t)

	w := orderRequest(env.router, "POST", "/checkout", env.checkoutPayload())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CART_EMPTY", resp["error"])
}

func TestOrderController_Checkout_PaymentNotConfirmed(t *testing.T) {
	env := setupOrderControllerTest(t)
	env.fillCart(t, 1)

	env.provider.confirmResult = nil
	env.provider.confirmErr = service.ErrPaymentNotConfirmed

	w := orderRequest(env.router, "POST", "/checkout", env.checkoutPayload())
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PAYMENT_NOT_APPROVED", resp["error"])

	// Nothing was ordered and stock is untouched
	var count int64
	env.db.Model(&model.Order{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestOrderController_Checkout_PaymentDeclined(t *testing.T) {
	env := setupOrderControllerTest(t)
	env.fillCart(t, 1)

	env.provider.confirmResult = nil
	env.provider.confirmErr = service.ErrPaymentDeclined

	w := orderRequest(env.router, "POST", "/checkout", env.checkoutPayload())
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PAYMENT_DECLINED", resp["error"])
}

func TestOrderController_GuestLookup(t *testing.T) {
	env := setupOrderControllerTest(t)
	env.fillCart(t, 1)

	w := orderRequest(env.router, "POST", "/checkout", env.checkoutPayload())
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	number := resp["order"].(map[string]interface{})["number"].(string)

	w = orderRequest(env.router, "POST", "/orders/lookup", map[string]string{
		"number": number,
		"email":  "guest@example.com",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Wrong email gets the same not-found as a wrong number
	w = orderRequest(env.router, "POST", "/orders/lookup", map[string]string{
		"number": number,
		"email":  "other@example.com",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderController_ListShippingMethods(t *testing.T) {
	env := setupOrderControllerTest(t)

	w := orderRequest(env.router, "GET", "/shipping-methods", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp["shipping_methods"], 1)
}

func TestOrderController_ValidateDiscount(t *testing.T) {
	env := setupOrderControllerTest(t)
	env.fillCart(t, 2) // subtotal 72.00

	expires := time.Now().Add(24 * time.Hour)
	discount := &model.DiscountCode{
		Code:      "SPRING15",
		Type:      model.DiscountPercentage,
		Value:     15,
		Active:    true,
		ExpiresAt: &expires,
	}
	require.NoError(t, env.db.Create(discount).Error)

	w := orderRequest(env.router, "POST", "/discounts/validate", map[string]string{
		"code": "SPRING15",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 10.80, resp["discount_amount"], 0.001)

	w = orderRequest(env.router, "POST", "/discounts/validate", map[string]string{
		"code": "NO-SUCH-CODE",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
