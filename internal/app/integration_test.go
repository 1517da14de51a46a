package app

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
	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/controller"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	"github.com/verdantleaf/storefront-backend/internal/db"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
	"github.com/verdantleaf/storefront-backend/internal/router"
	"github.com/verdantleaf/storefront-backend/internal/storage"
	"gorm.io/gorm"
)

// stubProvider confirms every charge.
type stubProvider struct{}

func (p *stubProvider) CreatePayment(_ context.Context, amount float64, currency, _ string, _ map[string]string) (*service.PaymentResult, error) {
	return &service.PaymentResult{
		Provider:  model.ProviderStripe,
		Reference: "pi_test_integration",
		Status:    "requires_confirmation",
	}, nil
}

func (p *stubProvider) ConfirmPayment(_ context.Context, reference string) (*service.PaymentResult, error) {
	return &service.PaymentResult{
		Provider:  model.ProviderStripe,
		Reference: reference,
		Status:    "succeeded",
		Confirmed: true,
	}, nil
}

type stubPaymentService struct{}

func (s *stubPaymentService) Provider(_ model.PaymentProvider) (service.PaymentProvider, error) {
	return &stubProvider{}, nil
}

type quietNotifier struct{}

func (quietNotifier) SendOrderConfirmation(*model.Order)                {}
func (quietNotifier) NotifyCompanyOfOrder(*model.Order)                 {}
func (quietNotifier) SendContactFormNotification(*model.ContactMessage) {}
func (quietNotifier) SendPasswordRecovery(*model.User, string)          {}
func (quietNotifier) SendNewsletterWelcome(string, string)              {}

type echoAssistant struct{}

func (echoAssistant) Reply(_ context.Context, _ []model.ChatMessage, msg string) (string, error) {
	return "You asked: " + msg, nil
}

type TestServer struct {
	Router *gin.Engine
	DB     *gorm.DB
}

// client carries cookies between requests like a browser would.
type client struct {
	t       *testing.T
	server  *TestServer
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, ts *TestServer) *client {
	return &client{t: t, server: ts, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.server.Router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
		} else {
			c.cookies[cookie.Name] = cookie
		}
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		Session: config.SessionConfig{
			Secret:     "integration-test-secret",
			CookieName: "vl_session",
			Expiry:     time.Hour,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	userRepo := repository.NewUserRepository(testDB)
	resetRepo := repository.NewPasswordResetRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	shippingRepo := repository.NewShippingMethodRepository(testDB)
	discountRepo := repository.NewDiscountRepository(testDB)
	newsletterRepo := repository.NewNewsletterRepository(testDB)
	contactRepo := repository.NewContactRepository(testDB)
	chatRepo := repository.NewChatRepository(testDB)

	notifier := quietNotifier{}
	authService := service.NewAuthService(userRepo, resetRepo, notifier, cfg.Session.Secret, cfg.Session.Expiry)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	discountService := service.NewDiscountService(discountRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, shippingRepo, discountRepo, discountService, notifier, testDB)
	paymentService := &stubPaymentService{}
	newsletterService := service.NewNewsletterService(newsletterRepo, discountRepo, notifier)
	contactService := service.NewContactService(contactRepo, notifier)
	chatService := service.NewChatService(chatRepo, echoAssistant{}, nil)

	r := router.NewRouter(
		controller.NewAuthController(authService, cartService, cfg.Session),
		controller.NewProductController(productService),
		controller.NewCartController(cartService),
		controller.NewOrderController(orderService, paymentService, discountService, cartService),
		controller.NewPaymentController(paymentService, cartService, orderService, discountService),
		controller.NewNewsletterController(newsletterService),
		controller.NewContactController(contactService),
		controller.NewChatController(chatService, nil),
		controller.NewAdminController(productService, orderService, discountService, contactService, newsletterService, &storage.ImageStorage{}),
		middleware.NewSessionMiddleware(cfg.Session),
		cfg,
	)

	return &TestServer{Router: r.Setup(), DB: testDB}
}

func seedCatalog(t *testing.T, testDB *gorm.DB) (*model.Product, *model.ShippingMethod) {
	product := &model.Product{
		Name:          "Oat Milk Moisturizer",
		Slug:          "oat-milk-moisturizer",
		Price:         32.00,
		Category:      model.CategoryMoisturizer,
		StockQuantity: 10,
		Active:        true,
	}
	require.NoError(t, testDB.Create(product).Error)

	method := &model.ShippingMethod{
		Name:  "Standard Shipping",
		Price: 4.99,
	}
	require.NoError(t, testDB.Create(method).Error)

	return product, method
}

func TestCompleteShoppingJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	product, method := seedCatalog(t, ts.DB)
	c := newClient(t, ts)

	// 1. Browse the catalog as a guest
	w := c.do("GET", "/api/v1/products", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode(t, w)["products"])

	// 2. Add to the cart while still anonymous
	w = c.do("POST", "/api/v1/cart/items", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// 3. Register; the anonymous cart follows the new account
	w = c.do("POST", "/api/v1/auth/register", map[string]string{
		"email":    "buyer@example.com",
		"password": "password123",
		"name":     "Test Buyer",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, c.cookies["vl_session"])

	w = c.do("GET", "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	cartResp := decode(t, w)
	assert.Equal(t, float64(2), cartResp["item_count"])
	assert.InDelta(t, 64.00, cartResp["subtotal"], 0.001)

	// 4. Check out with a confirmed payment
	w = c.do("POST", "/api/v1/checkout", map[string]interface{}{
		"contact": map[string]string{
			"email": "buyer@example.com",
			"name":  "Test Buyer",
		},
		"shipping": map[string]interface{}{
			"address_line1":      "100 Fern St",
			"city":               "Portland",
			"postal_code":        "97201",
			"country":            "US",
			"shipping_method_id": method.ID,
		},
		"payment": map[string]string{
			"provider":  "stripe",
			"reference": "pi_test_integration",
		},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	orderResp := decode(t, w)
	order := orderResp["order"].(map[string]interface{})
	assert.Equal(t, "paid", order["status"])
	assert.InDelta(t, 68.99, order["total"], 0.001)

	// 5. The order shows up in history
	w = c.do("GET", "/api/v1/orders", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	orders := decode(t, w)["orders"].([]interface{})
	assert.Len(t, orders, 1)

	// 6. Cart was cleared by checkout
	w = c.do("GET", "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["item_count"])

	// 7. Stock went down
	var updated model.Product
	require.NoError(t, ts.DB.First(&updated, product.ID).Error)
	assert.Equal(t, 8, updated.StockQuantity)
}

func TestSessionCookieFlow(t *testing.T) {
	ts := setupIntegrationTest(t)
	c := newClient(t, ts)

	w := c.do("POST", "/api/v1/auth/register", map[string]string{
		"email":    "test@example.com",
		"password": "password123",
		"name":     "Test User",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Session cookie authenticates /me
	w = c.do("GET", "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "test@example.com", user["email"])

	// Logout clears the cookie
	w = c.do("POST", "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, c.cookies["vl_session"])

	w = c.do("GET", "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Login restores the session
	w = c.do("POST", "/api/v1/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, c.cookies["vl_session"])
}

func TestGuestsKeepSeparateCarts(t *testing.T) {
	ts := setupIntegrationTest(t)
	product, _ := seedCatalog(t, ts.DB)

	first := newClient(t, ts)
	second := newClient(t, ts)

	w := first.do("POST", "/api/v1/cart/items", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   1,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = second.do("GET", "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["item_count"])
}

func TestProtectedRoutesRejectGuests(t *testing.T) {
	ts := setupIntegrationTest(t)
	c := newClient(t, ts)

	for _, route := range []string{
		"/api/v1/auth/me",
		"/api/v1/orders",
	} {
		t.Run(route, func(t *testing.T) {
			w := c.do("GET", route, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	ts := setupIntegrationTest(t)
	c := newClient(t, ts)

	w := c.do("POST", "/api/v1/auth/register", map[string]string{
		"email":    "customer@example.com",
		"password": "password123",
		"name":     "Customer",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = c.do("GET", "/api/v1/admin/orders", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTempPasswordSessionOnlyAllowsPasswordChange(t *testing.T) {
	ts := setupIntegrationTest(t)
	c := newClient(t, ts)

	w := c.do("POST", "/api/v1/auth/register", map[string]string{
		"email":    "mara@example.com",
		"password": "original-pass-1",
		"name":     "Mara",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	c.do("POST", "/api/v1/auth/logout", nil)

	// Issue a temp password through the service, as the email would
	authService := service.NewAuthService(
		repository.NewUserRepository(ts.DB),
		repository.NewPasswordResetRepository(ts.DB),
		quietNotifier{},
		"integration-test-secret",
		time.Hour,
	)
	tempPassword, err := authService.ForgotPassword("mara@example.com")
	require.NoError(t, err)

	w = c.do("POST", "/api/v1/auth/login-temp", map[string]string{
		"email":         "mara@example.com",
		"temp_password": tempPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The temp session is locked out of everything but the password change
	w = c.do("GET", "/api/v1/orders", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTH_PASSWORD_CHANGE_NEEDED", decode(t, w)["error"])

	w = c.do("POST", "/api/v1/auth/change-password", map[string]string{
		"current_password": tempPassword,
		"new_password":     "fresh-password-9",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The re-issued session is a normal one
	w = c.do("GET", "/api/v1/orders", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
