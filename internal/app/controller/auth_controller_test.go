package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	"github.com/verdantleaf/storefront-backend/internal/db"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
	"gorm.io/gorm"
)

type testNotifier struct {
	lastTempPassword string
}

func (n *testNotifier) SendOrderConfirmation(*model.Order)                {}
func (n *testNotifier) NotifyCompanyOfOrder(*model.Order)                 {}
func (n *testNotifier) SendContactFormNotification(*model.ContactMessage) {}
func (n *testNotifier) SendPasswordRecovery(_ *model.User, temp string) {
	n.lastTempPassword = temp
}
func (n *testNotifier) SendNewsletterWelcome(string, string) {}

func setupAuthControllerTest(t *testing.T) (*gin.Engine, *gorm.DB, service.AuthService) {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	resetRepo := repository.NewPasswordResetRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)

	sessionCfg := config.SessionConfig{
		Secret:     "auth-controller-test-secret",
		CookieName: "vl_session",
		Expiry:     time.Hour,
	}

	authService := service.NewAuthService(userRepo, resetRepo, &testNotifier{}, sessionCfg.Secret, sessionCfg.Expiry)
	cartService := service.NewCartService(cartRepo, productRepo)
	ctrl := NewAuthController(authService, cartService, sessionCfg)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.AnonymousSessionIDKey, "auth-test-session")
	})
	router.POST("/auth/register", ctrl.Register)
	router.POST("/auth/login", ctrl.Login)
	router.POST("/auth/login-temp", ctrl.LoginTemp)
	router.POST("/auth/forgot-password", ctrl.ForgotPassword)

	return router, testDB, authService
}

func authRequest(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "vl_session" {
			return cookie
		}
	}
	return nil
}

func TestAuthController_Register(t *testing.T) {
	router, _, _ := setupAuthControllerTest(t)

	w := authRequest(router, "/auth/register", map[string]string{
		"email":    "nora@example.com",
		"password": "secret-pass-1",
		"name":     "Nora",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "nora@example.com", user["email"])
}

func TestAuthController_Register_DuplicateEmail(t *testing.T) {
	router, _, _ := setupAuthControllerTest(t)

	payload := map[string]string{
		"email":    "nora@example.com",
		"password": "secret-pass-1",
		"name":     "Nora",
	}
	require.Equal(t, http.StatusCreated, authRequest(router, "/auth/register", payload).Code)

	w := authRequest(router, "/auth/register", payload)
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AUTH_EMAIL_EXISTS", resp["error"])
}

func TestAuthController_Register_WeakPassword(t *testing.T) {
	router, _, _ := setupAuthControllerTest(t)

	w := authRequest(router, "/auth/register", map[string]string{
		"email":    "nora@example.com",
		"password": "short",
		"name":     "Nora",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthController_Login(t *testing.T) {
	router, _, _ := setupAuthControllerTest(t)

	require.Equal(t, http.StatusCreated, authRequest(router, "/auth/register", map[string]string{
		"email":    "nora@example.com",
		"password": "secret-pass-1",
		"name":     "Nora",
	}).Code)

	w := authRequest(router, "/auth/login", map[string]string{
		"email":    "nora@example.com",
		"password": "secret-pass-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, sessionCookie(w))
}

func TestAuthController_Login_WrongPassword(t *testing.T) {
	router, _, _ := setupAuthControllerTest(t)

	require.Equal(t, http.StatusCreated, authRequest(router, "/auth/register", map[string]string{
		"email":    "nora@example.com",
		"password": "secret-pass-1",
		"name":     "Nora",
	}).Code)

	w := authRequest(router, "/auth/login", map[string]string{
		"email":    "nora@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AUTH_INVALID_CREDENTIALS", resp["error"])
}

func TestAuthController_ForgotPassword_NeverLeaksAccountExistence(t *testing.T) {
	router, _, _ := setupAuthControllerTest(t)

	require.Equal(t, http.StatusCreated, authRequest(router, "/auth/register", map[string]string{
		"email":    "nora@example.com",
		"password": "secret-pass-1",
		"name":     "Nora",
	}).Code)

	known := authRequest(router, "/auth/forgot-password", map[string]string{
		"email": "nora@example.com",
	})
	unknown := authRequest(router, "/auth/forgot-password", map[string]string{
		"email": "nobody@example.com",
	})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String())
}

func TestAuthController_LoginTemp(t *testing.T) {
	router, _, authService := setupAuthControllerTest(t)

	require.Equal(t, http.StatusCreated, authRequest(router, "/auth/register", map[string]string{
		"email":    "nora@example.com",
		"password": "secret-pass-1",
		"name":     "Nora",
	}).Code)

	tempPassword, err := authService.ForgotPassword("nora@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, tempPassword)

	w := authRequest(router, "/auth/login-temp", map[string]string{
		"email":         "nora@example.com",
		"temp_password": tempPassword,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, sessionCookie(w))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	user := resp["user"].(map[string]interface{})
	assert.Equal(t, true, user["requires_password_change"])

	// The temporary password only works once
	w = authRequest(router, "/auth/login-temp", map[string]string{
		"email":         "nora@example.com",
		"temp_password": tempPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AUTH_TEMP_PASSWORD_INVALID", resp["error"])
}
