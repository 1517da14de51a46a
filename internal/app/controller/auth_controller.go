package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	apperrors "github.com/verdantleaf/storefront-backend/internal/errors"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
	"github.com/verdantleaf/storefront-backend/pkg/redis"
)

type AuthController struct {
	authService service.AuthService
	cartService service.CartService
	sessionCfg  config.SessionConfig
}

func NewAuthController(authService service.AuthService, cartService service.CartService, sessionCfg config.SessionConfig) *AuthController {
	return &AuthController{
		authService: authService,
		cartService: cartService,
		sessionCfg:  sessionCfg,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginTempRequest struct {
	Email        string `json:"email" binding:"required,email"`
	TempPassword string `json:"temp_password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func userJSON(user *model.User) gin.H {
	return gin.H{
		"id":                       user.ID,
		"email":                    user.Email,
		"name":                     user.Name,
		"phone":                    user.Phone,
		"role":                     user.Role,
		"requires_password_change": user.RequiresPasswordChange,
	}
}

func (ctrl *AuthController) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(ctrl.sessionCfg.CookieName, token, int(ctrl.sessionCfg.Expiry.Seconds()), "/", "", ctrl.sessionCfg.Secure, true)
}

func (ctrl *AuthController) clearSessionCookie(c *gin.Context) {
	c.SetCookie(ctrl.sessionCfg.CookieName, "", -1, "/", "", ctrl.sessionCfg.Secure, true)
}

// mergeAnonymousCart folds the visitor's anonymous cart into the user
// cart after a successful sign-in. Best effort.
func (ctrl *AuthController) mergeAnonymousCart(c *gin.Context, userID uint) {
	log := middleware.GetLoggerFromContext(c)

	anonID := middleware.GetAnonymousSessionID(c)
	if anonID == "" {
		return
	}
	if err := ctrl.cartService.MergeCarts(anonID, userID); err != nil {
		log.Error("Failed to merge anonymous cart", err, map[string]interface{}{
			"user_id": userID,
		})
	}
}

// Register handles account creation
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the registration details")
		return
	}

	user, token, err := ctrl.authService.Register(req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "An account with this email already exists")
			return
		}
		log.Error("Registration failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "register user")
		return
	}

	ctrl.setSessionCookie(c, token)
	ctrl.mergeAnonymousCart(c, user.ID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created",
		"user":    userJSON(user),
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check your email and password")
		return
	}

	user, token, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Email or password is incorrect")
			return
		}
		log.Error("Login failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "login")
		return
	}

	ctrl.setSessionCookie(c, token)
	ctrl.mergeAnonymousCart(c, user.ID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Signed in",
		"user":    userJSON(user),
	})
}

// LoginTemp signs in with a temporary password from the recovery email
// POST /api/v1/auth/login-temp
func (ctrl *AuthController) LoginTemp(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginTempRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check your email and temporary password")
		return
	}

	user, token, err := ctrl.authService.LoginWithTempPassword(req.Email, req.TempPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTempPasswordExpired):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTempPasswordExpired, "The temporary password has expired. Please request a new one")
		case errors.Is(err, service.ErrTempPasswordInvalid), errors.Is(err, service.ErrInvalidCredentials):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTempPasswordInvalid, "The temporary password is invalid or was already used")
		default:
			log.Error("Temporary password login failed", err, map[string]interface{}{
				"email": req.Email,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "login")
		}
		return
	}

	ctrl.setSessionCookie(c, token)
	ctrl.mergeAnonymousCart(c, user.ID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Signed in with temporary password. Please choose a new password",
		"user":    userJSON(user),
	})
}

// Logout revokes the current session and clears the cookie
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if tokenID, ok := middleware.GetSessionTokenID(c); ok {
		// Logout always succeeds from the user's side
		if err := redis.RevokeSession(c.Request.Context(), tokenID, ctrl.sessionCfg.Expiry); err != nil {
			log.Error("Failed to revoke session during logout", err, nil)
		}
	}

	ctrl.clearSessionCookie(c)

	c.JSON(http.StatusOK, gin.H{
		"message": "Signed out",
	})
}

// ForgotPassword issues a temporary password by email
// POST /api/v1/auth/forgot-password
func (ctrl *AuthController) ForgotPassword(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide a valid email")
		return
	}

	if _, err := ctrl.authService.ForgotPassword(req.Email); err != nil {
		log.Error("Failed to process password recovery", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.InternalError(c, "Could not process the recovery request. Please try again later")
		return
	}

	// Identical response for known and unknown emails
	c.JSON(http.StatusOK, gin.H{
		"message": "If an account exists for this email, a temporary password has been sent",
	})
}

// ChangePassword sets a new account password
// POST /api/v1/auth/change-password
func (ctrl *AuthController) ChangePassword(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "New password must be at least 8 characters")
		return
	}

	if err := ctrl.authService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Current password is incorrect")
			return
		}
		log.Error("Failed to change password", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update password")
		return
	}

	// Re-issue the session so the password-change flag is dropped
	user, token, err := ctrl.authService.Login(c.GetString(middleware.UserEmailKey), req.NewPassword)
	if err != nil {
		// The password did change; just ask for a fresh sign-in
		ctrl.clearSessionCookie(c)
		c.JSON(http.StatusOK, gin.H{
			"message": "Password changed. Please sign in again",
		})
		return
	}

	ctrl.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"message": "Password changed",
		"user":    userJSON(user),
	})
}

// GetMe returns the signed-in user's profile
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "Account not found")
			return
		}
		log.Error("Failed to load profile", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userJSON(user),
	})
}

// UpdateMe updates the signed-in user's profile
// PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the profile details")
		return
	}

	user, err := ctrl.authService.UpdateProfile(userID, req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "Account not found")
			return
		}
		log.Error("Failed to update profile", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated",
		"user":    userJSON(user),
	})
}
