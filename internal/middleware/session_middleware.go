package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	"github.com/verdantleaf/storefront-backend/internal/errors"
	"github.com/verdantleaf/storefront-backend/pkg/redis"
	"github.com/verdantleaf/storefront-backend/pkg/util"
)

// Context keys for session information
const (
	UserIDKey             = "user_id"
	UserEmailKey          = "user_email"
	UserRoleKey           = "user_role"
	SessionTokenIDKey     = "session_token_id"
	PasswordChangeDueKey  = "password_change_due"
	AnonymousSessionIDKey = "anonymous_session_id"
)

// AnonCookieName identifies anonymous visitors so their cart and chat
// survive across requests before they sign in.
const AnonCookieName = "vl_anon"

const anonCookieMaxAge = 60 * 60 * 24 * 30 // 30 days

type SessionMiddleware struct {
	cfg config.SessionConfig
}

func NewSessionMiddleware(cfg config.SessionConfig) *SessionMiddleware {
	return &SessionMiddleware{cfg: cfg}
}

// Resolve reads the session cookie if present and the anonymous id
// cookie, issuing the latter when missing. It never rejects a request;
// guests simply carry no user info. Put it on every route.
func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		// Anonymous id cookie, issued on first contact
		anonID, err := c.Cookie(AnonCookieName)
		if err != nil || anonID == "" {
			anonID = uuid.NewString()
			c.SetCookie(AnonCookieName, anonID, anonCookieMaxAge, "/", "", m.cfg.Secure, true)
		}
		c.Set(AnonymousSessionIDKey, anonID)

		token, err := c.Cookie(m.cfg.CookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, err := util.ValidateSessionToken(token, m.cfg.Secret)
		if err != nil {
			// Expired or tampered cookie: clear it and continue as guest
			log.Debug("Session cookie rejected", map[string]interface{}{
				"error": err.Error(),
			})
			m.clearSessionCookie(c)
			c.Next()
			return
		}

		revoked, err := redis.IsSessionRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			log.Error("Session revocation check failed", err, map[string]interface{}{
				"user_id": claims.UserID,
			})
		} else if revoked {
			log.Warn("Revoked session cookie presented", map[string]interface{}{
				"user_id": claims.UserID,
			})
			m.clearSessionCookie(c)
			c.Next()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, model.UserRole(claims.Role))
		c.Set(SessionTokenIDKey, claims.ID)
		c.Set(PasswordChangeDueKey, claims.RequiresPasswordChange)

		c.Next()
	}
}

// passwordChangeExempt lists route suffixes a temp-password session may
// still reach.
var passwordChangeExempt = []string{
	"/auth/change-password",
	"/auth/logout",
	"/auth/me",
}

// RequireAuth rejects guests. Sessions opened with a temporary password
// are confined to the password change until they pick a new one.
func (m *SessionMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		if _, exists := GetUserID(c); !exists {
			log.Warn("Unauthenticated request to protected route", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if c.GetBool(PasswordChangeDueKey) && !isPasswordChangeExempt(c.Request.URL.Path) {
			log.Warn("Session requires password change", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthPasswordChangeNeeded,
				"Please choose a new password before continuing")
			c.Abort()
			return
		}

		c.Next()
	}
}

func isPasswordChangeExempt(path string) bool {
	for _, suffix := range passwordChangeExempt {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// RequireRole checks the authenticated user's role
func (m *SessionMiddleware) RequireRole(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		role, exists := GetUserRole(c)
		if !exists {
			errors.Unauthorized(c, "")
			c.Abort()
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		userID, _ := GetUserID(c)
		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        userID,
			"user_role":      role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		errors.RespondWithError(c, http.StatusForbidden, errors.AuthzAdminOnly, "Administrator access required")
		c.Abort()
	}
}

func (m *SessionMiddleware) clearSessionCookie(c *gin.Context) {
	c.SetCookie(m.cfg.CookieName, "", -1, "/", "", m.cfg.Secure, true)
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(UserEmailKey)
	if !exists {
		return "", false
	}
	return email.(string), true
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	return role.(model.UserRole), true
}

// GetSessionTokenID extracts the session token id used for revocation
func GetSessionTokenID(c *gin.Context) (string, bool) {
	id, exists := c.Get(SessionTokenIDKey)
	if !exists {
		return "", false
	}
	return id.(string), true
}

// GetAnonymousSessionID extracts the anonymous visitor id
func GetAnonymousSessionID(c *gin.Context) string {
	return c.GetString(AnonymousSessionIDKey)
}

// GetIdentity resolves the cart/chat owner for the request: the user id
// when signed in, the anonymous id otherwise.
func GetIdentity(c *gin.Context) service.Identity {
	if userID, ok := GetUserID(c); ok {
		return service.UserIdentity(userID)
	}
	return service.SessionIdentity(GetAnonymousSessionID(c))
}
