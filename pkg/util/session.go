package util

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token has expired")
)

// SessionClaims is the payload carried by the signed session cookie.
// RequiresPasswordChange is set when the session was opened with a
// temporary password and gates all routes except the password change.
type SessionClaims struct {
	UserID                 uint   `json:"user_id"`
	Email                  string `json:"email"`
	Role                   string `json:"role"`
	RequiresPasswordChange bool   `json:"pwd_change,omitempty"`
	jwt.RegisteredClaims
}

// GenerateSessionToken creates a signed session token for the cookie
func GenerateSessionToken(userID uint, email, role string, requiresPasswordChange bool, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:                 userID,
		Email:                  email,
		Role:                   role,
		RequiresPasswordChange: requiresPasswordChange,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateSessionToken parses and validates a session token
func ValidateSessionToken(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
