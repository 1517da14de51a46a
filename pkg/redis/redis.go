package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
)

// ErrNotInitialized is returned when the client has not been set up.
// Callers treat the denylist as unavailable and fail open.
var ErrNotInitialized = errors.New("redis client is not initialized")

var client *redis.Client

// Init initializes the Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// RevokeSession marks a session id as logged out until its natural expiry.
// Sessions are stateless cookies, so logout is enforced by this denylist.
func RevokeSession(ctx context.Context, sessionID string, expiry time.Duration) error {
	if client == nil {
		return ErrNotInitialized
	}

	logger.Debug("Revoking session", map[string]interface{}{
		"expiry": expiry.String(),
	})

	key := fmt.Sprintf("session:revoked:%s", sessionID)
	if err := client.Set(ctx, key, "revoked", expiry).Err(); err != nil {
		logger.Error("Failed to revoke session", err, nil)
		return err
	}

	return nil
}

// IsSessionRevoked checks whether a session id has been logged out
func IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	if client == nil {
		return false, ErrNotInitialized
	}

	key := fmt.Sprintf("session:revoked:%s", sessionID)
	val, err := client.Get(ctx, key).Result()

	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check session revocation", err, nil)
		return false, err
	}

	return val == "revoked", nil
}
