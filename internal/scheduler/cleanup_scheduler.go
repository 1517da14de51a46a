package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
)

// staleCartAge is how long an anonymous cart may sit untouched before
// the nightly job removes it.
const staleCartAge = 30 * 24 * time.Hour

// CleanupScheduler removes expired temporary passwords and abandoned
// anonymous carts on a nightly schedule.
type CleanupScheduler struct {
	cron      *cron.Cron
	resetRepo repository.PasswordResetRepository
	cartRepo  repository.CartRepository
}

func NewCleanupScheduler(
	resetRepo repository.PasswordResetRepository,
	cartRepo repository.CartRepository,
) *CleanupScheduler {
	return &CleanupScheduler{
		cron:      cron.New(),
		resetRepo: resetRepo,
		cartRepo:  cartRepo,
	}
}

func (s *CleanupScheduler) Start() error {
	// Nightly at 03:30, after the traffic trough
	_, err := s.cron.AddFunc("30 3 * * *", s.runCleanup)
	if err != nil {
		logger.Error("Failed to schedule cleanup job", err)
		return err
	}

	s.cron.Start()
	logger.Info("Cleanup scheduler started (daily at 03:30)", nil)
	return nil
}

func (s *CleanupScheduler) runCleanup() {
	logger.Info("Starting scheduled cleanup", nil)

	now := time.Now()

	resets, err := s.resetRepo.DeleteExpired(now)
	if err != nil {
		logger.Error("Failed to delete expired password resets", err)
	}

	carts, err := s.cartRepo.DeleteStaleAnonymous(now.Add(-staleCartAge))
	if err != nil {
		logger.Error("Failed to delete stale anonymous carts", err)
	}

	logger.Info("Scheduled cleanup finished", map[string]interface{}{
		"password_resets_removed": resets,
		"stale_carts_removed":     carts,
	})
}

func (s *CleanupScheduler) Stop() {
	logger.Info("Stopping cleanup scheduler", nil)
	s.cron.Stop()
}
