package service

import (
	"errors"
	"time"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"github.com/verdantleaf/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserNotFound        = errors.New("user not found")
	ErrTempPasswordInvalid = errors.New("temporary password is invalid or already used")
	ErrTempPasswordExpired = errors.New("temporary password has expired")
)

const tempPasswordTTL = 24 * time.Hour

type AuthService interface {
	Register(email, password, name, phone string) (*model.User, string, error)
	Login(email, password string) (*model.User, string, error)
	LoginWithTempPassword(email, tempPassword string) (*model.User, string, error)
	ForgotPassword(email string) (string, error)
	ChangePassword(userID uint, currentPassword, newPassword string) error
	GetUserByID(id uint) (*model.User, error)
	UpdateProfile(userID uint, name, phone string) (*model.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	resetRepo     repository.PasswordResetRepository
	notifier      NotificationService
	sessionSecret string
	sessionExpiry time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	notifier NotificationService,
	sessionSecret string,
	sessionExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		resetRepo:     resetRepo,
		notifier:      notifier,
		sessionSecret: sessionSecret,
		sessionExpiry: sessionExpiry,
	}
}

func (s *authService) issueSession(user *model.User) (string, error) {
	return util.GenerateSessionToken(
		user.ID,
		user.Email,
		string(user.Role),
		user.RequiresPasswordChange,
		s.sessionSecret,
		s.sessionExpiry,
	)
}

func (s *authService) Register(email, password, name, phone string) (*model.User, string, error) {
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
		"name":  name,
	})

	// Check if user already exists
	existingUser, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, "", err
	}
	if existingUser != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, "", ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, "", err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Phone:        phone,
		Role:         model.RoleCustomer,
	}

	if err := s.userRepo.Create(user); err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": email,
		})
		return nil, "", err
	}

	token, err := s.issueSession(user)
	if err != nil {
		logger.Error("Failed to issue session", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, "", err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return user, token, nil
}

func (s *authService) Login(email, password string) (*model.User, string, error) {
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, "", ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, "", err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"email":   email,
			"user_id": user.ID,
		})
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueSession(user)
	if err != nil {
		logger.Error("Failed to issue session", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, "", err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return user, token, nil
}

// LoginWithTempPassword signs the user in with a temporary password
// from the recovery flow. The credential is consumed on first use and
// the session carries a flag that blocks everything except picking a
// new password.
func (s *authService) LoginWithTempPassword(email, tempPassword string) (*model.User, string, error) {
	logger.Info("Temporary password login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	reset, err := s.resetRepo.FindLatestActiveByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Temporary password login failed: no active reset", map[string]interface{}{
				"email": email,
			})
			return nil, "", ErrTempPasswordInvalid
		}
		return nil, "", err
	}

	if reset.ExpiresAt.Before(time.Now()) {
		logger.Warn("Temporary password login failed: expired", map[string]interface{}{
			"email": email,
		})
		return nil, "", ErrTempPasswordExpired
	}

	if !util.VerifyPassword(reset.TempPasswordHash, tempPassword) {
		logger.Warn("Temporary password login failed: mismatch", map[string]interface{}{
			"email": email,
		})
		return nil, "", ErrTempPasswordInvalid
	}

	// Single use: consume the credential now. The row stays for the
	// audit trail.
	if err := s.resetRepo.MarkUsed(reset.ID); err != nil {
		return nil, "", err
	}

	user.RequiresPasswordChange = true
	if err := s.userRepo.Update(user); err != nil {
		return nil, "", err
	}

	token, err := s.issueSession(user)
	if err != nil {
		return nil, "", err
	}

	logger.Info("User logged in with temporary password", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, token, nil
}

// ForgotPassword issues a fresh temporary password and emails it to the
// account. An unknown email is treated as success so addresses cannot
// be probed. The temporary password is returned for the mail path only
// and must never reach an HTTP response.
func (s *authService) ForgotPassword(email string) (string, error) {
	logger.Info("Password recovery requested", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Password recovery for unknown email", map[string]interface{}{
				"email": email,
			})
			return "", nil
		}
		return "", err
	}

	// Only the newest temporary password stays valid
	if err := s.resetRepo.InvalidateByEmail(email); err != nil {
		return "", err
	}

	tempPassword, err := util.GenerateTempPassword()
	if err != nil {
		logger.Error("Failed to generate temporary password", err, map[string]interface{}{
			"email": email,
		})
		return "", err
	}

	hash, err := util.HashPassword(tempPassword)
	if err != nil {
		logger.Error("Failed to hash temporary password", err, map[string]interface{}{
			"email": email,
		})
		return "", err
	}

	reset := &model.PasswordReset{
		UserID:           user.ID,
		Email:            email,
		TempPasswordHash: hash,
		ExpiresAt:        time.Now().Add(tempPasswordTTL),
	}
	if err := s.resetRepo.Create(reset); err != nil {
		return "", err
	}

	go s.notifier.SendPasswordRecovery(user, tempPassword)

	logger.Info("Temporary password issued", map[string]interface{}{
		"user_id":    user.ID,
		"expires_at": reset.ExpiresAt,
	})
	return tempPassword, nil
}

func (s *authService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	logger.Info("Changing password", map[string]interface{}{
		"user_id": userID,
	})

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !s.verifyCurrentPassword(user, currentPassword) {
		logger.Warn("Password change failed: wrong current password", map[string]interface{}{
			"user_id": userID,
		})
		return ErrInvalidCredentials
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		logger.Error("Failed to hash new password", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	user.PasswordHash = hash
	user.RequiresPasswordChange = false
	if err := s.userRepo.Update(user); err != nil {
		return err
	}

	// Any outstanding temporary passwords die with the old credential
	if err := s.resetRepo.InvalidateByEmail(user.Email); err != nil {
		logger.Error("Failed to invalidate password resets after change", err, map[string]interface{}{
			"user_id": userID,
		})
	}

	logger.Info("Password changed successfully", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

// verifyCurrentPassword accepts the account password or, for a session
// opened with a temporary password, that temporary password again.
func (s *authService) verifyCurrentPassword(user *model.User, currentPassword string) bool {
	if util.VerifyPassword(user.PasswordHash, currentPassword) {
		return true
	}
	if !user.RequiresPasswordChange {
		return false
	}

	reset, err := s.resetRepo.FindLatestByEmail(user.Email)
	if err != nil {
		return false
	}
	return util.VerifyPassword(reset.TempPasswordHash, currentPassword)
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) UpdateProfile(userID uint, name, phone string) (*model.User, error) {
	logger.Info("Updating user profile", map[string]interface{}{
		"user_id": userID,
	})

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	updated := false
	if name != "" && name != user.Name {
		user.Name = name
		updated = true
	}
	if phone != "" && phone != user.Phone {
		user.Phone = phone
		updated = true
	}

	if !updated {
		return user, nil
	}

	if err := s.userRepo.Update(user); err != nil {
		logger.Error("Failed to update user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return user, nil
}
