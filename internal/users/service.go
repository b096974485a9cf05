// Package users owns account records, password key derivation, and the
// credential checks the token endpoint relies on.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/backend/internal/apperrors"
)

var (
	errMissingDatabase   = errors.New("users: database handle is required")
	errMissingIDProvider = errors.New("users: id provider is required")
)

// ServiceConfig describes the dependencies required by the user service.
type ServiceConfig struct {
	Database           *gorm.DB
	IDProvider         IDProvider
	PasswordIterations int
	Clock              func() time.Time
	Logger             *zap.Logger
}

// Service manages account creation, lookup, profile updates, and
// credential verification.
type Service struct {
	db         *gorm.DB
	idProvider IDProvider
	iterations int
	clock      func() time.Time
	logger     *zap.Logger
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	iterations := cfg.PasswordIterations
	if iterations <= 0 {
		iterations = DefaultPasswordIterations
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		idProvider: cfg.IDProvider,
		iterations: iterations,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Create registers a new account. The email is normalized before the
// uniqueness check; the salt is generated fresh and the key derived from it.
func (s *Service) Create(ctx context.Context, email, password, displayName string) (*User, error) {
	normalized := NormalizeEmail(email)
	if err := validateEmail(normalized); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	trimmedName := strings.TrimSpace(displayName)
	if trimmedName == "" || len(trimmedName) > maxDisplayNameLength {
		return nil, apperrors.ErrInvalidInputFormat.WithDetails("Display name must be between 1 and 50 characters")
	}

	salt, err := newPasswordSalt()
	if err != nil {
		return nil, err
	}
	key := DerivePasswordKey(password, salt, s.iterations)

	id, err := s.idProvider.NewID()
	if err != nil {
		return nil, fmt.Errorf("users: generating user id: %w", err)
	}

	user := &User{
		ID:           id,
		Email:        normalized,
		PasswordSalt: salt,
		PasswordKey:  key,
		IsActive:     true,
		DisplayName:  trimmedName,
		CreationDate: s.clock().UTC(),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing User
		err := tx.Where("email = ?", normalized).Take(&existing).Error
		if err == nil {
			return apperrors.ErrTakenLogin.WithDetails("This email is already taken")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("users: checking email uniqueness: %w", err)
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("users: creating user: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.logger.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

// GetByID returns the active account with the given id, or nil when the
// account is missing or deactivated. Callers translate nil to not-found.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("users: fetching user %s: %w", id, err)
	}
	if !user.IsActive {
		return nil, nil
	}
	return &user, nil
}

// GetByEmail returns the active account registered under the normalized
// email, or nil when missing or deactivated.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("users: fetching user by email: %w", err)
	}
	if !user.IsActive {
		return nil, nil
	}
	return &user, nil
}

// Update changes the display name of an active account. Only the display
// name is mutable through the public surface.
func (s *Service) Update(ctx context.Context, id, displayName string) (*User, error) {
	trimmedName := strings.TrimSpace(displayName)
	if trimmedName == "" || len(trimmedName) > maxDisplayNameLength {
		return nil, apperrors.ErrInvalidInputFormat.WithDetails("Display name must be between 1 and 50 characters")
	}

	var user User
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrContentNotFound
		}
		if err != nil {
			return fmt.Errorf("users: fetching user %s: %w", id, err)
		}
		if !user.IsActive {
			return apperrors.ErrContentNotFound
		}
		if err := tx.Model(&User{}).Where("id = ?", id).Update("display_name", trimmedName).Error; err != nil {
			return fmt.Errorf("users: updating user %s: %w", id, err)
		}
		user.DisplayName = trimmedName
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &user, nil
}

// Deactivate soft-deletes an account. The record stays in place so article
// authorship remains resolvable, but the account can no longer authenticate
// or be read through the public surface.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("users: deactivating user %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrContentNotFound
	}
	s.logger.Info("user deactivated", zap.String("user_id", id))
	return nil
}

// CheckCredentials verifies an email+password pair against the stored key.
// Unknown emails, deactivated accounts, and wrong passwords all report
// (nil, false) without distinguishing which check failed.
func (s *Service) CheckCredentials(ctx context.Context, email, password string) (*User, bool, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("users: fetching user by email: %w", err)
	}
	if !user.IsActive {
		return nil, false, nil
	}

	derived := DerivePasswordKey(password, user.PasswordSalt, s.iterations)
	if !PasswordKeysEqual(derived, user.PasswordKey) {
		return nil, false, nil
	}
	return &user, true, nil
}

func validateEmail(normalized string) error {
	if normalized == "" || len(normalized) > maxEmailLength {
		return apperrors.ErrInvalidInputFormat.WithDetails("Invalid email address")
	}
	parsed, err := mail.ParseAddress(normalized)
	if err != nil || parsed.Address != normalized {
		return apperrors.ErrInvalidInputFormat.WithDetails("Invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return apperrors.ErrInvalidInputFormat.WithDetails("Password must be between 8 and 20 characters")
	}
	return nil
}
