package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openschool/gradebook-api/internal/models"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
	"github.com/openschool/gradebook-api/pkg/security"
)

type userRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	List(ctx context.Context) ([]models.User, error)
}

type dashboardInvalidator interface {
	InvalidateDashboards(ctx context.Context) error
}

// CreateUserRequest represents the payload for creating accounts.
type CreateUserRequest struct {
	Username string          `json:"username" form:"username" validate:"required"`
	Password string          `json:"password" form:"password" validate:"required"`
	Role     models.UserRole `json:"role" form:"role" validate:"required"`
}

// ResetPasswordRequest rotates a user's password hash.
type ResetPasswordRequest struct {
	Password string `json:"password" form:"password" validate:"required"`
}

// UserService handles account management for the admin.
type UserService struct {
	repo      userRepository
	hasher    *security.Hasher
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, hasher *security.Hasher, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if hasher == nil {
		hasher = security.NewHasher(security.DefaultParams())
	}
	return &UserService{repo: repo, hasher: hasher, cache: cache, validator: validate, logger: logger}
}

// Create adds a new account. The username must be unused and the role must
// belong to the closed {student, teacher} set.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username, password and role are required")
	}

	if !req.Role.Valid() {
		return nil, appErrors.ErrInvalidRole
	}

	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.ErrDuplicateUsername
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username uniqueness")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
	}

	// The unique index still backs up the lookup above: a concurrent insert
	// of the same username surfaces as ErrDuplicateUsername here.
	if err := s.repo.Create(ctx, user); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.invalidate(ctx)
	return user, nil
}

// ResetPassword overwrites a user's password hash.
func (s *UserService) ResetPassword(ctx context.Context, userID string, req ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "password is required")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	return nil
}

// List returns every account except the requesting one, as the admin roster
// never shows the admin their own row.
func (s *UserService) List(ctx context.Context, excludeID string) ([]models.UserInfo, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	infos := make([]models.UserInfo, 0, len(users))
	for i := range users {
		if users[i].ID == excludeID {
			continue
		}
		infos = append(infos, users[i].Info())
	}
	return infos, nil
}

func (s *UserService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDashboards(ctx); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
