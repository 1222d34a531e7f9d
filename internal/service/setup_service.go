package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/openschool/gradebook-api/internal/models"
	"github.com/openschool/gradebook-api/pkg/config"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
	"github.com/openschool/gradebook-api/pkg/security"
)

// schema is applied idempotently. The grades CHECK and foreign keys are the
// storage-layer backstop behind the service-level validation.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('student', 'teacher')),
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS grades (
    id UUID PRIMARY KEY,
    value DOUBLE PRECISION NOT NULL CHECK (value >= 1 AND value <= 5),
    student_id UUID NOT NULL REFERENCES users (id),
    subject_id UUID NOT NULL REFERENCES subjects (id),
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_grades_student ON grades (student_id);
CREATE INDEX IF NOT EXISTS idx_grades_subject ON grades (subject_id);
CREATE INDEX IF NOT EXISTS idx_grades_created_at ON grades (created_at DESC);
`

// Demo student account seeded alongside the admin, as shipped installs
// expect one login that works out of the box.
const (
	demoStudentUsername = "user"
	demoStudentPassword = "user"
)

type setupUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type setupSubjectRepository interface {
	FindByName(ctx context.Context, name string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

// SetupRequest is the first-time setup payload.
type SetupRequest struct {
	Language      string `json:"language" form:"language"`
	GradingSystem string `json:"grading_system" form:"grading_system"`
	AdminUsername string `json:"admin_username" form:"admin_username" validate:"required"`
	AdminPassword string `json:"admin_password" form:"admin_password" validate:"required"`
}

// SetupService initializes the config file and storage, and re-applies the
// idempotent bootstrap on every start of an already configured install.
type SetupService struct {
	provider  *config.SchoolProvider
	db        *sqlx.DB
	users     setupUserRepository
	subjects  setupSubjectRepository
	hasher    *security.Hasher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSetupService creates a setup service.
func NewSetupService(provider *config.SchoolProvider, db *sqlx.DB, users setupUserRepository, subjects setupSubjectRepository, hasher *security.Hasher, validate *validator.Validate, logger *zap.Logger) *SetupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if hasher == nil {
		hasher = security.NewHasher(security.DefaultParams())
	}
	return &SetupService{provider: provider, db: db, users: users, subjects: subjects, hasher: hasher, validator: validate, logger: logger}
}

// Configured reports whether first-time setup has already run.
func (s *SetupService) Configured() bool {
	return s.provider.Exists()
}

// Run performs first-time setup: write config.json, apply the schema and
// seed the initial accounts and subjects. Refused once configured, so an
// unauthenticated caller cannot rotate the admin credentials later.
func (s *SetupService) Run(ctx context.Context, req SetupRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "admin username and password are required")
	}

	if s.provider.Exists() {
		return appErrors.Clone(appErrors.ErrForbidden, "setup has already been completed")
	}

	defaults := config.DefaultSchoolConfig()
	cfg := config.SchoolConfig{
		Language:      req.Language,
		GradingSystem: req.GradingSystem,
		AdminUsername: req.AdminUsername,
		AdminPassword: req.AdminPassword,
	}
	if cfg.Language == "" {
		cfg.Language = defaults.Language
	}
	if cfg.GradingSystem == "" {
		cfg.GradingSystem = defaults.GradingSystem
	}

	if err := s.provider.Save(cfg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write config file")
	}

	return s.Bootstrap(ctx)
}

// Bootstrap applies the schema and seeds the admin account, the demo student
// and the default subjects. Every step is idempotent; existing records are
// left untouched.
func (s *SetupService) Bootstrap(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply schema")
	}

	cfg := s.provider.Get()

	if err := s.ensureUser(ctx, cfg.AdminUsername, cfg.AdminPassword, models.RoleTeacher); err != nil {
		return err
	}
	if err := s.ensureUser(ctx, demoStudentUsername, demoStudentPassword, models.RoleStudent); err != nil {
		return err
	}

	for _, name := range config.DefaultSubjects {
		if err := s.ensureSubject(ctx, name); err != nil {
			return err
		}
	}

	s.logger.Info("bootstrap complete", zap.String("admin_username", cfg.AdminUsername))
	return nil
}

func (s *SetupService) ensureUser(ctx context.Context, username, password string, role models.UserRole) error {
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing user")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent bootstrap may have won the race; that is fine.
		if errors.Is(err, appErrors.ErrDuplicateUsername) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed user")
	}
	return nil
}

func (s *SetupService) ensureSubject(ctx context.Context, name string) error {
	_, err := s.subjects.FindByName(ctx, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing subject")
	}

	if err := s.subjects.Create(ctx, &models.Subject{Name: name}); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateSubject) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed subject")
	}
	return nil
}
