package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openschool/gradebook-api/internal/models"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
)

type gradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	ListForStudent(ctx context.Context, studentID string) ([]models.Grade, error)
	ListForSubject(ctx context.Context, subjectID string) ([]models.Grade, error)
	ListForStudentAndSubject(ctx context.Context, studentID, subjectID string) ([]models.Grade, error)
	ListAll(ctx context.Context) ([]models.Grade, error)
	AverageForStudent(ctx context.Context, studentID string) (float64, error)
	AverageForStudentAndSubject(ctx context.Context, studentID, subjectID string) (float64, error)
}

type gradeUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type gradeSubjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// CreateGradeRequest is the payload to record a grade. Value carries no
// required tag: zero is a submitted value like any other, and the bounds
// check classifies it as out of range.
type CreateGradeRequest struct {
	StudentID string  `json:"student_id" form:"student_id" validate:"required,uuid4"`
	SubjectID string  `json:"subject_id" form:"subject_id" validate:"required,uuid4"`
	Value     float64 `json:"value" form:"value"`
}

// GradeService validates and records grades and serves aggregations.
type GradeService struct {
	grades    gradeRepository
	users     gradeUserLookup
	subjects  gradeSubjectLookup
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService creates a grade service.
func NewGradeService(grades gradeRepository, users gradeUserLookup, subjects gradeSubjectLookup, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{grades: grades, users: users, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

// Create records a grade after validating the value domain and resolving
// both references. The stored record, including its assigned id and
// timestamp, is returned.
func (s *GradeService) Create(ctx context.Context, req CreateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student, subject and value are required")
	}

	if req.Value < models.GradeMin || req.Value > models.GradeMax {
		return nil, appErrors.ErrGradeOutOfRange
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnknownReference
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrUnknownReference, "grades can only be assigned to students")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnknownReference
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
	}

	grade := &models.Grade{
		Value:     req.Value,
		StudentID: student.ID,
		SubjectID: subject.ID,
	}
	if err := s.grades.Create(ctx, grade); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade")
	}
	grade.StudentName = student.Username
	grade.SubjectName = subject.Name

	s.invalidate(ctx)
	return grade, nil
}

// ListForStudent returns a student's grades in creation order.
func (s *GradeService) ListForStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	grades, err := s.grades.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// ListForStudentAndSubject returns one student's grades in one subject.
func (s *GradeService) ListForStudentAndSubject(ctx context.Context, studentID, subjectID string) ([]models.Grade, error) {
	grades, err := s.grades.ListForStudentAndSubject(ctx, studentID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// ListAll returns every grade, most recent first.
func (s *GradeService) ListAll(ctx context.Context) ([]models.Grade, error) {
	grades, err := s.grades.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// AverageForStudent returns the student's overall mean, 0 when gradeless.
func (s *GradeService) AverageForStudent(ctx context.Context, studentID string) (float64, error) {
	avg, err := s.grades.AverageForStudent(ctx, studentID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average")
	}
	return avg, nil
}

// AverageForStudentAndSubject scopes the mean to one subject.
func (s *GradeService) AverageForStudentAndSubject(ctx context.Context, studentID, subjectID string) (float64, error) {
	avg, err := s.grades.AverageForStudentAndSubject(ctx, studentID, subjectID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average")
	}
	return avg, nil
}

func (s *GradeService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDashboards(ctx); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
