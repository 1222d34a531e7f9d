package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/openschool/gradebook-api/internal/models"
	"github.com/openschool/gradebook-api/internal/repository"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
)

type dashboardGradeRepository interface {
	ListAll(ctx context.Context) ([]models.Grade, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.Grade, error)
	AverageForStudent(ctx context.Context, studentID string) (float64, error)
	AveragesBySubject(ctx context.Context, studentID string) ([]models.SubjectAverage, error)
}

type dashboardUserRepository interface {
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

type dashboardSubjectRepository interface {
	List(ctx context.Context) ([]models.Subject, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService assembles role-appropriate view data. Assembled views are
// cached; writers invalidate through the cache repository.
type DashboardService struct {
	grades   dashboardGradeRepository
	users    dashboardUserRepository
	subjects dashboardSubjectRepository
	cache    dashboardCache
	metrics  *MetricsService
	logger   *zap.Logger
	ttl      time.Duration
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(grades dashboardGradeRepository, users dashboardUserRepository, subjects dashboardSubjectRepository, cache dashboardCache, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{grades: grades, users: users, subjects: subjects, cache: cache, metrics: metrics, logger: logger, ttl: ttl}
}

// Teacher returns the full grade book view. The cached entry is shared by
// all teachers; the admin flag is per-viewer and applied after the fetch.
func (s *DashboardService) Teacher(ctx context.Context, isAdmin bool) (*models.TeacherDashboard, error) {
	var dashboard models.TeacherDashboard
	if s.lookup(ctx, repository.CacheKeyTeacherDashboard, &dashboard) {
		dashboard.IsAdmin = isAdmin
		return &dashboard, nil
	}

	grades, err := s.grades.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	students, err := s.users.ListByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	infos := make([]models.UserInfo, 0, len(students))
	for i := range students {
		infos = append(infos, students[i].Info())
	}

	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	dashboard = models.TeacherDashboard{Grades: grades, Students: infos, Subjects: subjects}
	s.store(ctx, repository.CacheKeyTeacherDashboard, &dashboard)

	dashboard.IsAdmin = isAdmin
	return &dashboard, nil
}

// Student returns a student's own view: grades, overall average and the
// per-subject breakdown.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*models.StudentDashboard, error) {
	key := repository.CacheKeyStudentDashboard(studentID)

	var dashboard models.StudentDashboard
	if s.lookup(ctx, key, &dashboard) {
		return &dashboard, nil
	}

	grades, err := s.grades.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	average, err := s.grades.AverageForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average")
	}

	subjectAverages, err := s.grades.AveragesBySubject(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute subject averages")
	}

	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	dashboard = models.StudentDashboard{
		Grades:          grades,
		Average:         average,
		SubjectAverages: subjectAverages,
		Subjects:        subjects,
	}
	s.store(ctx, key, &dashboard)
	return &dashboard, nil
}

func (s *DashboardService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	start := time.Now()
	err := s.cache.Get(ctx, key, dest)
	hit := err == nil
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, time.Since(start))
	}
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}
	return hit
}

func (s *DashboardService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
