package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/gradebook-api/internal/models"
	"github.com/openschool/gradebook-api/internal/repository"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
)

type mockSubjectList struct {
	subjects []models.Subject
}

func (m *mockSubjectList) List(ctx context.Context) ([]models.Subject, error) {
	return m.subjects, nil
}

type mockRoleList struct {
	students []models.User
}

func (m *mockRoleList) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	return m.students, nil
}

// memoryCache mimics the redis-backed cache repository with a map.
type memoryCache struct {
	entries map[string][]byte
	hits    int
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.sets++
	return nil
}

func newDashboardFixture(cache *memoryCache) (*DashboardService, *mockGradeRepo, string) {
	studentID := uuid.NewString()
	grades := &mockGradeRepo{grades: []models.Grade{
		{ID: "g1", Value: 3, StudentID: studentID, SubjectID: "s1", StudentName: "alice", SubjectName: "Math"},
		{ID: "g2", Value: 5, StudentID: studentID, SubjectID: "s1", StudentName: "alice", SubjectName: "Math"},
	}}
	users := &mockRoleList{students: []models.User{
		{ID: studentID, Username: "alice", Role: models.RoleStudent},
	}}
	subjects := &mockSubjectList{subjects: []models.Subject{{ID: "s1", Name: "Math"}}}
	svc := NewDashboardService(grades, users, subjects, cache, nil, nil, time.Minute)
	return svc, grades, studentID
}

func (m *mockGradeRepo) AveragesBySubject(ctx context.Context, studentID string) ([]models.SubjectAverage, error) {
	sum, n := 0.0, 0
	for _, g := range m.grades {
		if g.StudentID == studentID {
			sum += g.Value
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}
	return []models.SubjectAverage{{SubjectID: "s1", SubjectName: "Math", Average: avg}}, nil
}

func TestTeacherDashboard(t *testing.T) {
	svc, _, _ := newDashboardFixture(newMemoryCache())

	dashboard, err := svc.Teacher(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, dashboard.Grades, 2)
	assert.Len(t, dashboard.Students, 1)
	assert.Len(t, dashboard.Subjects, 1)
	assert.False(t, dashboard.IsAdmin)
}

func TestTeacherDashboardAdminFlagNotCached(t *testing.T) {
	cache := newMemoryCache()
	svc, _, _ := newDashboardFixture(cache)

	admin, err := svc.Teacher(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, 1, cache.sets)

	// Second call is served from the cache but carries this viewer's flag.
	plain, err := svc.Teacher(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, plain.IsAdmin)
	assert.Equal(t, 1, cache.hits)
}

func TestStudentDashboard(t *testing.T) {
	svc, _, studentID := newDashboardFixture(newMemoryCache())

	dashboard, err := svc.Student(context.Background(), studentID)
	require.NoError(t, err)
	assert.Len(t, dashboard.Grades, 2)
	assert.InDelta(t, 4.0, dashboard.Average, 1e-9)
	require.Len(t, dashboard.SubjectAverages, 1)
	assert.InDelta(t, 4.0, dashboard.SubjectAverages[0].Average, 1e-9)
}

func TestStudentDashboardCachedPerStudent(t *testing.T) {
	cache := newMemoryCache()
	svc, grades, studentID := newDashboardFixture(cache)

	first, err := svc.Student(context.Background(), studentID)
	require.NoError(t, err)

	// Mutating the store without invalidation leaves the cached view intact.
	grades.grades = nil
	second, err := svc.Student(context.Background(), studentID)
	require.NoError(t, err)
	assert.Equal(t, len(first.Grades), len(second.Grades))
	assert.Equal(t, 1, cache.hits)

	// A different student never sees someone else's entry.
	otherID := uuid.NewString()
	other, err := svc.Student(context.Background(), otherID)
	require.NoError(t, err)
	assert.Empty(t, other.Grades)
	assert.Contains(t, cache.entries, repository.CacheKeyStudentDashboard(studentID))
	assert.Contains(t, cache.entries, repository.CacheKeyStudentDashboard(otherID))
}

func TestDashboardWithoutCache(t *testing.T) {
	studentID := uuid.NewString()
	grades := &mockGradeRepo{}
	users := &mockRoleList{}
	subjects := &mockSubjectList{}
	svc := NewDashboardService(grades, users, subjects, nil, nil, nil, 0)

	_, err := svc.Teacher(context.Background(), false)
	assert.NoError(t, err)
	_, err = svc.Student(context.Background(), studentID)
	assert.NoError(t, err)
}
