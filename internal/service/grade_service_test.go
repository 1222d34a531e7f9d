package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/gradebook-api/internal/models"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
)

type mockGradeRepo struct {
	grades    []models.Grade
	createErr error
	listErr   error
}

func (m *mockGradeRepo) Create(ctx context.Context, grade *models.Grade) error {
	if m.createErr != nil {
		return m.createErr
	}
	grade.ID = uuid.NewString()
	grade.CreatedAt = time.Now().UTC()
	m.grades = append(m.grades, *grade)
	return nil
}

func (m *mockGradeRepo) ListForStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Grade
	for _, g := range m.grades {
		if g.StudentID == studentID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGradeRepo) ListForSubject(ctx context.Context, subjectID string) ([]models.Grade, error) {
	var out []models.Grade
	for _, g := range m.grades {
		if g.SubjectID == subjectID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGradeRepo) ListForStudentAndSubject(ctx context.Context, studentID, subjectID string) ([]models.Grade, error) {
	var out []models.Grade
	for _, g := range m.grades {
		if g.StudentID == studentID && g.SubjectID == subjectID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGradeRepo) ListAll(ctx context.Context) ([]models.Grade, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.grades, nil
}

func (m *mockGradeRepo) AverageForStudent(ctx context.Context, studentID string) (float64, error) {
	sum, n := 0.0, 0
	for _, g := range m.grades {
		if g.StudentID == studentID {
			sum += g.Value
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (m *mockGradeRepo) AverageForStudentAndSubject(ctx context.Context, studentID, subjectID string) (float64, error) {
	sum, n := 0.0, 0
	for _, g := range m.grades {
		if g.StudentID == studentID && g.SubjectID == subjectID {
			sum += g.Value
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

type mockUserLookup struct {
	users map[string]*models.User
}

func (m *mockUserLookup) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type mockSubjectLookup struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectLookup) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := m.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

type mockInvalidator struct {
	calls int
	err   error
}

func (m *mockInvalidator) InvalidateDashboards(ctx context.Context) error {
	m.calls++
	return m.err
}

type gradeFixture struct {
	svc       *GradeService
	repo      *mockGradeRepo
	cache     *mockInvalidator
	studentID string
	subjectID string
}

func newGradeFixture() *gradeFixture {
	studentID := uuid.NewString()
	subjectID := uuid.NewString()
	repo := &mockGradeRepo{}
	cache := &mockInvalidator{}
	users := &mockUserLookup{users: map[string]*models.User{
		studentID: {ID: studentID, Username: "alice", Role: models.RoleStudent},
	}}
	subjects := &mockSubjectLookup{subjects: map[string]*models.Subject{
		subjectID: {ID: subjectID, Name: "Math"},
	}}
	return &gradeFixture{
		svc:       NewGradeService(repo, users, subjects, cache, nil, nil),
		repo:      repo,
		cache:     cache,
		studentID: studentID,
		subjectID: subjectID,
	}
}

func TestCreateGradeBounds(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		ok    bool
	}{
		{"minimum", 1, true},
		{"maximum", 5, true},
		{"middle", 3.5, true},
		{"zero", 0, false},
		{"below minimum", 0.999, false},
		{"above maximum", 5.001, false},
		{"negative", -2, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newGradeFixture()
			_, err := f.svc.Create(context.Background(), CreateGradeRequest{
				StudentID: f.studentID,
				SubjectID: f.subjectID,
				Value:     tc.value,
			})
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, appErrors.ErrGradeOutOfRange)
				assert.Empty(t, f.repo.grades, "rejected grade must not be stored")
			}
		})
	}
}

func TestCreateGradeResolvesNames(t *testing.T) {
	f := newGradeFixture()

	grade, err := f.svc.Create(context.Background(), CreateGradeRequest{
		StudentID: f.studentID,
		SubjectID: f.subjectID,
		Value:     4,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, grade.ID)
	assert.Equal(t, "alice", grade.StudentName)
	assert.Equal(t, "Math", grade.SubjectName)
	assert.Equal(t, 1, f.cache.calls, "write must invalidate the dashboard cache")
}

func TestCreateGradeUnknownStudent(t *testing.T) {
	f := newGradeFixture()

	_, err := f.svc.Create(context.Background(), CreateGradeRequest{
		StudentID: uuid.NewString(),
		SubjectID: f.subjectID,
		Value:     3,
	})
	assert.ErrorIs(t, err, appErrors.ErrUnknownReference)
}

func TestCreateGradeUnknownSubject(t *testing.T) {
	f := newGradeFixture()

	_, err := f.svc.Create(context.Background(), CreateGradeRequest{
		StudentID: f.studentID,
		SubjectID: uuid.NewString(),
		Value:     3,
	})
	assert.ErrorIs(t, err, appErrors.ErrUnknownReference)
}

func TestCreateGradeRejectsTeacherTarget(t *testing.T) {
	f := newGradeFixture()
	teacherID := uuid.NewString()
	f.svc.users.(*mockUserLookup).users[teacherID] = &models.User{
		ID: teacherID, Username: "mr-smith", Role: models.RoleTeacher,
	}

	_, err := f.svc.Create(context.Background(), CreateGradeRequest{
		StudentID: teacherID,
		SubjectID: f.subjectID,
		Value:     3,
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnknownReference.Code, appErr.Code)
}

func TestAverageForStudent(t *testing.T) {
	f := newGradeFixture()

	for _, v := range []float64{3, 4, 5} {
		_, err := f.svc.Create(context.Background(), CreateGradeRequest{
			StudentID: f.studentID,
			SubjectID: f.subjectID,
			Value:     v,
		})
		require.NoError(t, err)
	}

	avg, err := f.svc.AverageForStudent(context.Background(), f.studentID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 1e-9)
}

func TestAverageForStudentEmpty(t *testing.T) {
	f := newGradeFixture()

	avg, err := f.svc.AverageForStudent(context.Background(), f.studentID)
	require.NoError(t, err)
	assert.Zero(t, avg, "no grades must average to exactly zero, not an error")
}
