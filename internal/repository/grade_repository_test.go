package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/gradebook-api/internal/models"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
)

var gradeRows = []string{"id", "value", "student_id", "subject_id", "created_at", "student_name", "subject_name"}

func TestCreateGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades").WillReturnResult(sqlmock.NewResult(1, 1))

	grade := &models.Grade{Value: 4.5, StudentID: "u1", SubjectID: "s1"}
	err := repo.Create(context.Background(), grade)
	require.NoError(t, err)
	assert.NotEmpty(t, grade.ID)
	assert.False(t, grade.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGradeDanglingReference(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades").
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.Create(context.Background(), &models.Grade{Value: 3, StudentID: "missing", SubjectID: "s1"})
	assert.ErrorIs(t, err, appErrors.ErrUnknownReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGradeCheckViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades").
		WillReturnError(&pq.Error{Code: "23514"})

	err := repo.Create(context.Background(), &models.Grade{Value: 99, StudentID: "u1", SubjectID: "s1"})
	assert.ErrorIs(t, err, appErrors.ErrGradeOutOfRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllOrdersMostRecentFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(gradeRows).
		AddRow("g2", 5.0, "u1", "s1", now, "alice", "Math").
		AddRow("g1", 3.0, "u1", "s1", now.Add(-time.Hour), "alice", "Math")
	mock.ExpectQuery("SELECT .* FROM grades g\\s+JOIN users u .* ORDER BY g\\.created_at DESC, g\\.id DESC").
		WillReturnRows(rows)

	grades, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Equal(t, "g2", grades[0].ID)
	assert.Equal(t, "alice", grades[0].StudentName)
	assert.Equal(t, "Math", grades[0].SubjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(gradeRows).
		AddRow("g1", 4.0, "u1", "s1", now, "alice", "Math")
	mock.ExpectQuery("SELECT .* WHERE g\\.student_id = \\$1 ORDER BY g\\.created_at ASC, g\\.id ASC").
		WithArgs("u1").
		WillReturnRows(rows)

	grades, err := repo.ListForStudent(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, 4.0, grades[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageForStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(AVG(value), 0) FROM grades WHERE student_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4.0))

	avg, err := repo.AverageForStudent(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageForStudentEmptyIsZero(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(AVG(value), 0) FROM grades WHERE student_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0.0))

	avg, err := repo.AverageForStudent(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAveragesBySubjectIncludesEmptySubjects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := sqlmock.NewRows([]string{"subject_id", "subject_name", "average"}).
		AddRow("s1", "English", 0.0).
		AddRow("s2", "Math", 4.25)
	mock.ExpectQuery("SELECT s\\.id AS subject_id, s\\.name AS subject_name, COALESCE\\(AVG\\(g\\.value\\), 0\\) AS average").
		WithArgs("u1").
		WillReturnRows(rows)

	averages, err := repo.AveragesBySubject(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, averages, 2)
	assert.Equal(t, "English", averages[0].SubjectName)
	assert.Zero(t, averages[0].Average)
	assert.Equal(t, 4.25, averages[1].Average)
	assert.NoError(t, mock.ExpectationsWereMet())
}
