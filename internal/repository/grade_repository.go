package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openschool/gradebook-api/internal/models"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
)

const gradeColumns = `g.id, g.value, g.student_id, g.subject_id, g.created_at, u.username AS student_name, s.name AS subject_name`

const gradeJoins = `FROM grades g
        JOIN users u ON u.id = g.student_id
        JOIN subjects s ON s.id = g.subject_id`

// GradeRepository handles persistence of the append-only grade log.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create inserts a grade, stamping id and creation time. The table's CHECK
// and foreign keys back up the service-level validation: a dangling student
// or subject id surfaces as ErrUnknownReference, an out-of-range value that
// slipped past the boundary as ErrGradeOutOfRange.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO grades (id, value, student_id, subject_id, created_at) VALUES (:id, :value, :student_id, :subject_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return appErrors.ErrUnknownReference
		}
		if isPQError(err, pqCheckViolation) {
			return appErrors.ErrGradeOutOfRange
		}
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// ListForStudent returns a student's grades in creation order.
func (r *GradeRepository) ListForStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE g.student_id = $1 ORDER BY g.created_at ASC, g.id ASC`, gradeColumns, gradeJoins)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list grades for student: %w", err)
	}
	return grades, nil
}

// ListForSubject returns a subject's grades in creation order.
func (r *GradeRepository) ListForSubject(ctx context.Context, subjectID string) ([]models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE g.subject_id = $1 ORDER BY g.created_at ASC, g.id ASC`, gradeColumns, gradeJoins)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, subjectID); err != nil {
		return nil, fmt.Errorf("list grades for subject: %w", err)
	}
	return grades, nil
}

// ListForStudentAndSubject returns a student's grades in one subject.
func (r *GradeRepository) ListForStudentAndSubject(ctx context.Context, studentID, subjectID string) ([]models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE g.student_id = $1 AND g.subject_id = $2 ORDER BY g.created_at ASC, g.id ASC`, gradeColumns, gradeJoins)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, studentID, subjectID); err != nil {
		return nil, fmt.Errorf("list grades for student and subject: %w", err)
	}
	return grades, nil
}

// ListAll returns every grade, most recent first. The teacher dashboard
// depends on this ordering; ties break on id for determinism.
func (r *GradeRepository) ListAll(ctx context.Context) ([]models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s %s ORDER BY g.created_at DESC, g.id DESC`, gradeColumns, gradeJoins)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query); err != nil {
		return nil, fmt.Errorf("list all grades: %w", err)
	}
	return grades, nil
}

// AverageForStudent returns the arithmetic mean of a student's grades, or
// exactly 0 when there are none.
func (r *GradeRepository) AverageForStudent(ctx context.Context, studentID string) (float64, error) {
	const query = `SELECT COALESCE(AVG(value), 0) FROM grades WHERE student_id = $1`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, studentID); err != nil {
		return 0, fmt.Errorf("average for student: %w", err)
	}
	return avg, nil
}

// AverageForStudentAndSubject scopes AverageForStudent to one subject.
func (r *GradeRepository) AverageForStudentAndSubject(ctx context.Context, studentID, subjectID string) (float64, error) {
	const query = `SELECT COALESCE(AVG(value), 0) FROM grades WHERE student_id = $1 AND subject_id = $2`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, studentID, subjectID); err != nil {
		return 0, fmt.Errorf("average for student and subject: %w", err)
	}
	return avg, nil
}

// AveragesBySubject returns one row per subject with the student's mean in
// it, zero where the student has no grades.
func (r *GradeRepository) AveragesBySubject(ctx context.Context, studentID string) ([]models.SubjectAverage, error) {
	const query = `SELECT s.id AS subject_id, s.name AS subject_name, COALESCE(AVG(g.value), 0) AS average
        FROM subjects s
        LEFT JOIN grades g ON g.subject_id = s.id AND g.student_id = $1
        GROUP BY s.id, s.name
        ORDER BY s.name ASC`
	var averages []models.SubjectAverage
	if err := r.db.SelectContext(ctx, &averages, query, studentID); err != nil {
		return nil, fmt.Errorf("averages by subject: %w", err)
	}
	return averages, nil
}
