package models

import "time"

// Grade bounds for the 5-point grading system. Fractional values are allowed.
const (
	GradeMin = 1.0
	GradeMax = 5.0
)

// Grade is an immutable numeric fact linking a student and a subject. Grades
// are append-only: never updated or deleted.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	Value     float64   `db:"value" json:"value"`
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined display fields, populated by listing queries.
	StudentName string `db:"student_name" json:"student_name,omitempty"`
	SubjectName string `db:"subject_name" json:"subject_name,omitempty"`
}

// SubjectAverage carries a per-subject mean for a student. A student with no
// grades in the subject averages to exactly 0.
type SubjectAverage struct {
	SubjectID   string  `db:"subject_id" json:"subject_id"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	Average     float64 `db:"average" json:"average"`
}
