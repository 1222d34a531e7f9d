package models

// TeacherDashboard is the view data for the teacher landing page: every grade
// in the book (most recent first) plus the roster needed by the grade form.
type TeacherDashboard struct {
	Grades   []Grade    `json:"grades"`
	Students []UserInfo `json:"students"`
	Subjects []Subject  `json:"subjects"`
	IsAdmin  bool       `json:"is_admin"`
}

// StudentDashboard is the view data for a student's own page.
type StudentDashboard struct {
	Grades          []Grade          `json:"grades"`
	Average         float64          `json:"average"`
	SubjectAverages []SubjectAverage `json:"subject_averages"`
	Subjects        []Subject        `json:"subjects"`
}
