package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/gradebook-api/internal/models"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
)

func newExportFixture() *ExportService {
	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return NewExportService(&mockGradeRepo{grades: []models.Grade{
		{ID: "g1", Value: 4.5, StudentID: "u1", SubjectID: "s1", CreatedAt: created, StudentName: "alice", SubjectName: "Math"},
		{ID: "g2", Value: 3, StudentID: "u1", SubjectID: "s2", CreatedAt: created, StudentName: "alice", SubjectName: "History"},
	}}, nil)
}

func TestGradeSheetCSV(t *testing.T) {
	svc := newExportFixture()

	file, err := svc.GradeSheet(context.Background(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	body := string(file.Content)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student,Subject,Grade,Date", lines[0])
	assert.Contains(t, lines[1], "alice,Math,4.5,2026-03-14T09:00:00Z")
	assert.Contains(t, lines[2], "alice,History,3,")
}

func TestGradeSheetPDF(t *testing.T) {
	svc := newExportFixture()

	file, err := svc.GradeSheet(context.Background(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	require.NotEmpty(t, file.Content)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestGradeSheetUnknownFormat(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.GradeSheet(context.Background(), "xlsx")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGradeSheetEmpty(t *testing.T) {
	svc := NewExportService(&mockGradeRepo{}, nil)

	file, err := svc.GradeSheet(context.Background(), ExportFormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	assert.Len(t, lines, 1, "only the header remains when there are no grades")
}
