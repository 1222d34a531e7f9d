package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/openschool/gradebook-api/internal/models"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
	"github.com/openschool/gradebook-api/pkg/export"
)

// Export formats supported for the grade sheet download.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type exportGradeRepository interface {
	ListAll(ctx context.Context) ([]models.Grade, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders the grade sheet for download.
type ExportService struct {
	grades exportGradeRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService creates an export service.
func NewExportService(grades exportGradeRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		grades: grades,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// GradeSheet renders every grade (most recent first) in the requested format.
func (s *ExportService) GradeSheet(ctx context.Context, format string) (*ExportFile, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	grades, err := s.grades.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	table := export.Table{
		Title:   "Grade sheet",
		Columns: []string{"Student", "Subject", "Grade", "Date"},
		Rows:    make([][]string, 0, len(grades)),
	}
	for i := range grades {
		table.Rows = append(table.Rows, []string{
			grades[i].StudentName,
			grades[i].SubjectName,
			strconv.FormatFloat(grades[i].Value, 'f', -1, 64),
			grades[i].CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Content: content, ContentType: "text/csv", Filename: fmt.Sprintf("grades-%s.csv", stamp)}, nil
	default:
		content, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Content: content, ContentType: "application/pdf", Filename: fmt.Sprintf("grades-%s.pdf", stamp)}, nil
	}
}
