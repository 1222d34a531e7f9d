package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openschool/gradebook-api/internal/service"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
	"github.com/openschool/gradebook-api/pkg/response"
)

// GradeHandler wires HTTP endpoints to the grade and export services.
type GradeHandler struct {
	grades  *service.GradeService
	exports *service.ExportService
	metrics *service.MetricsService
}

// NewGradeHandler creates a new handler.
func NewGradeHandler(grades *service.GradeService, exports *service.ExportService, metrics *service.MetricsService) *GradeHandler {
	return &GradeHandler{grades: grades, exports: exports, metrics: metrics}
}

// Create godoc
// @Summary Record a grade
// @Description Record a grade value between 1 and 5 for a student in a subject
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.CreateGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var req service.CreateGradeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	grade, err := h.grades.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordGrade()

	response.Created(c, grade)
}

// ListForStudent godoc
// @Summary Grades for one student
// @Description List a student's grades in creation order, optionally filtered by subject
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Param subject_id query string false "Subject ID filter"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{id}/grades [get]
func (h *GradeHandler) ListForStudent(c *gin.Context) {
	studentID := c.Param("id")

	if subjectID := c.Query("subject_id"); subjectID != "" {
		grades, err := h.grades.ListForStudentAndSubject(c.Request.Context(), studentID, subjectID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, grades)
		return
	}

	grades, err := h.grades.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades)
}

// Export godoc
// @Summary Download the grade sheet
// @Description Export every recorded grade as CSV or PDF
// @Tags Grades
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", service.ExportFormatCSV)

	file, err := h.exports.GradeSheet(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
