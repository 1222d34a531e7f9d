package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openschool/gradebook-api/internal/middleware"
	"github.com/openschool/gradebook-api/internal/models"
	"github.com/openschool/gradebook-api/internal/service"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
	"github.com/openschool/gradebook-api/pkg/response"
)

// DashboardHandler serves the role-specific landing view.
type DashboardHandler struct {
	service  *service.DashboardService
	setup    *service.SetupService
	resolver *service.AdminResolver
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService, setup *service.SetupService, resolver *service.AdminResolver) *DashboardHandler {
	return &DashboardHandler{service: svc, setup: setup, resolver: resolver}
}

// Show godoc
// @Summary Role-specific dashboard
// @Description Teachers get the full grade book and roster, students their own grades and averages
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router / [get]
func (h *DashboardHandler) Show(c *gin.Context) {
	if !h.setup.Configured() {
		response.JSON(c, http.StatusOK, gin.H{"setup_required": true})
		return
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, middleware.LoginPath)
		return
	}

	switch user.Role {
	case models.RoleTeacher:
		dashboard, err := h.service.Teacher(c.Request.Context(), h.resolver.IsAdmin(user))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, dashboard)
	case models.RoleStudent:
		dashboard, err := h.service.Student(c.Request.Context(), user.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, dashboard)
	default:
		response.Error(c, appErrors.ErrForbidden)
	}
}
