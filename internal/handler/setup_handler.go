package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openschool/gradebook-api/internal/service"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
	"github.com/openschool/gradebook-api/pkg/response"
)

// SetupHandler exposes the first-time setup endpoint.
type SetupHandler struct {
	service *service.SetupService
}

// NewSetupHandler creates a new handler.
func NewSetupHandler(svc *service.SetupService) *SetupHandler {
	return &SetupHandler{service: svc}
}

// Run godoc
// @Summary First-time setup
// @Description Write the school config, initialize storage and seed the default accounts
// @Tags Setup
// @Accept json
// @Produce json
// @Param payload body service.SetupRequest true "Setup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /setup [post]
func (h *SetupHandler) Run(c *gin.Context) {
	var req service.SetupRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid setup payload"))
		return
	}

	if err := h.service.Run(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"configured": true})
}
