package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openschool/gradebook-api/internal/middleware"
	"github.com/openschool/gradebook-api/internal/models"
	"github.com/openschool/gradebook-api/internal/service"
	appErrors "github.com/openschool/gradebook-api/pkg/errors"
	"github.com/openschool/gradebook-api/pkg/response"
)

// CookieSettings controls how the session cookies are issued.
type CookieSettings struct {
	MaxAge time.Duration
	Secure bool
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
	metrics *service.MetricsService
	cookies CookieSettings
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, metrics *service.MetricsService, cookies CookieSettings) *AuthHandler {
	return &AuthHandler{service: svc, metrics: metrics, cookies: cookies}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate with username and password, issuing session cookies and an access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordLogin(false)
		response.Error(c, err)
		return
	}
	h.metrics.RecordLogin(true)

	maxAge := int(h.cookies.MaxAge.Seconds())
	c.SetCookie(middleware.CookieUserID, session.UserID, maxAge, "/", "", h.cookies.Secure, true)
	c.SetCookie(middleware.CookieUserRole, string(session.Role), maxAge, "/", "", h.cookies.Secure, true)

	response.JSON(c, http.StatusOK, session)
}

// Logout godoc
// @Summary End the current session
// @Description Clear the session cookies and redirect to the login page
// @Tags Authentication
// @Success 302
// @Router /logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.CookieUserID, "", -1, "/", "", h.cookies.Secure, true)
	c.SetCookie(middleware.CookieUserRole, "", -1, "/", "", h.cookies.Secure, true)
	c.Redirect(http.StatusFound, middleware.LoginPath)
}
