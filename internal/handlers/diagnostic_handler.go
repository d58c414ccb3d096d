package handlers

import (
	"net/http"

	"github.com/anonto42/campus-pulse/backend/internal/middleware"
	"github.com/anonto42/campus-pulse/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// DiagnosticHandler exposes the test-push endpoint
type DiagnosticHandler struct {
	diagnostics *services.Diagnostics
}

// NewDiagnosticHandler creates a new DiagnosticHandler
func NewDiagnosticHandler(diagnostics *services.Diagnostics) *DiagnosticHandler {
	return &DiagnosticHandler{diagnostics: diagnostics}
}

// RegisterDiagnosticRoutes registers the diagnostic route
func (h *DiagnosticHandler) RegisterDiagnosticRoutes(g *echo.Group) {
	g.POST("/notifications/test", h.SendTestNotification)
}

// SendTestNotification pushes a synthetic system notification to the caller's own devices
func (h *DiagnosticHandler) SendTestNotification(c echo.Context) error {
	result, err := h.diagnostics.SendTest(c.Request().Context(), middleware.UIDFromContext(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
