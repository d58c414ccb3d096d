package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/middleware"
	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/anonto42/campus-pulse/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PreferencesHandler reads and updates the caller's push settings
type PreferencesHandler struct {
	preferencesRepository repositories.PreferencesRepository
	now                   func() time.Time
}

// NewPreferencesHandler creates a new PreferencesHandler
func NewPreferencesHandler(prefsRepo repositories.PreferencesRepository) *PreferencesHandler {
	return &PreferencesHandler{preferencesRepository: prefsRepo, now: time.Now}
}

// RegisterPreferencesRoutes registers preference routes
func (h *PreferencesHandler) RegisterPreferencesRoutes(g *echo.Group) {
	g.GET("/me/push-preferences", h.GetPreferences)
	g.PUT("/me/push-preferences", h.UpdatePreferences)
}

// GetPreferences returns the stored settings, or the all-enabled defaults
func (h *PreferencesHandler) GetPreferences(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	prefs, err := h.preferencesRepository.Get(c.Request().Context(), uid)
	if errors.Is(err, repositories.ErrNotFound) {
		prefs = models.DefaultPreferences(uid)
	} else if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": prefs})
}

// UpdatePreferences replaces the caller's settings
func (h *PreferencesHandler) UpdatePreferences(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	var req models.UpdatePreferencesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	prefs := &models.Preferences{
		UID:         uid,
		PushEnabled: *req.PushEnabled,
		PushTypes:   make(map[models.NotificationType]bool, len(req.PushTypes)),
		QuietHours:  req.QuietHours,
		UpdatedAt:   h.now().UTC(),
	}
	for t, enabled := range req.PushTypes {
		prefs.PushTypes[models.NotificationType(t)] = enabled
	}

	if err := h.preferencesRepository.Save(c.Request().Context(), prefs); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": prefs})
}
