package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/campus-pulse/backend/internal/middleware"
	"github.com/anonto42/campus-pulse/backend/internal/models"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/anonto42/campus-pulse/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// DeviceHandler manages the caller's push tokens
type DeviceHandler struct {
	deviceRepository repositories.DeviceRepository
	now              func() time.Time
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(deviceRepo repositories.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{deviceRepository: deviceRepo, now: time.Now}
}

// RegisterDeviceRoutes registers device routes
func (h *DeviceHandler) RegisterDeviceRoutes(g *echo.Group) {
	g.GET("/devices", h.ListDevices)
	g.POST("/devices", h.RegisterDevice)
	g.DELETE("/devices/:token", h.RemoveDevice)
}

// RegisterDevice registers or refreshes a token for the caller
func (h *DeviceHandler) RegisterDevice(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	var req models.RegisterDeviceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	device := &models.Device{
		UID:        uid,
		FCMToken:   req.FCMToken,
		DeviceName: req.DeviceName,
		Platform:   req.Platform,
		LastSeenAt: h.now().UTC(),
	}
	if err := h.deviceRepository.Upsert(c.Request().Context(), device); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": device})
}

// ListDevices returns the caller's registered devices
func (h *DeviceHandler) ListDevices(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	devices, err := h.deviceRepository.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"devices": devices}})
}

// RemoveDevice unregisters a token, typically on sign-out
func (h *DeviceHandler) RemoveDevice(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	removed, err := h.deviceRepository.DeleteByToken(c.Request().Context(), uid, c.Param("token"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"removed": removed}})
}
