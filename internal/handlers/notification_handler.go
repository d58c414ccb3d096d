package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/anonto42/campus-pulse/backend/internal/middleware"
	"github.com/anonto42/campus-pulse/backend/internal/repositories"
	"github.com/anonto42/campus-pulse/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler serves the caller's notification feed and its read/archive flags
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notificationRepository: notifRepo}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/:id/archive", h.Archive)
}

// GetNotifications returns paginated notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	notifications, total, err := h.notificationRepository.ListByRecipient(c.Request().Context(), uid, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": notifications,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

// GetUnreadCount returns the number of open notifications
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	count, err := h.notificationRepository.GetUnreadCount(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkAsRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	if err := h.notificationRepository.MarkAsRead(c.Request().Context(), uid, c.Param("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// MarkAllAsRead marks all of the caller's notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	if err := h.notificationRepository.MarkAllAsRead(c.Request().Context(), uid); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// Archive hides one of the caller's notifications from the feed
func (h *NotificationHandler) Archive(c echo.Context) error {
	uid := middleware.UIDFromContext(c)
	if uid == "" {
		return respondError(c, services.ErrUnauthenticated)
	}

	if err := h.notificationRepository.Archive(c.Request().Context(), uid, c.Param("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}
