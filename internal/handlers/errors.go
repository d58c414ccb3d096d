package handlers

import (
	"github.com/anonto42/campus-pulse/backend/internal/services"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respondError writes err as {success:false, code, message} with the status mapped from the service error table
func respondError(c echo.Context, err error) error {
	status, code := services.StatusFor(err)
	message := err.Error()
	if code == "internal" {
		zap.L().Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		message = "internal server error"
	}
	return c.JSON(status, echo.Map{
		"success": false,
		"code":    code,
		"message": message,
	})
}
