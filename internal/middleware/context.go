package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// UIDKey is the echo context key holding the authenticated caller's uid
const UIDKey = "uid"

// UIDFromContext returns the authenticated uid, or "" when the request is anonymous
func UIDFromContext(c echo.Context) string {
	uid, _ := c.Get(UIDKey).(string)
	return uid
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return parts[1], nil
}
