package services

import (
	"errors"
	"net/http"

	"github.com/anonto42/campus-pulse/backend/internal/repositories"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate_limited")
	ErrNotFound        = repositories.ErrNotFound
	ErrInvalidEvent    = errors.New("invalid event")
	ErrSelfAction      = errors.New("actor is the recipient")
	ErrInvalidInput    = errors.New("invalid input")
)

// ErrorMap maps service errors to HTTP status codes
var ErrorMap = map[error]int{
	ErrUnauthenticated: http.StatusUnauthorized,
	ErrRateLimited:     http.StatusTooManyRequests,
	ErrNotFound:        http.StatusNotFound,
	ErrInvalidEvent:    http.StatusBadRequest,
	ErrInvalidInput:    http.StatusBadRequest,
}

// ErrorCodes are the machine-readable codes returned alongside the status
var ErrorCodes = map[error]string{
	ErrUnauthenticated: "unauthenticated",
	ErrRateLimited:     "rate_limited",
	ErrNotFound:        "not_found",
	ErrInvalidEvent:    "invalid_event",
	ErrInvalidInput:    "invalid_input",
}

// StatusFor resolves the status and code for err, unwrapping as needed
func StatusFor(err error) (int, string) {
	for target, status := range ErrorMap {
		if errors.Is(err, target) {
			return status, ErrorCodes[target]
		}
	}
	return http.StatusInternalServerError, "internal"
}
