package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"faregate/internal/fare"
	"faregate/internal/repository"
	"faregate/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
// Every business-rule violation is a 4xx surfaced directly to the caller;
// only unexpected failures fall through to 500.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Unauthenticated / no valid session
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrNoActiveSession):
		return http.StatusUnauthorized

	// Every other business-rule violation is a 400: validation failures,
	// lifecycle conflicts, and route mismatches alike. The conductor
	// client distinguishes them by the error message, not the status.
	case errors.Is(err, service.ErrInvalidConductorID),
		errors.Is(err, service.ErrInvalidPIN),
		errors.Is(err, service.ErrInvalidTicketCode),
		errors.Is(err, service.ErrInvalidStationID),
		errors.Is(err, service.ErrInvalidFareDelta),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrUnknownAction),
		errors.Is(err, service.ErrStationNotOnRoute),
		errors.Is(err, service.ErrWrongRoute),
		errors.Is(err, service.ErrLoginInProgress),
		errors.Is(err, repository.ErrAlreadyBoarded),
		errors.Is(err, repository.ErrNotYetBoarded),
		errors.Is(err, repository.ErrAlreadyDroppedOff),
		errors.Is(err, repository.ErrDropoffAlreadyConfirmed),
		errors.Is(err, fare.ErrInvalidDistance):
		return http.StatusBadRequest

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
