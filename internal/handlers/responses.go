package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quartermaster/booking-backend/internal/models"
)

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is the standard message payload
type SuccessResponse struct {
	Message string `json:"message"`
}

// respondError maps domain errors to HTTP status codes and writes the
// standard error payload. Unknown errors become a generic 500 so internal
// details never leak to clients.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrAccessDenied):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrPriceMismatch),
		errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, models.ErrExternalService):
		status = http.StatusBadGateway
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": message})
}
