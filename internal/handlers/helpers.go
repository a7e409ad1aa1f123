package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drivebridge/backend/internal/apperrors"
)

// MapError translates service-level error kinds into transport statuses.
func MapError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperrors.ErrAuthenticationFailed):
		return http.StatusUnauthorized, "Authentication failed"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway, "Upstream drive API error"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, msg := MapError(err)
	c.JSON(status, gin.H{"error": msg, "detail": err.Error()})
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
