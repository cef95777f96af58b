package utils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"quartier-geo/internal/models"
)

// RespondWithJSON writes payload as a JSON response with the given status.
func RespondWithJSON(c echo.Context, status int, payload interface{}) error {
	return c.JSON(status, payload)
}

// RespondWithError writes a uniform JSON error body.
func RespondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorResponse{Message: message})
}

// HandleServiceError maps sentinel service errors onto HTTP statuses.
// Anything unrecognized becomes a 500 with a generic message.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, models.ErrNotAuthorized):
		return RespondWithError(c, http.StatusForbidden, "you do not have access to this cluster")
	case errors.Is(err, models.ErrNoConfirmedUnits):
		return RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrNoTimeBlocks):
		return RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrLocationPermissionDenied):
		return RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrLocationUnavailable):
		return RespondWithError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, models.ErrPositionTimeout):
		return RespondWithError(c, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, models.ErrAlreadyWatching):
		return RespondWithError(c, http.StatusConflict, err.Error())
	default:
		return RespondWithError(c, http.StatusInternalServerError, "internal server error")
	}
}
