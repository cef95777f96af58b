package utils

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"quartier-geo/internal/models"
)

// GetUserIDFromContext returns the authenticated user's id placed in the
// echo context by the JWT middleware.
func GetUserIDFromContext(c echo.Context) (string, error) {
	userID, ok := c.Get("userID").(string)
	if !ok || userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, models.ErrorResponse{Message: "missing authenticated user"})
	}
	return userID, nil
}

// ExtractUserInfo returns the authenticated user's id and role.
func ExtractUserInfo(c echo.Context) (userID, role string, err error) {
	userID, err = GetUserIDFromContext(c)
	if err != nil {
		return "", "", err
	}
	role, _ = c.Get("userRole").(string)
	return userID, role, nil
}
