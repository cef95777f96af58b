package cluster

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"quartier-geo/pkg/utils"
)

// Handler exposes the optimizer over HTTP.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a cluster handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// Optimize handles POST /clusters/:clusterId/optimize.
func (h *Handler) Optimize(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	clusterID := c.Param("clusterId")
	if clusterID == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "missing cluster id")
	}

	result, err := h.svc.Optimize(c.Request().Context(), clusterID, userID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, result)
}

// GetSchedule handles GET /clusters/:clusterId/schedule.
func (h *Handler) GetSchedule(c echo.Context) error {
	if _, err := utils.GetUserIDFromContext(c); err != nil {
		return err
	}

	clusterID := c.Param("clusterId")
	if clusterID == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "missing cluster id")
	}

	result, err := h.svc.Schedule(c.Request().Context(), clusterID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, result)
}
