package privacy

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"quartier-geo/internal/models"
	"quartier-geo/pkg/utils"
)

// Handler exposes the privacy engine over HTTP.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a privacy handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// ListZones handles GET /geo/zones.
func (h *Handler) ListZones(c echo.Context) error {
	return utils.RespondWithJSON(c, http.StatusOK, h.svc.Zones(c.Request().Context()))
}

// ResolveZone handles GET /geo/zones/resolve?lat=&lon=.
func (h *Handler) ResolveZone(c echo.Context) error {
	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return utils.RespondWithError(c, http.StatusBadRequest, "lat must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return utils.RespondWithError(c, http.StatusBadRequest, "lon must be a number between -180 and 180")
	}

	res := h.svc.ResolveZone(c.Request().Context(), models.Coordinate{Latitude: lat, Longitude: lon})
	return utils.RespondWithJSON(c, http.StatusOK, res)
}

// Fuzz handles POST /geo/fuzz.
func (h *Handler) Fuzz(c echo.Context) error {
	var req models.FuzzRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	fuzzy := h.svc.Fuzz(models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}, req.RadiusMeters)
	return utils.RespondWithJSON(c, http.StatusOK, fuzzy)
}
