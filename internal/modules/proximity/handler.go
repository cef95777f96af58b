package proximity

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"quartier-geo/internal/config"
	"quartier-geo/internal/models"
	"quartier-geo/pkg/utils"
)

// upgrader upgrades position feed requests to websocket connections.
// Origin checking is handled by the CORS layer in front of the router.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler exposes the proximity engine over HTTP plus the websocket
// position feed.
type Handler struct {
	manager  *Manager
	imprints ImprintRepositoryInterface
	geoCfg   config.GeoConfig
	logger   *zap.Logger
}

// NewHandler creates a proximity handler.
func NewHandler(manager *Manager, imprints ImprintRepositoryInterface, geoCfg config.GeoConfig, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, imprints: imprints, geoCfg: geoCfg, logger: logger}
}

// PositionFeed handles GET /ws/position. The connection is the session's
// live position source; it stays attached until the client disconnects.
func (h *Handler) PositionFeed(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	source := newWSPositionSource(conn, h.logger)
	engine := h.manager.Session(userID)
	engine.AttachSource(source)
	defer engine.DetachSource(source)

	h.logger.Info("position feed connected", zap.String("user_id", userID))
	source.run()
	h.logger.Info("position feed disconnected", zap.String("user_id", userID))
	return nil
}

// StartWatch handles POST /proximity/watch.
func (h *Handler) StartWatch(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := h.manager.Session(userID).StartWatching(); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, models.StatusResponse{Status: "watching"})
}

// StopWatch handles DELETE /proximity/watch.
func (h *Handler) StopWatch(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	h.manager.Session(userID).StopWatching()
	return utils.RespondWithJSON(c, http.StatusOK, models.StatusResponse{Status: "idle"})
}

// FindNearby handles GET /proximity/nearby?radius_m=.
func (h *Handler) FindNearby(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	radius := h.geoCfg.NearbyDefaultRadiusMeters
	if raw := c.QueryParam("radius_m"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			return utils.RespondWithError(c, http.StatusBadRequest, "radius_m must be a positive number")
		}
	}
	if radius > h.geoCfg.NearbyMaxRadiusMeters {
		radius = h.geoCfg.NearbyMaxRadiusMeters
	}

	nearby, err := h.manager.Session(userID).FindNearby(c.Request().Context(), radius)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, nearby)
}

// LogImprint handles POST /imprints.
func (h *Handler) LogImprint(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.LogImprintRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	imprint, err := h.manager.Session(userID).LogImprint(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, imprint)
}

// ListImprints handles GET /imprints.
func (h *Handler) ListImprints(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			return utils.RespondWithError(c, http.StatusBadRequest, "limit must be between 1 and 200")
		}
		limit = parsed
	}

	imprints, err := h.imprints.ListByUser(c.Request().Context(), userID, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, imprints)
}
