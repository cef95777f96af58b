package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"quartier-geo/internal/api/middleware"
	"quartier-geo/internal/modules/cluster"
	"quartier-geo/internal/modules/privacy"
	"quartier-geo/internal/modules/proximity"
)

// SetupRoutes wires every endpoint of the service.
func SetupRoutes(
	e *echo.Echo,
	jwtSecret string,
	privacyHandler *privacy.Handler,
	proximityHandler *proximity.Handler,
	clusterHandler *cluster.Handler,
) {
	authMiddleware := middleware.JWTAuth(jwtSecret)

	// --- Public Routes ---
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Location Privacy ---
	geoGroup := e.Group("/geo", authMiddleware)
	{
		geoGroup.GET("/zones", privacyHandler.ListZones)
		geoGroup.GET("/zones/resolve", privacyHandler.ResolveZone)
		geoGroup.POST("/fuzz", privacyHandler.Fuzz)
	}

	// --- Proximity & Imprints ---
	e.GET("/ws/position", proximityHandler.PositionFeed, authMiddleware)

	proximityGroup := e.Group("/proximity", authMiddleware)
	{
		proximityGroup.POST("/watch", proximityHandler.StartWatch)
		proximityGroup.DELETE("/watch", proximityHandler.StopWatch)
		proximityGroup.GET("/nearby", proximityHandler.FindNearby)
	}

	imprintGroup := e.Group("/imprints", authMiddleware)
	{
		imprintGroup.POST("", proximityHandler.LogImprint)
		imprintGroup.GET("", proximityHandler.ListImprints)
	}

	// --- Cluster Scheduling ---
	clusterGroup := e.Group("/clusters", authMiddleware)
	{
		clusterGroup.POST("/:clusterId/optimize", clusterHandler.Optimize)
		clusterGroup.GET("/:clusterId/schedule", clusterHandler.GetSchedule)
	}
}
