package api

import (
	"github.com/gin-gonic/gin"
	"github.com/irfndi/astro-snapshot-go/internal/api/handlers"
	"github.com/irfndi/astro-snapshot-go/internal/middleware"
	"github.com/irfndi/astro-snapshot-go/internal/services"
	"github.com/sirupsen/logrus"
)

// Dependencies wires the HTTP surface to the snapshot cache and health
// probes.
type Dependencies struct {
	Cache       *services.SnapshotCache
	Health      handlers.HealthDependencies
	Logger      *logrus.Logger
	ServiceName string
}

// NewRouter builds the gin engine with the standard middleware chain.
// Recovery turns invariant panics into 500 responses.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TelemetryMiddleware(deps.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))

	SetupRoutes(router, deps)
	return router
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Health)
	snapshotHandler := handlers.NewSnapshotHandler(deps.Cache, deps.Logger)
	cacheHandler := handlers.NewCacheHandler(deps.Cache)

	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	v1 := router.Group("/api/v1")
	{
		snapshot := v1.Group("/snapshot")
		{
			snapshot.GET("", snapshotHandler.GetSnapshot)
			snapshot.GET("/:date", snapshotHandler.GetSnapshot)
		}

		cache := v1.Group("/cache")
		{
			cache.GET("/stats", cacheHandler.GetCacheStats)
			cache.POST("/stats/reset", cacheHandler.ResetCacheStats)
			cache.POST("/purge", cacheHandler.PurgeCache)
		}
	}
}
