package restapi

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the API endpoints onto the router.
func RegisterRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/calculate/stream", handler.CalculateStreamHandler)
		api.POST("/calculate", handler.CalculateHandler)
		api.GET("/stats", handler.StatsHandler)
		api.GET("/health", handler.HealthHandler)
		api.GET("/config", handler.ConfigHandler)
	}
}
