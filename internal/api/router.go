package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/gridport/internal/api/handler"
	"github.com/timmy/gridport/internal/api/middleware"
	"github.com/timmy/gridport/internal/config"
	"github.com/timmy/gridport/internal/logger"
	"github.com/timmy/gridport/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	importService *service.ImportService,
	registry *service.Registry,
	cfg *config.Config,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	uploadHandler := handler.NewUploadHandler(importService)
	mappingHandler := handler.NewMappingHandler(importService)
	importHandler := handler.NewImportHandler(registry)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Uploads
		v1.POST("/uploads", uploadHandler.Upload)
		v1.GET("/uploads/:id", uploadHandler.GetSession)

		// Mappings
		v1.POST("/mappings/propose", mappingHandler.Propose)
		v1.POST("/mappings/adjust", mappingHandler.Adjust)

		// Imports
		v1.POST("/imports", importHandler.Start)
		v1.GET("/imports/:id", importHandler.Progress)
		v1.GET("/imports/:id/result", importHandler.Result)
		v1.DELETE("/imports/:id", importHandler.Cancel)
	}

	return r
}
