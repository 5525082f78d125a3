package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nextpointlabs/nextpoint-backend/internal/handlers"
	"github.com/nextpointlabs/nextpoint-backend/internal/middleware"
)

type RouterConfig struct {
	ReportHandler    *handlers.ReportHandler
	TrimHandler      *handlers.TrimHandler
	EmbedHandler     *handlers.EmbedHandler
	OpsKeyMiddleware *middleware.OpsKeyMiddleware
	AllowOrigins     []string
	ServiceName      string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:8088"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/reports/match/:taskID", cfg.ReportHandler.MatchSummary)
		api.GET("/reports/day", cfg.ReportHandler.PlayerDaySummary)
		api.GET("/reports/serves/:taskID", cfg.ReportHandler.ServeTimeTrend)
		api.GET("/reports/locations/:taskID", cfg.ReportHandler.ServeLocDistribution)
		api.POST("/embed-token", cfg.EmbedHandler.CreateToken)
	}

	// ===============
	// || Ops       ||
	// ===============
	ops := router.Group("/")
	ops.Use(cfg.OpsKeyMiddleware.RequireOpsKey())
	ops.POST("/trim", cfg.TrimHandler.Trim)
	ops.GET("/trim/:taskID/status", cfg.TrimHandler.Status)
	ops.POST("/api/tasks/:taskID/trim", cfg.TrimHandler.TriggerTaskTrim)

	return router
}
