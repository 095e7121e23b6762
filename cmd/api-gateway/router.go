package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/recurring-todo-api/api/swagger"
	"github.com/noah-isme/recurring-todo-api/internal/handler"
	"github.com/noah-isme/recurring-todo-api/internal/middleware"
	"github.com/noah-isme/recurring-todo-api/internal/service"
	"github.com/noah-isme/recurring-todo-api/pkg/config"
	"github.com/noah-isme/recurring-todo-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/recurring-todo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/recurring-todo-api/pkg/middleware/requestid"
)

type routes struct {
	series      *handler.SeriesHandler
	occurrences *handler.OccurrenceHandler
	metrics     *handler.MetricsHandler
	tokens      middleware.TokenValidator
	metricsSvc  *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(h.metricsSvc))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(h.tokens), middleware.WithResponseMeta())

	series := api.Group("/series")
	series.POST("", h.series.Create)
	series.GET("", h.series.List)
	series.GET("/:id", h.series.Get)
	series.PUT("/:id", h.series.Replace)
	series.PATCH("/:id", h.series.Patch)
	series.DELETE("/:id", h.series.Delete)
	series.POST("/:id/restore", h.series.Restore)
	series.GET("/:id/preview", h.series.Preview)

	occurrences := api.Group("/occurrences")
	occurrences.GET("", h.occurrences.List)
	occurrences.GET("/calendar", h.occurrences.Calendar)
	occurrences.GET("/statistics", h.occurrences.Statistics)
	occurrences.GET("/export", h.occurrences.Export)
	occurrences.GET("/:identity", h.occurrences.Get)
	occurrences.PATCH("/:identity", h.occurrences.Update)
	occurrences.DELETE("/:identity", h.occurrences.Delete)
	occurrences.POST("/:identity/complete", h.occurrences.Complete)
	occurrences.POST("/:identity/uncomplete", h.occurrences.Uncomplete)
	occurrences.POST("/:identity/restore", h.occurrences.Restore)

	api.GET("/metrics/snapshot", h.metrics.Snapshot)

	return r
}
