package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/lms-publisher/internal/handler"
	"github.com/noah-isme/lms-publisher/internal/middleware"
	"github.com/noah-isme/lms-publisher/internal/models"
	"github.com/noah-isme/lms-publisher/pkg/config"
	"github.com/noah-isme/lms-publisher/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-publisher/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-publisher/pkg/middleware/requestid"
)

// NewRouter mounts every HTTP route on a fresh gin engine.
func NewRouter(c *Container) *gin.Engine {
	cfg := c.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(c.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(c.Metrics))

	checks := map[string]handler.Pinger{"postgres": c.DB}
	if c.Redis != nil {
		checks["redis"] = handler.PingFunc(c.Cache.Ping)
	}
	metricsHandler := handler.NewMetricsHandler(c.Metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	downloads := handler.NewDownloadHandler(c.Signer, c.Files)
	api.GET("/downloads/:token", downloads.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(c.Auth))

	publisher := handler.NewPublisherHandler(c.Scheduler)
	secured.POST("/publisher/sweep", middleware.RequireAdmin(), publisher.Sweep)

	storageHandler := handler.NewStorageHandler(c.StorageConfig)
	storageGroup := secured.Group("/storage", middleware.RequireAdmin())
	storageGroup.GET("/config", storageHandler.GetConfig)
	storageGroup.POST("/config", storageHandler.CreateConfig)
	storageGroup.PUT("/config", storageHandler.UpdateConfig)
	storageGroup.GET("/usage", storageHandler.Usage)
	storageGroup.GET("/usage/export", storageHandler.ExportUsage)
	storageGroup.POST("/check", storageHandler.CheckThreshold)

	content := handler.NewContentHandler(c.Content)
	authors := secured.Group("/content/:kind", middleware.RequireAuthor())
	authors.GET("/scheduled", content.ListScheduled)
	authors.PUT("/:id/publication", content.UpdatePublication)
	authors.POST("/:id/notify", content.Notify)
	authors.DELETE("/:id", content.Delete)

	submissions := handler.NewSubmissionHandler(c.Submissions)
	secured.POST("/assignments/:id/submissions", middleware.RequireRoles(models.RoleStudent), submissions.Submit)

	return r
}
