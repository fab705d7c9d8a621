package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campus-ops/timetable-api/api/swagger"
	"github.com/campus-ops/timetable-api/internal/handler"
	"github.com/campus-ops/timetable-api/internal/middleware"
	"github.com/campus-ops/timetable-api/internal/repository"
	"github.com/campus-ops/timetable-api/internal/service"
	"github.com/campus-ops/timetable-api/pkg/cache"
	"github.com/campus-ops/timetable-api/pkg/config"
	"github.com/campus-ops/timetable-api/pkg/database"
	"github.com/campus-ops/timetable-api/pkg/logger"
	corsmiddleware "github.com/campus-ops/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-ops/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Timetable scheduling and conflict detection service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	grid, err := service.ParseSlotGrid(cfg.Timetable.Slots)
	if err != nil {
		logr.Sugar().Fatalw("invalid slot grid configuration", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	// The cache is optional; a missing Redis degrades to recomputation.
	var cacheRepo *repository.CacheRepository
	if cfg.Timetable.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	var cacheBackend service.CacheRepository
	if cacheRepo != nil {
		cacheBackend = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheBackend, metricsSvc, cfg.Timetable.CacheTTL, logr, cacheRepo != nil)

	entryRepo := repository.NewEntryRepository(db)
	resourceRepo := repository.NewResourceRepository(db)

	validate := validator.New()
	timetableSvc := service.NewTimetableService(entryRepo, resourceRepo, cacheSvc, metricsSvc, grid, validate, logr)
	exportSvc := service.NewExportService()

	entryHandler := handler.NewEntryHandler(timetableSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		entries := api.Group("/entries")
		{
			entries.GET("", entryHandler.List)
			entries.POST("", entryHandler.Create)
			entries.POST("/check", entryHandler.Check)
			entries.GET("/:id", entryHandler.Get)
			entries.PUT("/:id", entryHandler.Update)
			entries.DELETE("/:id", entryHandler.Delete)
			entries.POST("/:id/activate", entryHandler.Activate)
			entries.POST("/:id/deactivate", entryHandler.Deactivate)
		}

		api.GET("/classrooms/:id/slots", timetableHandler.AvailableSlots)
		api.GET("/groups/:id/timetable", timetableHandler.GroupTimetable)
		api.GET("/groups/:id/timetable/export", timetableHandler.ExportGroupTimetable)
		api.GET("/teachers/:id/timetable", timetableHandler.TeacherTimetable)
		api.GET("/teachers/:id/timetable/export", timetableHandler.ExportTeacherTimetable)
		api.GET("/teachers/:id/workload", timetableHandler.TeacherWorkload)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
