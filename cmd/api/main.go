package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/scanpoint/attendance-api/api/swagger"
	"github.com/scanpoint/attendance-api/internal/handler"
	"github.com/scanpoint/attendance-api/internal/middleware"
	"github.com/scanpoint/attendance-api/internal/models"
	"github.com/scanpoint/attendance-api/internal/repository"
	"github.com/scanpoint/attendance-api/internal/service"
	"github.com/scanpoint/attendance-api/pkg/cache"
	"github.com/scanpoint/attendance-api/pkg/config"
	"github.com/scanpoint/attendance-api/pkg/database"
	"github.com/scanpoint/attendance-api/pkg/logger"
	corsmiddleware "github.com/scanpoint/attendance-api/pkg/middleware/cors"
	"github.com/scanpoint/attendance-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/scanpoint/attendance-api/pkg/middleware/requestid"
)

// @title ScanPoint Attendance API
// @version 1.0.0
// @description QR based attendance tracking for class sessions
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

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Cache.RecordsTTL, logr, false)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.RecordsTTL, logr, true)
		}
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Cache.RecordsTTL, logr, false)
	}

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, logr)
	sessionSvc := service.NewSessionService(sessionRepo, scheduleRepo, recordRepo, cacheSvc, metricsSvc, cfg.Attendance, nil, logr)
	scanSvc := service.NewScanService(userRepo, sessionRepo, enrollmentRepo, recordRepo, cacheSvc, metricsSvc, cfg.Attendance, nil, logr)
	recordSvc := service.NewRecordService(recordRepo, userRepo, sectionRepo, cacheSvc, nil, logr)
	academicSvc := service.NewAcademicService(catalogRepo, sectionRepo, scheduleRepo, userRepo, nil, logr)

	sessionHandler := handler.NewSessionHandler(sessionSvc)
	scanHandler := handler.NewScanHandler(scanSvc)
	recordHandler := handler.NewRecordHandler(recordSvc)
	academicHandler := handler.NewAcademicHandler(academicSvc)
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

	scanLimiter := ratelimit.NewTokenBucket(cfg.Scan.RateLimitBurst, cfg.Scan.RateLimitPerMinute)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	sessions := api.Group("/attendance/sessions")
	{
		sessions.POST("/open", staff, sessionHandler.Open)
		sessions.POST("/:id/close", staff, sessionHandler.Close)
		sessions.GET("", staff, sessionHandler.List)
		sessions.GET("/:id", staff, sessionHandler.Get)
		sessions.GET("/:id/records", staff, sessionHandler.Records)
		sessions.GET("/:id/records/export", staff, sessionHandler.Export)
	}

	api.POST("/attendance/scan", studentOnly, scanLimiter.PerIP(), scanHandler.Scan)
	api.PATCH("/attendance/records/:id", staff, recordHandler.Override)

	api.GET("/students/me/attendance", studentOnly, recordHandler.MyHistory)
	api.GET("/students/:id/attendance", staff, recordHandler.StudentHistory)

	api.GET("/departments", staff, academicHandler.ListDepartments)
	api.POST("/departments", adminOnly, academicHandler.CreateDepartment)
	api.DELETE("/departments/:id", adminOnly, academicHandler.DeleteDepartment)
	api.GET("/programs", staff, academicHandler.ListPrograms)
	api.POST("/programs", adminOnly, academicHandler.CreateProgram)
	api.DELETE("/programs/:id", adminOnly, academicHandler.DeleteProgram)
	api.GET("/courses", staff, academicHandler.ListCourses)
	api.POST("/courses", adminOnly, academicHandler.CreateCourse)
	api.DELETE("/courses/:id", adminOnly, academicHandler.DeleteCourse)
	api.GET("/sections", staff, academicHandler.ListSections)
	api.POST("/sections", adminOnly, academicHandler.CreateSection)
	api.DELETE("/sections/:id", adminOnly, academicHandler.DeleteSection)
	api.GET("/schedules", staff, academicHandler.ListSchedules)
	api.POST("/schedules", adminOnly, academicHandler.CreateSchedule)
	api.DELETE("/schedules/:id", adminOnly, academicHandler.DeleteSchedule)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
