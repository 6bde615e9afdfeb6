package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/course-reg-api/api/swagger"
	"github.com/noah-isme/course-reg-api/internal/handler"
	internalmiddleware "github.com/noah-isme/course-reg-api/internal/middleware"
	"github.com/noah-isme/course-reg-api/internal/models"
	"github.com/noah-isme/course-reg-api/internal/repository"
	"github.com/noah-isme/course-reg-api/internal/service"
	"github.com/noah-isme/course-reg-api/pkg/cache"
	"github.com/noah-isme/course-reg-api/pkg/config"
	"github.com/noah-isme/course-reg-api/pkg/database"
	"github.com/noah-isme/course-reg-api/pkg/export"
	"github.com/noah-isme/course-reg-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-reg-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-reg-api/pkg/middleware/requestid"
)

// @title Course Registration API
// @version 1.0.0
// @description Course catalog, section scheduling and student enrollment backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	termRepo := repository.NewTermRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	prereqRepo := repository.NewPrerequisiteRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	termService := service.NewTermService(termRepo, validate, logr)
	courseService := service.NewCourseService(courseRepo, cacheService, validate, logr)
	sectionGate := service.NewSectionGate()
	sectionService := service.NewSectionService(sectionRepo, courseRepo, termRepo, userRepo, enrollmentRepo, sectionGate, validate, logr)
	prereqService := service.NewPrerequisiteService(prereqRepo, courseRepo, validate, logr)
	evaluator := service.NewPrerequisiteEvaluator(time.Now)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, sectionRepo, prereqRepo, userRepo, termRepo, evaluator, sectionGate, validate, logr)
	exportService := service.NewExportService(enrollmentRepo, sectionRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	authHandler := handler.NewAuthHandler(authService)
	termHandler := handler.NewTermHandler(termService)
	courseHandler := handler.NewCourseHandler(courseService)
	sectionHandler := handler.NewSectionHandler(sectionService, exportService)
	prereqHandler := handler.NewPrerequisiteHandler(prereqService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(internalmiddleware.JWT(authService))
	authed.GET("/auth/me", authHandler.Me)

	manageTerms := internalmiddleware.RequirePermission(models.PermissionManageTerms)
	manageCatalog := internalmiddleware.RequirePermission(models.PermissionManageCatalog)

	authed.GET("/terms", termHandler.List)
	authed.GET("/terms/:id", termHandler.Get)
	authed.POST("/terms", manageTerms, termHandler.Create)
	authed.PUT("/terms/:id", manageTerms, termHandler.Update)
	authed.DELETE("/terms/:id", manageTerms, termHandler.Delete)

	authed.GET("/courses", courseHandler.List)
	authed.GET("/courses/:id", courseHandler.Get)
	authed.POST("/courses", manageCatalog, courseHandler.Create)
	authed.PUT("/courses/:id", manageCatalog, courseHandler.Update)
	authed.DELETE("/courses/:id", manageCatalog, courseHandler.Delete)

	authed.GET("/courses/:id/prerequisites", prereqHandler.List)
	authed.POST("/courses/:id/prerequisites", manageCatalog, prereqHandler.Create)
	authed.DELETE("/courses/:id/prerequisites/:prereqId", manageCatalog, prereqHandler.Delete)

	authed.GET("/sections", sectionHandler.List)
	authed.GET("/sections/:id", sectionHandler.Get)
	authed.POST("/sections", manageCatalog, sectionHandler.Create)
	authed.PUT("/sections/:id", manageCatalog, sectionHandler.Update)
	authed.DELETE("/sections/:id", manageCatalog, sectionHandler.Delete)
	if cfg.Exports.Enabled {
		authed.GET("/sections/:id/roster/export", internalmiddleware.RequirePermission(models.PermissionExportRoster), sectionHandler.ExportRoster)
	}

	authed.GET("/enrollments", enrollmentHandler.List)
	authed.GET("/enrollments/:id", enrollmentHandler.Get)
	authed.POST("/enrollments", internalmiddleware.RequirePermission(models.PermissionEnrollSelf, models.PermissionEnrollAny), enrollmentHandler.Create)
	authed.PUT("/enrollments/:id", internalmiddleware.RequirePermission(models.PermissionManageGrades), enrollmentHandler.Update)
	authed.DELETE("/enrollments/:id", enrollmentHandler.Delete)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sweep.Enabled {
		sweepService := service.NewSweepService(enrollmentRepo, service.SweepConfig{
			Interval:  cfg.Sweep.Interval,
			BatchSize: cfg.Sweep.BatchSize,
		}, metricsService, logr)
		sweepService.Start(ctx)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
