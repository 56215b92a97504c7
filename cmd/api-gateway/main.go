package main

import (
	"context"
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

	_ "github.com/noah-isme/dts-adp-api/api/swagger"
	"github.com/noah-isme/dts-adp-api/internal/handler"
	internalmiddleware "github.com/noah-isme/dts-adp-api/internal/middleware"
	"github.com/noah-isme/dts-adp-api/internal/models"
	"github.com/noah-isme/dts-adp-api/internal/repository"
	"github.com/noah-isme/dts-adp-api/internal/service"
	"github.com/noah-isme/dts-adp-api/pkg/cache"
	"github.com/noah-isme/dts-adp-api/pkg/config"
	"github.com/noah-isme/dts-adp-api/pkg/database"
	"github.com/noah-isme/dts-adp-api/pkg/jobs"
	"github.com/noah-isme/dts-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dts-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dts-adp-api/pkg/middleware/requestid"
	"github.com/noah-isme/dts-adp-api/pkg/storage"
)

// @title DTS Admin Panel API
// @version 1.0.0
// @description Business administration API for driver training services
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	closureRepo := repository.NewClosureRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "dts-adp-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	clientSvc := service.NewClientService(clientRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	allocationSvc := service.NewAllocationService(allocationRepo, courseRepo, validate, logr)
	analyticsSvc := service.NewAnalyticsService(closureRepo, courseRepo, cacheSvc, metricsSvc,
		cfg.Scoring.ControlWeight, cfg.Analytics.CacheTTL, logr)
	closureSvc := service.NewClosureService(closureRepo, courseRepo, analyticsSvc, validate, logr)

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(analyticsSvc, allocationSvc, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	reportSvc := service.NewReportService(reportRepo, courseRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	if cfg.Reports.Enabled {
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	clientHandler := handler.NewClientHandler(clientSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	allocationHandler := handler.NewAllocationHandler(allocationSvc)
	closureHandler := handler.NewClosureHandler(closureSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	reportHandler := handler.NewReportHandler(reportSvc, logr)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	// Signed URL is the credential here; no JWT required.
	api.GET("/reports/download/:token", reportHandler.DownloadReport)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	secured.POST("/auth/logout", authHandler.Logout)
	secured.POST("/auth/change-password", authHandler.ChangePassword)
	secured.GET("/auth/me", authHandler.Me)

	superadmin := internalmiddleware.RBAC(string(models.RoleSuperAdmin))
	admins := internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin))
	staff := internalmiddleware.RBAC(string(models.RoleInstructor), string(models.RoleAdmin), string(models.RoleSuperAdmin))

	users := secured.Group("/users", superadmin)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", internalmiddleware.Audit(userRepo, models.AuditActionUserCreate, "users"), userHandler.Create)
	users.PUT("/:id", internalmiddleware.Audit(userRepo, models.AuditActionUserUpdate, "users"), userHandler.Update)
	users.DELETE("/:id", internalmiddleware.Audit(userRepo, models.AuditActionUserDelete, "users"), userHandler.Delete)

	clients := secured.Group("/clients")
	clients.GET("", staff, clientHandler.List)
	clients.GET("/:id", staff, clientHandler.Get)
	clients.POST("", admins, clientHandler.Create)
	clients.PUT("/:id", admins, clientHandler.Update)
	clients.DELETE("/:id", admins, clientHandler.Delete)

	students := secured.Group("/students")
	students.GET("", staff, studentHandler.List)
	students.GET("/:id", staff, studentHandler.Get)
	students.POST("", admins, studentHandler.Create)
	students.PUT("/:id", admins, studentHandler.Update)
	students.DELETE("/:id", admins, studentHandler.Delete)

	courses := secured.Group("/courses")
	courses.GET("", staff, courseHandler.List)
	courses.GET("/:id", staff, courseHandler.Get)
	courses.POST("", admins, courseHandler.Create)
	courses.PUT("/:id", admins, courseHandler.Update)
	courses.DELETE("/:id", admins, courseHandler.Delete)
	courses.POST("/:id/close", admins, closureHandler.Close)

	courses.GET("/:id/allocations", staff, allocationHandler.State)
	courses.POST("/:id/allocations", admins, allocationHandler.Add)
	courses.PUT("/:id/allocations", admins, allocationHandler.Replace)
	courses.DELETE("/:id/allocations/:index", admins, allocationHandler.Remove)

	if cfg.Analytics.Enabled {
		courses.GET("/:id/analytics", staff, analyticsHandler.Course)
		courses.GET("/:id/analytics/top", staff, analyticsHandler.Top)
		secured.GET("/analytics/system", staff, analyticsHandler.System)
	}

	if cfg.Reports.Enabled {
		courses.POST("/:id/reports", staff, reportHandler.GenerateReport)
		secured.GET("/reports/:id", staff, reportHandler.ReportStatus)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
