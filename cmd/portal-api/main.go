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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/gppalanpur/portal-api/api/swagger"
	"github.com/gppalanpur/portal-api/internal/handler"
	"github.com/gppalanpur/portal-api/internal/middleware"
	"github.com/gppalanpur/portal-api/internal/repository"
	"github.com/gppalanpur/portal-api/internal/service"
	"github.com/gppalanpur/portal-api/pkg/cache"
	"github.com/gppalanpur/portal-api/pkg/config"
	"github.com/gppalanpur/portal-api/pkg/database"
	"github.com/gppalanpur/portal-api/pkg/logger"
	corsmiddleware "github.com/gppalanpur/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gppalanpur/portal-api/pkg/middleware/requestid"
	"github.com/gppalanpur/portal-api/pkg/storage"
)

// @title GPP Portal API
// @version 1.0.0
// @description Administrative backend for the Government Polytechnic Palanpur portal
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		}
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	eventRepo := repository.NewEventRepository(db)
	resultRepo := repository.NewResultRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, roleRepo, validate, logr)
	roleSvc := service.NewRoleService(roleRepo, cacheRepo, metricsSvc, validate, logr, cfg.Cache.RolesTTL)
	deptSvc := service.NewDepartmentService(deptRepo, userRepo, cacheRepo, metricsSvc, validate, logr, cfg.Cache.StatsTTL)
	facultySvc := service.NewFacultyService(facultyRepo, userRepo, deptRepo, metricsSvc, validate, logr, cfg.Bootstrap.EmailDomain)
	studentSvc := service.NewStudentService(studentRepo, userRepo, deptRepo, metricsSvc, validate, logr, cfg.Bootstrap.EmailDomain)
	projectSvc := service.NewProjectService(projectRepo, teamRepo, eventRepo, validate, logr)
	teamSvc := service.NewTeamService(teamRepo, validate, logr)
	eventSvc := service.NewEventService(eventRepo, validate, logr)
	resultSvc := service.NewResultService(resultRepo, studentRepo, metricsSvc, validate, logr)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, metricsSvc, logr)

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(reportJobRepo, service.ExportSources{
		Users:       userSvc,
		Departments: deptSvc,
		Faculty:     facultySvc,
		Students:    studentSvc,
		Results:     resultSvc,
	}, store, signer, metricsSvc, validate, logr, service.ExportServiceConfig{
		Workers:      cfg.Exports.WorkerConcurrency,
		DownloadPath: cfg.APIPrefix + "/exports/download",
	})
	exportSvc.Start(ctx)
	defer exportSvc.Stop()

	go runExportCleanup(ctx, exportSvc, cfg.Exports.CleanupInterval, logr)

	if cfg.Bootstrap.Enabled {
		bootstrapSvc := service.NewBootstrapService(roleRepo, userRepo, logr)
		if err := bootstrapSvc.Run(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			logr.Fatal("bootstrap failed", zap.Error(err))
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	maxUpload := cfg.Uploads.MaxFileSizeBytes
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, userRepo, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Users:       handler.NewUserHandler(userSvc, maxUpload),
		Roles:       handler.NewRoleHandler(roleSvc),
		Departments: handler.NewDepartmentHandler(deptSvc, studentSvc, maxUpload),
		Faculty:     handler.NewFacultyHandler(facultySvc, maxUpload),
		Students:    handler.NewStudentHandler(studentSvc, maxUpload),
		Projects:    handler.NewProjectHandler(projectSvc),
		Teams:       handler.NewTeamHandler(teamSvc),
		Events:      handler.NewEventHandler(eventSvc),
		Results:     handler.NewResultHandler(resultSvc, maxUpload),
		Feedback:    handler.NewFeedbackHandler(feedbackSvc, maxUpload),
		Exports:     handler.NewExportHandler(exportSvc),
		Metrics:     metricsHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := exports.Cleanup(ctx); err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}
