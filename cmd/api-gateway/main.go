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

	_ "github.com/StrobelAbel/Golden-Light-School-bo-sub000/api/swagger"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/handler"
	internalmiddleware "github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/middleware"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/repository"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/service"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/cache"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/config"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/database"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/export"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/jobs"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/logger"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/mailer"
	corsmiddleware "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/middleware/requestid"
)

// @title Golden Light School Back Office API
// @version 1.0.0
// @description Student lifecycle, fee ledger, and admissions back office
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The details cache is an optimization; the office keeps working
		// without it.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	lockRepo := repository.NewPromotionLockRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	notificationOpts := []service.NotificationServiceOption{
		service.WithNotificationMetrics(metricsSvc),
	}
	if cfg.Notifications.EmailEnabled {
		sender := mailer.NewSMTPSender(cfg.Notifications.SMTPAddr, cfg.Notifications.SMTPFrom, cfg.Notifications.SendTimeout)
		notificationOpts = append(notificationOpts, service.WithEmailFanout(sender, cfg.Notifications.AdminEmails))
	}
	notificationSvc := service.NewNotificationService(notificationRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, logr, notificationOpts...)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	policy := service.PaymentPolicy{
		GraceMonths: cfg.Payments.OverdueGraceMonths,
		MinRatio:    cfg.Payments.OverdueMinRatio,
	}

	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, policy, notificationSvc, validate, logr,
		service.WithStatementRenderer(export.NewStatementRenderer(), cfg.Exports.RenderTimeout),
		service.WithPaymentMetrics(metricsSvc),
	)
	studentSvc := service.NewStudentService(studentRepo, yearRepo, paymentSvc, policy, notificationSvc, validate, logr)
	yearSvc := service.NewAcademicYearService(yearRepo, studentRepo, applicationRepo, validate, logr,
		service.WithDetailsCache(cacheRepo, cfg.YearDetails.CacheTTL),
	)
	promotionSvc := service.NewPromotionService(studentRepo, yearRepo, lockRepo, notificationSvc, logr,
		service.WithPromotionMetrics(metricsSvc),
	)
	applicationSvc := service.NewApplicationService(applicationRepo, cfg.Intake.DefaultTotalFees, notificationSvc, logr)

	studentHandler := handler.NewStudentHandler(studentSvc, paymentSvc)
	yearHandler := handler.NewAcademicYearHandler(yearSvc, promotionSvc)
	applicationHandler := handler.NewApplicationHandler(applicationSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		students := api.Group("/students")
		{
			students.GET("", studentHandler.List)
			students.POST("", studentHandler.Create)
			students.GET("/:id", studentHandler.Get)
			students.PUT("/:id", studentHandler.Update)
			students.PATCH("/:id/status", studentHandler.SetStatus)
			students.GET("/:id/payments", studentHandler.ListPayments)
			students.POST("/:id/payments", studentHandler.AddPayment)
			students.GET("/:id/statement", studentHandler.ExportStatement)
		}

		years := api.Group("/academic-years")
		{
			years.GET("", yearHandler.List)
			years.POST("", yearHandler.Create)
			years.GET("/suggestion", yearHandler.Suggestion)
			years.GET("/:id", yearHandler.Get)
			years.PUT("/:id", yearHandler.Update)
			years.DELETE("/:id", yearHandler.Delete)
			years.POST("/:id/activate", yearHandler.SetActive)
			years.GET("/:id/details", yearHandler.Details)
			years.POST("/:id/promote", yearHandler.Promote)
		}

		applications := api.Group("/applications")
		{
			applications.GET("", applicationHandler.List)
			applications.GET("/:id", applicationHandler.Get)
			applications.PATCH("/:id/status", applicationHandler.SetStatus)
			applications.POST("/import", applicationHandler.Import)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
