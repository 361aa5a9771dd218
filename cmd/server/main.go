package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/fleetverify-backend/config"
	"github.com/ikkim/fleetverify-backend/internal/app/controller"
	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/internal/app/service"
	"github.com/ikkim/fleetverify-backend/internal/db"
	"github.com/ikkim/fleetverify-backend/internal/middleware"
	"github.com/ikkim/fleetverify-backend/internal/ratelimit"
	"github.com/ikkim/fleetverify-backend/internal/router"
	"github.com/ikkim/fleetverify-backend/internal/scheduler"
	"github.com/ikkim/fleetverify-backend/internal/scoring"
	"github.com/ikkim/fleetverify-backend/internal/storage"
	ws "github.com/ikkim/fleetverify-backend/internal/websocket"
	"github.com/ikkim/fleetverify-backend/pkg/events"
	"github.com/ikkim/fleetverify-backend/pkg/facematch"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"github.com/ikkim/fleetverify-backend/pkg/ocr"
	"github.com/ikkim/fleetverify-backend/pkg/ocr/tesseract"
	"github.com/ikkim/fleetverify-backend/pkg/ocr/vision"
	"github.com/ikkim/fleetverify-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
		Service:     "fleetverify",
	})

	logger.Info("Starting FleetVerify Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Rate-limit counters live in Redis; a single node can run without it.
	var counters ratelimit.CounterStore
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, using in-memory rate limit counters", map[string]interface{}{
			"error": err.Error(),
		})
		counters = ratelimit.NewMemoryStore(nil)
	} else {
		defer redis.Close()
		counters = redis.NewCounterStore(redis.GetClient())
	}
	kycLimiter := ratelimit.NewHourlyLimiter(counters, nil, "kyc:attempts", cfg.KYC.StepAttemptsPerHour)

	// Outcome events go to Kafka and the live review feed.
	hub := ws.NewHub()
	go hub.Run(ctx)

	publishers := events.Fanout{}
	if cfg.Verification.ReviewFeedEnabled {
		publishers = append(publishers, hub)
	}
	if cfg.Kafka.Enabled {
		kafka := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Username, cfg.Kafka.Password)
		defer kafka.Close()
		publishers = append(publishers, kafka)
	}

	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	ocrService := ocr.NewService(
		cfg.OCR.PreferredProvider,
		cfg.OCR.FallbackProvider,
		vision.New(cfg.OCR.GoogleAPIKey),
		tesseract.New(cfg.OCR.TesseractPath, cfg.OCR.TesseractLangs),
	)
	logger.Info("OCR provider selected", map[string]interface{}{
		"provider": ocrService.ProviderName(ctx),
	})

	var faces facematch.Provider = facematch.Static{Score: scoring.NeutralConfidence}
	if cfg.FaceMatch.APIKey != "" {
		faces = facematch.NewIAppClient(cfg.FaceMatch.APIKey, cfg.FaceMatch.BaseURL, cfg.FaceMatch.Timeout)
	} else {
		logger.Warn("Face match API key not set, scoring faces as neutral", nil)
	}

	gormDB := db.GetDB()

	driverRepo := repository.NewDriverRepository(gormDB)
	documentRepo := repository.NewDocumentRepository(gormDB)
	attemptRepo := repository.NewAttemptRepository(gormDB)
	faceRepo := repository.NewFacialVerificationRepository(gormDB)
	activityRepo := repository.NewActivityLogRepository(gormDB)

	verificationService := service.NewVerificationService(gormDB, driverRepo, attemptRepo, publishers)
	pipelineService := service.NewPipelineService(
		driverRepo,
		documentRepo,
		faceRepo,
		s3Storage,
		ocrService,
		faces,
		verificationService,
		cfg.Verification.Weights,
	)
	reportService := service.NewReportService(driverRepo, documentRepo, attemptRepo, faceRepo)
	kycService := service.NewKycService(
		gormDB,
		driverRepo,
		documentRepo,
		activityRepo,
		kycLimiter,
		nil,
		publishers,
		cfg.KYC,
	)

	retention := scheduler.NewRetentionScheduler(attemptRepo, cfg.Verification.RetentionSchedule, cfg.Verification.RetentionDays)
	if err := retention.Start(); err != nil {
		logger.Fatal("Failed to start retention scheduler", err)
	}
	defer retention.Stop()

	throttle := middleware.NewThrottle(cfg.Server.RequestsPerSec, cfg.Server.RequestBurst)
	go throttle.RunCleanup(ctx)

	var reviewFeed *controller.ReviewFeedController
	if cfg.Verification.ReviewFeedEnabled {
		reviewFeed = controller.NewReviewFeedController(hub, cfg.CORS.AllowedOrigins)
	}

	r := router.NewRouter(
		controller.NewVerificationController(pipelineService, verificationService, reportService),
		controller.NewKycController(kycService),
		controller.NewDocumentController(s3Storage),
		reviewFeed,
		middleware.NewAuthMiddleware(cfg.JWT.Secret),
		throttle,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	cancel()
	logger.Info("Server stopped successfully")
}
