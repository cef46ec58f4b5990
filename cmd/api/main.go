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

	"github.com/travelportal/quote-api/docs"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/config"
	"github.com/travelportal/quote-api/internal/database"
	"github.com/travelportal/quote-api/internal/http/handler"
	"github.com/travelportal/quote-api/internal/http/middleware"
	"github.com/travelportal/quote-api/internal/http/router"
	"github.com/travelportal/quote-api/internal/jobs"
	"github.com/travelportal/quote-api/internal/logger"
	"github.com/travelportal/quote-api/internal/notify"
	"github.com/travelportal/quote-api/internal/repository"
	"github.com/travelportal/quote-api/internal/service"
	"github.com/travelportal/quote-api/internal/storage"
	"go.uber.org/zap"
)

// @title Travel Portal Quote API
// @version 1.0
// @description Quote request lifecycle and offer negotiation between travel agencies and the back office

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Portal JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API key for back-office automation

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Plain configuration first so the logger exists before secrets are fetched
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if basicCfg.App.Environment == "development" || basicCfg.App.Environment == "" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.App.Environment == "development" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to auto-migrate: %w", err)
		}
	}

	documents, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	var sender notify.Sender
	if cfg.Mail.Enabled {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:      cfg.Mail.Host,
			Port:      cfg.Mail.Port,
			Username:  cfg.Mail.Username,
			Password:  cfg.Mail.Password,
			FromEmail: cfg.Mail.FromEmail,
			FromName:  cfg.Mail.FromName,
			Timeout:   cfg.Mail.TimeoutDuration(),
		})
		log.Info("SMTP delivery enabled", zap.String("host", cfg.Mail.Host), zap.Int("port", cfg.Mail.Port))
	} else {
		sender = notify.NewLogSender(log)
		log.Info("SMTP delivery disabled, notifications are logged only")
	}
	composer := notify.NewComposer(cfg.Mail.PortalURL, notify.Recipient{
		Email: cfg.Mail.AdminEmail,
		Name:  cfg.Mail.AdminName,
	})

	// Repositories
	store := repository.NewPrivilegedStore(db)
	agencyRepo := repository.NewAgencyRepository(db)
	outboxRepo := repository.NewNotificationOutboxRepository(db)

	// Services
	notificationService := service.NewNotificationService(outboxRepo, sender, cfg.Notifications.MaxAttempts, log)
	guard := service.NewAgencyGuard(agencyRepo, store, log)
	lifecycleService := service.NewQuoteLifecycleService(store, guard, composer, notificationService, documents, log)
	queryService := service.NewQuoteQueryService(db, store, guard, log)

	// HTTP
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		handler.NewAgencyQuoteHandler(queryService, lifecycleService, log),
		handler.NewAdminQuoteHandler(queryService, lifecycleService, cfg.Storage.MaxUploadSizeMB, log),
		handler.NewNotificationHandler(notificationService, log),
	)

	scheduler, err := registerJobs(cfg, store, notificationService, log)
	if err != nil {
		return err
	}
	scheduler.Start()
	if cfg.Notifications.RetryEnabled {
		// pick up mail left queued by the previous process
		if err := scheduler.RunNow(jobs.NotificationRetryJobName); err != nil {
			log.Warn("Failed to start initial notification retry", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(rt.Setup(), cfg.Server.RequestTimeoutDuration(), `{"type":"timeout","title":"Service Unavailable","status":503}`),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		<-scheduler.Stop().Done()
		log.Info("Scheduler stopped")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}
		log.Info("Server stopped gracefully")

		notificationService.Wait()
		log.Info("Pending notification deliveries finished")
	}

	return nil
}

// registerJobs wires the outbox redelivery and orphan participant sweeps
func registerJobs(cfg *config.Config, store *repository.PrivilegedStore, notifications *service.NotificationService, log *zap.Logger) (*jobs.Scheduler, error) {
	scheduler := jobs.NewScheduler(log)
	timeout := cfg.Notifications.JobTimeoutDuration()

	if cfg.Notifications.RetryEnabled {
		job := jobs.NewNotificationRetryJob(notifications, cfg.Notifications.BatchSize, log)
		if err := scheduler.AddJob(jobs.NotificationRetryJobName, cfg.Notifications.RetryCron, timeout, job); err != nil {
			return nil, fmt.Errorf("failed to register notification retry job: %w", err)
		}
	}

	if cfg.Notifications.OrphanCleanupEnabled {
		job := jobs.NewParticipantCleanupJob(store, jobs.DefaultOrphanGracePeriod, log)
		if err := scheduler.AddJob(jobs.ParticipantCleanupJobName, cfg.Notifications.OrphanCleanupCron, timeout, job); err != nil {
			return nil, fmt.Errorf("failed to register participant cleanup job: %w", err)
		}
	}

	return scheduler, nil
}
