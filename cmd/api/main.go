package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/git-bonda108/Dentsi-sub000/internal/api/router"
	"github.com/git-bonda108/Dentsi-sub000/internal/app/bootstrap"
	"github.com/git-bonda108/Dentsi-sub000/internal/clinic"
	appconfig "github.com/git-bonda108/Dentsi-sub000/internal/config"
	"github.com/git-bonda108/Dentsi-sub000/internal/conversation"
	"github.com/git-bonda108/Dentsi-sub000/internal/http/handlers"
	"github.com/git-bonda108/Dentsi-sub000/internal/notify"
	"github.com/git-bonda108/Dentsi-sub000/internal/observability/metrics"
	"github.com/git-bonda108/Dentsi-sub000/internal/patients"
	"github.com/git-bonda108/Dentsi-sub000/internal/providers"
	"github.com/git-bonda108/Dentsi-sub000/internal/scheduling"
	"github.com/git-bonda108/Dentsi-sub000/internal/support"
	"github.com/git-bonda108/Dentsi-sub000/internal/triage"
	"github.com/git-bonda108/Dentsi-sub000/internal/webchat"
	callbackworker "github.com/git-bonda108/Dentsi-sub000/internal/worker/callbacks"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dentsi API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for call sessions")
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	llmClient, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}

	// Repositories
	patientRepo := patients.NewRepository(pool)
	providerRepo := providers.NewRepository(pool)
	providerDir := providers.NewDirectory(providerRepo, logger)
	clinicRepo := clinic.NewRepository(pool)
	clinics := clinic.NewCachedRepository(clinicRepo, redisClient, logger)
	schedStore := scheduling.NewPostgresStore(pool)

	// Domain services
	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)
	callMetrics := metrics.NewCallMetrics(prometheus.DefaultRegisterer)
	scheduler := scheduling.NewService(schedStore, providerDir, logger, scheduling.WithMetrics(bookingMetrics))
	triageService := triage.NewService(logger)
	contextBuilder := patients.NewContextBuilder(patientRepo, schedStore, logger)

	// Support services and staff notification
	escalations := support.NewEscalationStore(sqlDB)
	callbacks := support.NewCallbackQueue(sqlDB)
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		emailSender = notify.NewStubEmailSender(logger)
	}
	staffNotifier := notify.NewStaffNotifier(emailSender, clinicRepo, logger)
	supportService := support.NewService(escalations, callbacks, staffNotifier, logger)

	// Conversation engine
	registry := conversation.NewSessionRegistry(redisClient)
	callStore := conversation.NewCallStore(sqlDB)
	toolbox := conversation.NewToolbox(patientRepo, schedStore, scheduler, providerDir, clinics, triageService, supportService, logger)
	engine := conversation.NewEngine(
		llmClient, registry, toolbox, clinics, contextBuilder, providerDir,
		callStore, supportService, callMetrics, logger,
		conversation.EngineConfig{
			Model:       cfg.BedrockModelID,
			MaxTokens:   int32(cfg.LLMMaxTokens),
			Temperature: float32(cfg.LLMTemperature),
			TurnTimeout: cfg.LLMTurnTimeout,
		},
	)

	// Background callback reminders
	reminder := callbackworker.New(callbacks, staffNotifier, cfg.CallbackPollInterval, cfg.WorkerCount, logger)
	go func() {
		if err := reminder.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("callback worker exited", "error", err)
		}
	}()

	r := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(engine, logger),
		WebchatHandler:      webchat.NewHandler(engine, logger),
		AdminSupport:        handlers.NewAdminSupportHandler(escalations, callbacks, logger),
		AdminCalls:          handlers.NewAdminCallsHandler(callStore, logger),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerSecond:  10,
		RateLimitBurst:      30,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
