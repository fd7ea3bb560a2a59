package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simufolio/internal/adapters/coingecko"
	"simufolio/internal/adapters/config"
	"simufolio/internal/adapters/errors/noop"
	"simufolio/internal/adapters/errors/sentry"
	"simufolio/internal/adapters/postgres"
	"simufolio/internal/adapters/redis"
	"simufolio/internal/adapters/telegram"
	"simufolio/internal/api"
	"simufolio/internal/api/health"
	"simufolio/internal/api/sweep"
	pgrepo "simufolio/internal/repository/postgres"
	redisrepo "simufolio/internal/repository/redis"
	"simufolio/internal/services/conversation"
	"simufolio/internal/services/portfolio"
	"simufolio/internal/workers"
	"simufolio/pkg/errors"
	"simufolio/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Databases
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	log.Info("Databases initialized")

	// Repositories and services
	subStore := pgrepo.NewSubscriptionRepository(pgClient.DB())
	stateStore := redisrepo.NewConversationStateRepository(redisClient.Client())

	gateway := coingecko.NewClient(cfg.CoinGecko, log)
	portfolioSvc := portfolio.NewService(subStore, log)
	engine := conversation.NewEngine(gateway, stateStore, portfolioSvc, cfg.Sweep.SessionTTL, log)

	// Telegram bot
	bot, err := telegram.NewBot(telegram.Config{
		Token:       cfg.Telegram.BotToken,
		Debug:       cfg.App.Debug,
		HTTPTimeout: cfg.Telegram.HTTPTimeout,
	}, log)
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}
	telegram.NewHandler(bot, engine, log)

	// Notification sweep: driven by the in-process scheduler and exposed as
	// an HTTP trigger for external cron.
	sweeper := workers.NewNotificationSweeper(subStore, gateway, bot, cfg.Sweep.Interval, cfg.Sweep.Enabled)

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(sweeper)

	// HTTP API
	healthHandler := health.New(log, pgClient.DB(), redisClient.Client(), cfg.App.Name, version)
	sweepHandler := sweep.New(sweeper, cfg.Sweep.Secret, log)
	server := api.NewServer(api.ServerConfig{
		Port:        cfg.API.Port,
		ServiceName: cfg.App.Name,
		Version:     version,
	}, healthHandler, sweepHandler, log)

	log.Info("System initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker scheduler: %v", err)
	}

	go func() {
		if err := bot.Start(ctx); err != nil {
			log.Errorf("Telegram bot error: %v", err)
			cancel()
		}
	}()

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, scheduler, server, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// waitForShutdown blocks on SIGINT/SIGTERM and performs graceful shutdown
func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	scheduler *workers.Scheduler,
	server *api.Server,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case <-ctx.Done():
		log.Info("Component failure, shutting down")
	}

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker scheduler shutdown: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
