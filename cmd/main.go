package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"alerting-service/internal/api"
	"alerting-service/internal/config"
	"alerting-service/internal/db"
	"alerting-service/internal/dispatch"
	"alerting-service/internal/engine"
	"alerting-service/internal/kafka"
	"alerting-service/internal/logging"
	"alerting-service/internal/providers"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	// Connect to database
	database, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer database.Close()

	// Rate-limit counters: shared via Redis when configured, in-process
	// otherwise.
	var limiter dispatch.RateLimiter
	if cfg.Redis.Addr != "" {
		limiter = dispatch.NewRedisLimiter(redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}))
		logger.Infof("SMS caps backed by redis at %s", cfg.Redis.Addr)
	} else {
		limiter = dispatch.NewCounterLimiter()
	}

	// Channel handlers and dispatcher
	hub := providers.NewHub(logger)
	handlers := []dispatch.Handler{
		providers.NewSystemHandler(database, hub),
		providers.NewEmailHandler(cfg),
		providers.NewIMHandler(cfg),
		providers.NewSMSHandler(cfg, limiter),
	}
	dispatcher := dispatch.NewDispatcher(
		database, handlers,
		cfg.Notification.Backoff, cfg.Notification.MaxRetries,
		cfg.Notification.SendTimeout, logger,
	)

	// Rule engine
	evaluator := engine.NewEvaluator(logger)
	creator := engine.NewCreator(database, database, database, dispatcher, logger)
	upgrader := engine.NewUpgrader(database, database, database, dispatcher, logger)
	ruleEngine := engine.New(evaluator, nil, database, creator, upgrader, cfg.Alert.DedupWindow, logger)

	// Periodic jobs
	sweeper := engine.NewSweeper(database, upgrader, cfg.EscalationTimeouts(), cfg.Alert.EscalationGap, logger)
	retrier := dispatch.NewRetryScheduler(database, dispatcher, cfg.Notification.RetryBatch, logger)
	backfiller := engine.NewBackfiller(database, database, database, dispatcher, cfg.Notification.RetryBatch, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka fact ingestion
	consumer := kafka.NewConsumer(cfg, database, ruleEngine, logger)
	go consumer.Run(ctx)

	// Hourly escalation/retry sweeps and notification backfill
	go runSweeps(ctx, sweeper, retrier, backfiller)

	// API server
	router := api.NewRouter(logger, cfg, api.NewHandler(database, sweeper, retrier, hub, logger))
	go func() {
		logger.Infof("API server started on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Infof("Shutting down...")
	cancel()
	consumer.Close()
	logger.Infof("Service stopped")
}

func runSweeps(ctx context.Context, sweeper *engine.Sweeper, retrier *dispatch.RetryScheduler, backfiller *engine.Backfiller) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweeper.Run(ctx)
			retrier.Run(ctx)
			backfiller.Run(ctx)
		}
	}
}
