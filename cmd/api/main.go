package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnel_backend/internal/alert"
	"funnel_backend/internal/analytics"
	"funnel_backend/internal/events"
	"funnel_backend/internal/funnel"
	"funnel_backend/internal/funnel/definition"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/http/router"
	"funnel_backend/internal/scheduler"
	"funnel_backend/internal/session"
	"funnel_backend/internal/submission"
	subsvc "funnel_backend/internal/submission/service"
	"funnel_backend/internal/submission/tracking"
	"funnel_backend/internal/verification"
	"funnel_backend/migrations"
	"funnel_backend/platform/config"
	"funnel_backend/platform/db"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Delivery queue; without Redis the orchestrator delivers directly.
	deliveryQueue, closeQueue := initDeliveryQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	alerts := alert.NewMailer(cfg, log)

	// Question track definitions are embedded and validated at startup.
	defs, err := definition.Load()
	if err != nil {
		log.Error("failed to load track definitions", "error", err)
		panic("failed to load track definitions: " + err.Error())
	}
	log.Info("track definitions loaded", "tracks", len(defs.Tracks()))

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	sessionModule := session.NewModule(pool, val, eventBus, log)
	verificationModule := verification.NewModule(pool, cfg, eventBus, log)
	submissionModule := submission.NewModule(pool, deliveryQueue, cfg, alerts, eventBus, log)
	funnelModule := funnel.NewModule(
		pool, defs,
		sessionModule.Service(),
		verificationModule.Service(),
		submissionModule.Service(),
		cfg, val, eventBus, log,
	)
	funnelModule.RegisterHandlers(eventBus)

	// Analytics subscribes to domain events (not HTTP-facing)
	tracker := tracking.New(cfg.GetTrackingCollectorURLs(), cfg.GetDeliveryTimeout())
	forwarder := analytics.NewForwarder(deliveryQueue, tracker, cfg.GetDeliveryTimeout(), log)
	forwarder.Register(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			sessionModule,
			funnelModule,
			verificationModule,
			submissionModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initDeliveryQueue(cfg config.SchedulerConfig, log *logger.Logger) (subsvc.Queue, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; deliveries run in-process")
		return subsvc.NoopQueue{}, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize delivery queue client", "error", err)
		return subsvc.NoopQueue{}, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
