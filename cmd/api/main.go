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

	"dealer_crm_backend/internal/adapters"
	"dealer_crm_backend/internal/email"
	"dealer_crm_backend/internal/events"
	apphttp "dealer_crm_backend/internal/http"
	"dealer_crm_backend/internal/http/router"
	"dealer_crm_backend/internal/identity"
	"dealer_crm_backend/internal/leads"
	"dealer_crm_backend/internal/leads/ports"
	"dealer_crm_backend/internal/notification"
	"dealer_crm_backend/internal/scheduler"
	"dealer_crm_backend/internal/telegram"
	"dealer_crm_backend/internal/telegrambot"
	"dealer_crm_backend/migrations"
	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/db"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
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

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	val := validator.New()

	telegramClient := telegram.NewClient(cfg, log)
	if !cfg.IsTelegramEnabled() {
		log.Warn("TELEGRAM_BOT_TOKEN not configured; manager notifications will fail and be retried")
	}

	retry, closeScheduler := initNotifyRetryScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	links, closeLinks := initLinkStore(cfg, log)
	if closeLinks != nil {
		defer closeLinks()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	identityModule := identity.NewModule(pool, val)
	directory := adapters.NewDirectory(identityModule.Repository())

	leadsModule := leads.NewModule(pool, leads.Dependencies{
		Tenants:   directory,
		Staff:     directory,
		Messenger: adapters.NewTelegramMessenger(telegramClient),
		Retry:     retry,
	}, eventBus, val, cfg, log)

	botModule := telegrambot.NewModule(
		identityModule.Repository(),
		leadsModule.ManagementService(),
		telegramClient,
		links,
		eventBus,
		cfg,
		log,
	)
	if err := botModule.RegisterWebhook(ctx); err != nil {
		log.Warn("failed to register telegram webhook", "error", err)
	}

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(email.NewSender(cfg), identityModule.Repository(), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			identityModule,
			leadsModule,
			botModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func initNotifyRetryScheduler(cfg config.SchedulerConfig, log *logger.Logger) (ports.NotifyRetryScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; failed notifications will not be retried")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize notify retry client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initLinkStore(cfg config.LinkStoreConfig, log *logger.Logger) (telegrambot.LinkStore, func()) {
	if cfg.GetLinkStore() != "redis" {
		return telegrambot.NewMemoryStore(cfg.GetLinkPendingTTL()), nil
	}

	client, err := scheduler.NewRedisClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize redis link store", "error", err)
		panic("failed to initialize redis link store: " + err.Error())
	}
	log.Info("telegram link state stored in redis")

	return telegrambot.NewRedisStore(client, cfg.GetLinkPendingTTL()), func() {
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
