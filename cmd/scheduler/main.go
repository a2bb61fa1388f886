package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dealer_crm_backend/internal/adapters"
	"dealer_crm_backend/internal/events"
	identityrepo "dealer_crm_backend/internal/identity/repository"
	"dealer_crm_backend/internal/leads"
	"dealer_crm_backend/internal/scheduler"
	"dealer_crm_backend/internal/telegram"
	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/db"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	// Worker-side dispatch wiring (no HTTP handlers required). Retries are
	// driven by asynq itself, so the leads module gets no retry scheduler.
	directory := adapters.NewDirectory(identityrepo.New(pool))
	leadsModule := leads.NewModule(pool, leads.Dependencies{
		Tenants:   directory,
		Staff:     directory,
		Messenger: adapters.NewTelegramMessenger(telegram.NewClient(cfg, log)),
	}, eventBus, validator.New(), cfg, log)

	worker, err := scheduler.NewWorker(cfg, leadsModule.Dispatcher(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
