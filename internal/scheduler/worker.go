package scheduler

import (
	"context"
	"errors"
	"fmt"

	"dealer_crm_backend/internal/leads/dispatch"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// LeadRedeliverer retries a lead card delivery.
type LeadRedeliverer interface {
	Redeliver(ctx context.Context, leadID uuid.UUID) (dispatch.Result, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	leads  LeadRedeliverer
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, leads LeadRedeliverer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := newWorker(leads, log)
	w.server = server
	return w, nil
}

func newWorker(leads LeadRedeliverer, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{mux: mux, leads: leads, log: log}
	mux.HandleFunc(TaskLeadNotify, w.handleLeadNotify)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadNotify(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadNotifyPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	res, err := w.leads.Redeliver(ctx, leadID)
	switch {
	case err == nil:
	case errors.Is(err, dispatch.ErrDeliveryFailed):
		w.log.Warn("lead notify retry failed", "leadId", leadID, "assignedTo", res.AssignedTo)
		return err
	case apperr.Is(err, apperr.KindNotFound):
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	default:
		return err
	}

	switch res.Outcome {
	case dispatch.OutcomeSent:
		w.log.Info("lead notify retry delivered", "leadId", leadID, "assignedTo", res.AssignedTo)
	case dispatch.OutcomeNoManager:
		w.log.Warn("lead notify retry found no manager", "leadId", leadID)
	}
	return nil
}
