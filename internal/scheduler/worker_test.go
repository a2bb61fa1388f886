package scheduler

import (
	"context"
	"errors"
	"testing"

	"dealer_crm_backend/internal/leads/dispatch"
	"dealer_crm_backend/platform/apperr"
	"dealer_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeRedeliverer struct {
	calls []uuid.UUID
	res   dispatch.Result
	err   error
}

func (f *fakeRedeliverer) Redeliver(_ context.Context, leadID uuid.UUID) (dispatch.Result, error) {
	f.calls = append(f.calls, leadID)
	return f.res, f.err
}

func notifyTask(t *testing.T, leadID string) *asynq.Task {
	t.Helper()
	task, err := NewLeadNotifyTask(LeadNotifyPayload{LeadID: leadID})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestLeadNotifyTaskCarriesLeadID(t *testing.T) {
	id := uuid.New()
	task := notifyTask(t, id.String())
	if task.Type() != TaskLeadNotify {
		t.Fatalf("unexpected type %q", task.Type())
	}
	payload, err := ParseLeadNotifyPayload(task)
	if err != nil || payload.LeadID != id.String() {
		t.Fatalf("unexpected payload %+v, %v", payload, err)
	}
}

func TestHandleLeadNotifyDelivers(t *testing.T) {
	leads := &fakeRedeliverer{res: dispatch.Result{Outcome: dispatch.OutcomeSent}}
	w := newWorker(leads, logger.Discard())
	id := uuid.New()

	if err := w.handleLeadNotify(context.Background(), notifyTask(t, id.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads.calls) != 1 || leads.calls[0] != id {
		t.Fatalf("unexpected calls: %v", leads.calls)
	}
}

func TestHandleLeadNotifyFailureIsRetried(t *testing.T) {
	leads := &fakeRedeliverer{err: dispatch.ErrDeliveryFailed}
	w := newWorker(leads, logger.Discard())

	err := w.handleLeadNotify(context.Background(), notifyTask(t, uuid.NewString()))
	if !errors.Is(err, dispatch.ErrDeliveryFailed) {
		t.Fatalf("expected delivery failure, got %v", err)
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatal("delivery failures must be retried")
	}
}

func TestHandleLeadNotifySkipsRetryForMissingLead(t *testing.T) {
	leads := &fakeRedeliverer{err: apperr.NotFound("Lead not found")}
	w := newWorker(leads, logger.Discard())

	err := w.handleLeadNotify(context.Background(), notifyTask(t, uuid.NewString()))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandleLeadNotifyRejectsBadPayload(t *testing.T) {
	leads := &fakeRedeliverer{}
	w := newWorker(leads, logger.Discard())

	err := w.handleLeadNotify(context.Background(), notifyTask(t, "nope"))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if len(leads.calls) != 0 {
		t.Fatal("expected no redelivery")
	}
}

func TestNilClientIgnoresRetries(t *testing.T) {
	var c *Client
	if err := c.ScheduleNotifyRetry(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
