package ports

import (
	"context"

	"github.com/google/uuid"
)

// Button is one inline menu button. Exactly one of CallbackData or URL is set.
type Button struct {
	Text         string
	CallbackData string
	URL          string
}

// OutboundMessage is a formatted chat message with an optional inline menu.
type OutboundMessage struct {
	ChatID  int64
	HTML    string
	Buttons [][]Button
}

// Messenger delivers chat messages. Implementations return an error on any
// transport failure; callers decide how to degrade.
type Messenger interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// NotifyRetryScheduler queues a later notify attempt for a lead.
type NotifyRetryScheduler interface {
	ScheduleNotifyRetry(ctx context.Context, leadID uuid.UUID) error
}
