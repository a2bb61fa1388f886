// Package domain holds the lead pipeline vocabulary and the pure rules that keep
// a lead's status fields and its audit trail consistent.
package domain

import "strings"

// Status is a lead pipeline state.
type Status string

const (
	StatusNew        Status = "new"
	StatusProcessing Status = "processing"
	StatusClosed     Status = "closed"
	StatusRejected   Status = "rejected"
)

var knownStatuses = map[Status]struct{}{
	StatusNew:        {},
	StatusProcessing: {},
	StatusClosed:     {},
	StatusRejected:   {},
}

// Valid reports whether s is one of the four pipeline states.
func (s Status) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// AllStatuses returns the pipeline states in board order.
func AllStatuses() []Status {
	return []Status{StatusNew, StatusProcessing, StatusClosed, StatusRejected}
}

// Source is the channel a lead came from.
type Source string

const (
	SourceWebsite   Source = "website"
	SourceInstagram Source = "instagram"
	SourceFacebook  Source = "facebook"
	SourceManual    Source = "manual"
	SourceOther     Source = "other"
)

var sourceLabels = map[Source]string{
	SourceWebsite:   "Сайт",
	SourceInstagram: "Instagram",
	SourceFacebook:  "Facebook",
	SourceManual:    "Вручную",
	SourceOther:     "Другое",
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	_, ok := sourceLabels[s]
	return ok
}

// ParseSource maps free input to a Source; unknown values become SourceOther.
func ParseSource(raw string) Source {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return SourceWebsite
	}
	if !s.Valid() {
		return SourceOther
	}
	return s
}

// SourceLabel is the human label shown in notifications.
func SourceLabel(s Source) string {
	if label, ok := sourceLabels[s]; ok {
		return label
	}
	return sourceLabels[SourceOther]
}

// History comments written by the lifecycle.
const (
	CommentCreatedWebsite = "Заявка с сайта"
	CommentCreatedManual  = "Заявка создана вручную"
	CommentAutoAssigned   = "Менеджер назначен автоматически"
	CommentManagerChanged = "Менеджер изменен"
	CommentCommentUpdated = "Комментарий обновлен"
	CommentStatusChanged  = "Статус изменен"
	CommentAcceptedViaBot = "Взят в работу через TG"
	CommentRejectedViaBot = "Отклонено через TG"
	RejectionReasonViaBot = "Отклонено менеджером через Telegram"
)

// CreationComment is the history comment for the initial "new" row.
func CreationComment(s Source) string {
	switch s {
	case SourceWebsite:
		return CommentCreatedWebsite
	case SourceManual:
		return CommentCreatedManual
	default:
		return "Заявка: " + SourceLabel(s)
	}
}
