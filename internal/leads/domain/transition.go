package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatusFields are the columns whose presence depends on the status.
type StatusFields struct {
	Status          Status
	RejectionReason *string
	ConversionValue *int64
	ClosedAt        *time.Time
}

// ApplyStatus computes the status-dependent columns for a write of next over prev.
// rejection_reason survives only in rejected, conversion_value and closed_at only in
// closed. closed_at is stamped when entering closed and kept when re-saving closed.
func ApplyStatus(prev StatusFields, next Status, reason *string, value *int64, now time.Time) StatusFields {
	out := StatusFields{Status: next}

	switch next {
	case StatusRejected:
		out.RejectionReason = trimmedOrNil(reason)
	case StatusClosed:
		out.ConversionValue = value
		if prev.Status == StatusClosed && prev.ClosedAt != nil {
			stamped := *prev.ClosedAt
			out.ClosedAt = &stamped
		} else {
			stamped := now
			out.ClosedAt = &stamped
		}
	}

	return out
}

// Snapshot is the part of a lead the audit trail compares.
type Snapshot struct {
	Status    Status
	ManagerID *uuid.UUID
	Comment   *string
}

// HistoryEntry is one row to append to the audit trail.
type HistoryEntry struct {
	OldStatus *Status
	NewStatus Status
	Comment   string
}

// DiffHistory returns the audit rows an edit from before to after produces.
// Status and manager changes get one row each. A comment change alone yields a
// single row. An edit with no difference yields none.
func DiffHistory(before, after Snapshot, note string) []HistoryEntry {
	entries := make([]HistoryEntry, 0, 2)
	old := before.Status

	statusChanged := before.Status != after.Status
	managerChanged := !sameID(before.ManagerID, after.ManagerID)

	if statusChanged {
		entries = append(entries, HistoryEntry{
			OldStatus: &old,
			NewStatus: after.Status,
			Comment:   withNote(CommentStatusChanged, note),
		})
	}
	if managerChanged {
		entries = append(entries, HistoryEntry{
			OldStatus: &old,
			NewStatus: after.Status,
			Comment:   withNote(CommentManagerChanged, note),
		})
	}
	if !statusChanged && !managerChanged && textOf(before.Comment) != textOf(after.Comment) {
		entries = append(entries, HistoryEntry{
			OldStatus: &old,
			NewStatus: after.Status,
			Comment:   withNote(CommentCommentUpdated, note),
		})
	}

	return entries
}

func withNote(base, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return base
	}
	return base + ": " + note
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func textOf(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
