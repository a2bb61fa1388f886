package repository

import (
	"context"
	"time"

	"dealer_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// History is one append-only audit row.
type History struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	ChangedBy *uuid.UUID
	OldStatus *domain.Status
	NewStatus domain.Status
	Comment   string
	CreatedAt time.Time
}

type AddHistoryParams struct {
	LeadID    uuid.UUID
	ChangedBy *uuid.UUID
	OldStatus *domain.Status
	NewStatus domain.Status
	Comment   string
}

func scanHistory(row pgx.Row) (History, error) {
	var h History
	var oldStatus *string
	var newStatus string
	if err := row.Scan(&h.ID, &h.LeadID, &h.ChangedBy, &oldStatus, &newStatus, &h.Comment, &h.CreatedAt); err != nil {
		return History{}, err
	}
	if oldStatus != nil {
		s := domain.Status(*oldStatus)
		h.OldStatus = &s
	}
	h.NewStatus = domain.Status(newStatus)
	return h, nil
}

func (r *Repository) AddHistory(ctx context.Context, params AddHistoryParams) (History, error) {
	var oldStatus *string
	if params.OldStatus != nil {
		s := string(*params.OldStatus)
		oldStatus = &s
	}
	return scanHistory(r.q.QueryRow(ctx, `
		INSERT INTO lead_history (lead_id, changed_by, old_status, new_status, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, lead_id, changed_by, old_status, new_status, comment, created_at
	`, params.LeadID, params.ChangedBy, oldStatus, string(params.NewStatus), params.Comment))
}

// ListHistory returns the audit trail oldest first.
func (r *Repository) ListHistory(ctx context.Context, leadID uuid.UUID) ([]History, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, lead_id, changed_by, old_status, new_status, comment, created_at
		FROM lead_history
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]History, 0)
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
