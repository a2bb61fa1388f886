package repository

import (
	"context"

	"dealer_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID, scope Scope) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	CountByStatus(ctx context.Context, scope Scope) (map[domain.Status]int, error)
}

// LeadWriter provides write operations for the lead lifecycle.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error)
	// AssignManagerIfUnassigned returns ErrAlreadyAssigned when another writer won.
	AssignManagerIfUnassigned(ctx context.Context, id uuid.UUID, managerID uuid.UUID) (Lead, error)
	// SetStatusByManager returns ErrTakenByOther when the lead belongs to another manager.
	SetStatusByManager(ctx context.Context, id uuid.UUID, managerID uuid.UUID, fields domain.StatusFields) (Lead, error)
}

// DispatchMarker flips the one-way sent_to_telegram flag.
type DispatchMarker interface {
	// MarkSentToTelegram reports false when the flag was already set.
	MarkSentToTelegram(ctx context.Context, id uuid.UUID) (bool, error)
}

// HistoryStore appends and reads the audit trail.
type HistoryStore interface {
	AddHistory(ctx context.Context, params AddHistoryParams) (History, error)
	ListHistory(ctx context.Context, leadID uuid.UUID) ([]History, error)
}

// Store is the full lead gateway. InTx runs fn against a transaction-bound store.
type Store interface {
	LeadReader
	LeadWriter
	DispatchMarker
	HistoryStore
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// Compile-time check that Repository implements Store.
var _ Store = (*Repository)(nil)
