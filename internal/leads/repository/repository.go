package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dealer_crm_backend/internal/leads/domain"
	"dealer_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrAlreadyAssigned is returned by a conditional assignment that lost a race.
	ErrAlreadyAssigned = errors.New("lead already has a manager")
	// ErrTakenByOther is returned when a manager acts on a lead owned by someone else.
	ErrTakenByOther = errors.New("lead is assigned to another manager")
)

type Repository struct {
	pool *pgxpool.Pool
	q    db.Querier
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

// InTx runs fn inside one transaction. Nested calls reuse the open transaction.
func (r *Repository) InTx(ctx context.Context, fn func(tx Store) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{q: tx})
	})
}

// Scope restricts reads to one tenant. A nil TenantID means unrestricted.
type Scope struct {
	TenantID *uuid.UUID
}

type Lead struct {
	ID                uuid.UUID
	Name              string
	Phone             string
	City              string
	Region            *string
	TenantID          *uuid.UUID
	AssignedManagerID *uuid.UUID
	Status            domain.Status
	RejectionReason   *string
	ConversionValue   *int64
	Source            domain.Source
	Comment           *string
	SentToTelegram    bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ClosedAt          *time.Time
}

// StatusFields returns the status-dependent columns of the lead.
func (l Lead) StatusFields() domain.StatusFields {
	return domain.StatusFields{
		Status:          l.Status,
		RejectionReason: l.RejectionReason,
		ConversionValue: l.ConversionValue,
		ClosedAt:        l.ClosedAt,
	}
}

type CreateLeadParams struct {
	Name              string
	Phone             string
	City              string
	Region            *string
	TenantID          *uuid.UUID
	AssignedManagerID *uuid.UUID
	Source            domain.Source
	Comment           *string
}

// UpdateLeadParams is the full editable field set. Every column is written.
type UpdateLeadParams struct {
	Name              string
	Phone             string
	City              string
	Region            *string
	TenantID          *uuid.UUID
	AssignedManagerID *uuid.UUID
	Comment           *string
	Fields            domain.StatusFields
}

type ListParams struct {
	Scope     Scope
	Status    *domain.Status
	ManagerID *uuid.UUID
	Source    *domain.Source
	Search    string
	Offset    int
	Limit     int
}

const leadColumns = `id, name, phone, city, region, tenant_id, assigned_manager_id, status, rejection_reason,
	conversion_value, source, comment, sent_to_telegram, created_at, updated_at, closed_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var status, source string
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.City, &lead.Region, &lead.TenantID, &lead.AssignedManagerID,
		&status, &lead.RejectionReason, &lead.ConversionValue, &source, &lead.Comment, &lead.SentToTelegram,
		&lead.CreatedAt, &lead.UpdatedAt, &lead.ClosedAt,
	)
	lead.Status = domain.Status(status)
	lead.Source = domain.Source(source)
	return lead, err
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	lead, err := scanLead(r.q.QueryRow(ctx, `
		INSERT INTO leads (name, phone, city, region, tenant_id, assigned_manager_id, status, source, comment)
		VALUES ($1, $2, $3, $4, $5, $6, 'new', $7, $8)
		RETURNING `+leadColumns,
		params.Name, params.Phone, params.City, params.Region, params.TenantID, params.AssignedManagerID,
		string(params.Source), params.Comment,
	))
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, scope Scope) (Lead, error) {
	lead, err := scanLead(r.q.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)
	`, id, scope.TenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	lead, err := scanLead(r.q.QueryRow(ctx, `
		UPDATE leads SET
			name = $2, phone = $3, city = $4, region = $5, tenant_id = $6, assigned_manager_id = $7,
			comment = $8, status = $9, rejection_reason = $10, conversion_value = $11, closed_at = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, params.Name, params.Phone, params.City, params.Region, params.TenantID, params.AssignedManagerID,
		params.Comment, string(params.Fields.Status), params.Fields.RejectionReason, params.Fields.ConversionValue,
		params.Fields.ClosedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) AssignManagerIfUnassigned(ctx context.Context, id uuid.UUID, managerID uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.q.QueryRow(ctx, `
		UPDATE leads SET assigned_manager_id = $2, updated_at = now()
		WHERE id = $1 AND assigned_manager_id IS NULL
		RETURNING `+leadColumns,
		id, managerID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, r.missOrConflict(ctx, id, ErrAlreadyAssigned)
	}
	return lead, err
}

func (r *Repository) SetStatusByManager(ctx context.Context, id uuid.UUID, managerID uuid.UUID, fields domain.StatusFields) (Lead, error) {
	lead, err := scanLead(r.q.QueryRow(ctx, `
		UPDATE leads SET
			status = $3, assigned_manager_id = $2, rejection_reason = $4, conversion_value = $5, closed_at = $6,
			updated_at = now()
		WHERE id = $1 AND (assigned_manager_id IS NULL OR assigned_manager_id = $2)
		RETURNING `+leadColumns,
		id, managerID, string(fields.Status), fields.RejectionReason, fields.ConversionValue, fields.ClosedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, r.missOrConflict(ctx, id, ErrTakenByOther)
	}
	return lead, err
}

func (r *Repository) MarkSentToTelegram(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE leads SET sent_to_telegram = true, updated_at = now()
		WHERE id = $1 AND sent_to_telegram = false
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) missOrConflict(ctx context.Context, id uuid.UUID, conflict error) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return conflict
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads l WHERE %s", whereClause)
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT `+prefixColumns("l.", leadColumns)+`
		FROM leads l
		WHERE %s
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIdx, argIdx+1)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	whereClauses := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	addEquals := func(column string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Scope.TenantID != nil {
		addEquals("l.tenant_id", *params.Scope.TenantID)
	}
	if params.Status != nil {
		addEquals("l.status", string(*params.Status))
	}
	if params.ManagerID != nil {
		addEquals("l.assigned_manager_id", *params.ManagerID)
	}
	if params.Source != nil {
		addEquals("l.source", string(*params.Source))
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(l.name ILIKE $%d OR l.phone ILIKE $%d OR l.city ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+search+"%")
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func (r *Repository) CountByStatus(ctx context.Context, scope Scope) (map[domain.Status]int, error) {
	rows, err := r.q.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE ($1::uuid IS NULL OR tenant_id = $1)
		GROUP BY status
	`, scope.TenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int, 4)
	for _, s := range domain.AllStatuses() {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
