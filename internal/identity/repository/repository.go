// Package repository reads tenants and staff users. The lead core only writes the
// Telegram link columns; everything else is owned by the admin flows.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"dealer_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrTelegramTaken is returned when the Telegram account is bound to another user.
	ErrTelegramTaken = errors.New("telegram account already linked")
)

const (
	RoleSuperAdmin = "super_admin"
	RoleDealer     = "dealer"
	RoleManager    = "manager"

	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Tenant struct {
	ID         uuid.UUID
	Name       string
	City       string
	Region     *string
	Address    *string
	OwnerName  *string
	OwnerPhone *string
	OwnerEmail *string
	Status     string
	CreatedAt  time.Time
}

type User struct {
	ID               uuid.UUID
	Email            string
	Username         *string
	Role             string
	TenantID         *uuid.UUID
	TelegramID       *int64
	TelegramUsername *string
	FullName         string
	Phone            string
	IsActive         bool
	CreatedAt        time.Time
}

// HasTelegram reports whether the user can receive bot messages.
func (u User) HasTelegram() bool {
	return u.TelegramID != nil && *u.TelegramID != 0
}

const tenantColumns = `id, name, city, region, address, owner_name, owner_phone, owner_email, status, created_at`

const userColumns = `id, email, username, role, tenant_id, telegram_id, telegram_username, full_name, phone, is_active, created_at`

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.City, &t.Region, &t.Address, &t.OwnerName, &t.OwnerPhone, &t.OwnerEmail, &t.Status, &t.CreatedAt)
	return t, err
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Role, &u.TenantID, &u.TelegramID, &u.TelegramUsername, &u.FullName, &u.Phone, &u.IsActive, &u.CreatedAt)
	return u, err
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// ListActiveTenantsByCity returns active tenants in the city, oldest first.
func (r *Repository) ListActiveTenantsByCity(ctx context.Context, city string) ([]Tenant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE city = $1 AND status = 'active'
		ORDER BY created_at ASC, id ASC
	`, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := make([]Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *Repository) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	t, err := scanTenant(r.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, ErrNotFound
	}
	return t, err
}

// ListActiveManagers returns active managers of the tenant ordered by created_at.
// With withTelegram set, only managers with a linked chat are returned.
func (r *Repository) ListActiveManagers(ctx context.Context, tenantID uuid.UUID, withTelegram bool) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE tenant_id = $1
			AND role = 'manager'
			AND is_active = true
			AND ($2::boolean = false OR telegram_id IS NOT NULL)
		ORDER BY created_at ASC, id ASC
	`, tenantID, withTelegram)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// ListActiveSuperAdmins returns every active super admin.
func (r *Repository) ListActiveSuperAdmins(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = 'super_admin' AND is_active = true
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE telegram_id = $1
	`, telegramID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// FindUsersByIDSuffix returns users whose textual id ends with code, ignoring case.
func (r *Repository) FindUsersByIDSuffix(ctx context.Context, code string) ([]User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return []User{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(id::text) LIKE '%' || lower($1)
		ORDER BY created_at ASC
		LIMIT 10
	`, escapeLike(code))
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// LinkTelegram stores the chat handle on the user.
func (r *Repository) LinkTelegram(ctx context.Context, userID uuid.UUID, telegramID int64, username *string) (User, error) {
	return linkTelegram(ctx, r.pool, userID, telegramID, username)
}

func linkTelegram(ctx context.Context, q db.Querier, userID uuid.UUID, telegramID int64, username *string) (User, error) {
	u, err := scanUser(q.QueryRow(ctx, `
		UPDATE users
		SET telegram_id = $2, telegram_username = $3
		WHERE id = $1
		RETURNING `+userColumns+`
	`, userID, telegramID, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if isUniqueViolation(err) {
		return User{}, ErrTelegramTaken
	}
	return u, err
}

// UnlinkTelegram clears the chat handle so the account can be linked again.
func (r *Repository) UnlinkTelegram(ctx context.Context, userID uuid.UUID) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET telegram_id = NULL, telegram_username = NULL
		WHERE id = $1
		RETURNING `+userColumns+`
	`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
