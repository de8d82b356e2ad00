package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/database"
)

// Repository defines the interface for tenant persistence.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	List(ctx context.Context, filter Filter) ([]Tenant, int, error)
	Update(ctx context.Context, t *Tenant) error
	Delete(ctx context.Context, id int64) error
}

// SQLRepository implements Repository on SQLite or PostgreSQL.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a new SQL-backed tenant repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const tenantColumns = "id, name, address, created_at, updated_at"

// Create inserts a tenant and sets its generated ID and timestamps.
func (r *SQLRepository) Create(ctx context.Context, t *Tenant) error {
	now := time.Now().UTC().Format(time.RFC3339)
	t.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	t.UpdatedAt = t.CreatedAt

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tenants (name, address, created_at, updated_at)
		 VALUES (?, ?, ?, ?) RETURNING id`,
		t.Name, t.Address, now, now,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("creating tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID.
func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = ?", id)
	return scanTenant(row)
}

// List returns one page of tenants, newest first, and the total match count.
func (r *SQLRepository) List(ctx context.Context, filter Filter) ([]Tenant, int, error) {
	page, perPage := normalisePage(filter.CurrentPage, filter.PerPage)

	where := ""
	var args []any
	if q := strings.TrimSpace(filter.Q); q != "" {
		where = "WHERE LOWER(name) LIKE LOWER(?) OR LOWER(address) LIKE LOWER(?)"
		term := "%" + q + "%"
		args = append(args, term, term)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tenants "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tenants: %w", err)
	}

	query := "SELECT " + tenantColumns + " FROM tenants " + where + " ORDER BY id DESC LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from parameterised conditions
	rows, err := r.db.QueryContext(ctx, query, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	tenants := []Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tenants: %w", err)
	}

	return tenants, total, nil
}

// Update replaces a tenant's name and address.
func (r *SQLRepository) Update(ctx context.Context, t *Tenant) error {
	now := time.Now().UTC().Format(time.RFC3339)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET name = ?, address = ?, updated_at = ? WHERE id = ?",
		t.Name, t.Address, now, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // supported by both drivers
	if rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// Delete removes a tenant. Users of the tenant keep their accounts with no tenant.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // supported by both drivers
	if rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(s scanner) (*Tenant, error) {
	var t Tenant
	var createdAt, updatedAt string

	if err := s.Scan(&t.ID, &t.Name, &t.Address, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("scanning tenant: %w", err)
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &t, nil
}

// normalisePage applies the list defaults: page 1, DefaultPerPage rows.
func normalisePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return page, perPage
}
