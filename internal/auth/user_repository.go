package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/database"
	"github.com/panks123/pizza-app-auth-service/internal/tenant"
)

// DefaultPerPage is the user list page size when none is requested.
const DefaultPerPage = 6

// ListFilter controls which users List returns.
type ListFilter struct {
	Q           string // optional: case-insensitive match on "first last" or email
	Role        Role   // optional: exact role match
	CurrentPage int    // 1-based, default 1
	PerPage     int    // default DefaultPerPage
}

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// SQLUserRepository implements UserRepository on SQLite or PostgreSQL.
type SQLUserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *database.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// userSelect joins the tenant so a user is always returned with it.
const userSelect = `SELECT u.id, u.first_name, u.last_name, u.email, u.password_hash, u.role,
	t.id, t.name, t.address, t.created_at, t.updated_at,
	u.created_at, u.updated_at
	FROM users u LEFT JOIN tenants t ON t.id = u.tenant_id`

// Create inserts a new user account and sets its generated ID.
// A duplicate email yields ErrEmailExists.
func (r *SQLUserRepository) Create(ctx context.Context, user *User) error {
	now := time.Now().UTC().Format(time.RFC3339)
	user.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	user.UpdatedAt = user.CreatedAt

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		user.FirstName, user.LastName, user.Email, user.PasswordHash,
		string(user.Role), nullInt64(user.TenantID()), now, now,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

// GetByID retrieves a user, with tenant, by ID.
func (r *SQLUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getUser(ctx, userSelect+" WHERE u.id = ?", id)
}

// GetByEmailWithPassword retrieves a user by email including the password
// digest. It is the only lookup callers should use for credential checks.
func (r *SQLUserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, userSelect+" WHERE u.email = ?", email)
}

// List returns one page of users ordered by id descending, and the total
// number of users matching the filter.
func (r *SQLUserRepository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	page, perPage := filter.CurrentPage, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	var conditions []string
	var args []any

	if q := strings.TrimSpace(filter.Q); q != "" {
		term := "%" + q + "%"
		conditions = append(conditions,
			"(LOWER(u.first_name || ' ' || u.last_name) LIKE LOWER(?) OR LOWER(u.email) LIKE LOWER(?))")
		args = append(args, term, term)
	}
	if filter.Role != "" {
		conditions = append(conditions, "u.role = ?")
		args = append(args, string(filter.Role))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users u"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		userSelect+where+" ORDER BY u.id DESC LIMIT ? OFFSET ?", //nolint:gosec // WHERE built from parameterised conditions
		append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating users: %w", err)
	}

	return users, total, nil
}

// Update modifies a user's mutable fields (first name, last name, role, tenant).
// Email and password are not editable through this path.
func (r *SQLUserRepository) Update(ctx context.Context, user *User) error {
	now := time.Now().UTC().Format(time.RFC3339)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, role = ?, tenant_id = ?, updated_at = ? WHERE id = ?`,
		user.FirstName, user.LastName, string(user.Role), nullInt64(user.TenantID()), now, user.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // supported by both drivers
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user account. Their refresh-token records go with it.
func (r *SQLUserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // supported by both drivers
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Count returns the total number of user accounts.
func (r *SQLUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

func (r *SQLUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, query, args...))
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*User, error) {
	var u User
	var role string
	var tenantID sql.NullInt64
	var tenantName, tenantAddress, tenantCreated, tenantUpdated sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &role,
		&tenantID, &tenantName, &tenantAddress, &tenantCreated, &tenantUpdated,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = Role(role)
	if tenantID.Valid {
		t := &tenant.Tenant{
			ID:      tenantID.Int64,
			Name:    tenantName.String,
			Address: tenantAddress.String,
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, tenantCreated.String) //nolint:errcheck // format is controlled
		t.UpdatedAt, _ = time.Parse(time.RFC3339, tenantUpdated.String) //nolint:errcheck // format is controlled
		u.Tenant = t
	}

	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &u, nil
}

func nullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a UNIQUE constraint violation on
// either backend.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
