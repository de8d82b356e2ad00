package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/database"
)

// TokenRepository defines the interface for refresh-token record persistence.
//
// A record's existence is the only authority on whether a refresh token is
// still usable; revocation deletes the row.
type TokenRepository interface {
	Create(ctx context.Context, userID int64) (*RefreshToken, error)
	GetByID(ctx context.Context, id int64) (*RefreshToken, error)
	Delete(ctx context.Context, id int64) error
	Rotate(ctx context.Context, oldID, userID int64) (*RefreshToken, error)
	ListByUser(ctx context.Context, userID int64) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLTokenRepository implements TokenRepository on SQLite or PostgreSQL.
type SQLTokenRepository struct {
	db  *database.DB
	now func() time.Time
}

// NewTokenRepository creates a new SQL-backed token repository.
func NewTokenRepository(db *database.DB) *SQLTokenRepository {
	return &SQLTokenRepository{db: db, now: time.Now}
}

// Create persists a new record for userID expiring RefreshTokenTTL from now.
func (r *SQLTokenRepository) Create(ctx context.Context, userID int64) (*RefreshToken, error) {
	t, err := r.insert(ctx, r.db, userID)
	if err != nil {
		return nil, fmt.Errorf("creating refresh token: %w", err)
	}
	return t, nil
}

func (r *SQLTokenRepository) insert(ctx context.Context, q database.DBTX, userID int64) (*RefreshToken, error) {
	now := r.now().UTC().Truncate(time.Second)
	t := &RefreshToken{
		UserID:    userID,
		ExpiresAt: now.Add(RefreshTokenTTL),
		CreatedAt: now,
	}

	err := q.QueryRowContext(ctx,
		`INSERT INTO refresh_tokens (user_id, expires_at, created_at)
		 VALUES (?, ?, ?) RETURNING id`,
		userID, t.ExpiresAt.Format(time.RFC3339), now.Format(time.RFC3339),
	).Scan(&t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID returns the live record with id, or ErrTokenRevoked when no such
// record exists (used, revoked or never issued).
func (r *SQLTokenRepository) GetByID(ctx context.Context, id int64) (*RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM refresh_tokens WHERE id = ?`, id)

	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("getting refresh token: %w", err)
	}
	return t, nil
}

// Delete revokes a record. Deleting a missing record is not an error.
func (r *SQLTokenRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting refresh token: %w", err)
	}
	return nil
}

// Rotate replaces record oldID with a fresh record for userID.
//
// The successor is inserted before the predecessor is deleted, inside one
// transaction. If the predecessor is already gone (a concurrent rotation or a
// logout won the race) the transaction rolls back and ErrTokenRevoked is
// returned, so at most one caller can rotate a given record.
func (r *SQLTokenRepository) Rotate(ctx context.Context, oldID, userID int64) (*RefreshToken, error) {
	var next *RefreshToken

	err := r.db.WithTx(ctx, func(tx database.DBTX) error {
		t, err := r.insert(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("creating successor token: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			"DELETE FROM refresh_tokens WHERE id = ? AND user_id = ?", oldID, userID)
		if err != nil {
			return fmt.Errorf("deleting consumed token: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking consumed token: %w", err)
		}
		if n != 1 {
			return ErrTokenRevoked
		}

		next = t
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("rotating refresh token: %w", err)
	}

	return next, nil
}

// ListByUser returns the user's unexpired records, newest first.
func (r *SQLTokenRepository) ListByUser(ctx context.Context, userID int64) ([]RefreshToken, error) {
	now := r.now().UTC().Format(time.RFC3339)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, expires_at, created_at
		 FROM refresh_tokens
		 WHERE user_id = ? AND expires_at > ?
		 ORDER BY id DESC`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("listing refresh tokens: %w", err)
	}
	defer rows.Close()

	tokens := []RefreshToken{}
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning refresh token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating refresh tokens: %w", err)
	}
	return tokens, nil
}

// DeleteExpired removes records past their expiry and returns how many went.
func (r *SQLTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := r.now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // supported by both drivers
	return count, nil
}

func scanToken(s scanner) (*RefreshToken, error) {
	var t RefreshToken
	var expiresAt, createdAt string

	if err := s.Scan(&t.ID, &t.UserID, &expiresAt, &createdAt); err != nil {
		return nil, err
	}

	t.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &t, nil
}
