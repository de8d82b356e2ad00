package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/database"
)

func countTokens(t *testing.T, db *database.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM refresh_tokens").Scan(&n))
	return n
}

func TestTokenRepository_CreateAndGetByID(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, NewUserRepository(db), "token@example.com", RoleCustomer)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatal("Create() should return the generated id")
	}
	if got := created.ExpiresAt.Sub(created.CreatedAt); got != RefreshTokenTTL {
		t.Errorf("expiry window = %v, want %v", got, RefreshTokenTTL)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("UserID = %d, want %d", got.UserID, user.ID)
	}
	if !got.ExpiresAt.Equal(created.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, created.ExpiresAt)
	}
}

func TestTokenRepository_GetByID_Missing(t *testing.T) {
	repo := NewTokenRepository(testDB(t))

	_, err := repo.GetByID(context.Background(), 999)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("GetByID(missing) error = %v, want ErrTokenRevoked", err)
	}
}

func TestTokenRepository_DeleteIsIdempotent(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, NewUserRepository(db), "logout@example.com", RoleCustomer)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))
	require.NoError(t, repo.Delete(ctx, created.ID), "second delete is not an error")

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestTokenRepository_MultipleSessions(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, NewUserRepository(db), "multi@example.com", RoleCustomer)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	first, err := repo.Create(ctx, user.ID)
	require.NoError(t, err)
	second, err := repo.Create(ctx, user.ID)
	require.NoError(t, err)

	tokens, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, second.ID, tokens[0].ID, "newest first")
	assert.Equal(t, first.ID, tokens[1].ID)
}

func TestTokenRepository_Rotate(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, NewUserRepository(db), "rotate@example.com", RoleCustomer)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	old, err := repo.Create(ctx, user.ID)
	require.NoError(t, err)

	next, err := repo.Rotate(ctx, old.ID, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, next.ID)

	_, err = repo.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, ErrTokenRevoked, "consumed record is gone")

	_, err = repo.GetByID(ctx, next.ID)
	assert.NoError(t, err, "successor is live")
}

func TestTokenRepository_RotateConsumedRecord(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, NewUserRepository(db), "race@example.com", RoleCustomer)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	old, err := repo.Create(ctx, user.ID)
	require.NoError(t, err)

	_, err = repo.Rotate(ctx, old.ID, user.ID)
	require.NoError(t, err)

	_, err = repo.Rotate(ctx, old.ID, user.ID)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Equal(t, 1, countTokens(t, db), "losing rotation must not leave a successor behind")
}

func TestTokenRepository_RotateOtherUsersRecord(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	owner := seedTestUser(t, users, "owner@example.com", RoleCustomer)
	other := seedTestUser(t, users, "other@example.com", RoleCustomer)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	record, err := repo.Create(ctx, owner.ID)
	require.NoError(t, err)

	_, err = repo.Rotate(ctx, record.ID, other.ID)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = repo.GetByID(ctx, record.ID)
	assert.NoError(t, err, "owner's record is untouched")
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, NewUserRepository(db), "expired@example.com", RoleCustomer)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	repo.now = func() time.Time { return time.Now().Add(-2 * RefreshTokenTTL) }
	_, err := repo.Create(ctx, user.ID)
	require.NoError(t, err)

	repo.now = time.Now
	live, err := repo.Create(ctx, user.ID)
	require.NoError(t, err)

	tokens, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1, "expired records are not listed")

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(ctx, live.ID)
	assert.NoError(t, err)
}

func TestTokenRepository_CascadeOnUserDelete(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	user := seedTestUser(t, users, "cascade@example.com", RoleCustomer)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	record, err := repo.Create(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, user.ID))

	_, err = repo.GetByID(ctx, record.ID)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestTokenRepository_RotateRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close() //nolint:errcheck // Test cleanup

	repo := NewTokenRepository(database.New(sqlDB, database.DriverPostgres))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO refresh_tokens .* RETURNING id`).
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(10), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = repo.Rotate(context.Background(), 10, 1)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_RotateStoreFault(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close() //nolint:errcheck // Test cleanup

	repo := NewTokenRepository(database.New(sqlDB, database.DriverSQLite))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO refresh_tokens`).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err = repo.Rotate(context.Background(), 10, 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTokenRevoked), "a store fault is not a revoked token")
	assert.NoError(t, mock.ExpectationsWereMet())
}
