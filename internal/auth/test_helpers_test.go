package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/database"
	_ "github.com/panks123/pizza-app-auth-service/migrations"
)

// testRefreshSecret is long enough to pass config validation.
const testRefreshSecret = "test-refresh-secret-at-least-32-chars"

var (
	rsaKeyOnce sync.Once
	rsaKey     *rsa.PrivateKey
	errRSAKey  error
)

// testRSAKey returns a 2048-bit key shared by the whole test binary;
// generating one per test is slow.
func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	rsaKeyOnce.Do(func() {
		rsaKey, errRSAKey = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, errRSAKey)
	return rsaKey
}

func testKeys(t *testing.T) *Keys {
	t.Helper()
	return NewKeys(testRSAKey(t), []byte(testRefreshSecret))
}

// testDB creates a temporary SQLite database with every migration applied.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Driver:      database.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	require.NoError(t, db.Migrate(ctx))
	return db
}

// seedTestUser inserts a user with the given email and role and returns it.
// The password is "secret-password".
func seedTestUser(t *testing.T, repo UserRepository, email string, role Role) *User {
	t.Helper()

	hash, err := HashPassword("secret-password")
	require.NoError(t, err)

	u := &User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}
