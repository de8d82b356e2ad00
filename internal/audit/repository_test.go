package audit_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panks123/pizza-app-auth-service/internal/audit"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/database"
	_ "github.com/panks123/pizza-app-auth-service/migrations"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Driver:      database.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "audit-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestRepository_CreateAndList(t *testing.T) {
	repo := audit.NewRepository(testDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []*audit.Entry{
		{Action: audit.ActionRegister, EntityType: audit.EntityUser, EntityID: "1", UserID: "1", Source: audit.SourceAPI, CreatedAt: base},
		{Action: audit.ActionLogin, EntityType: audit.EntitySession, UserID: "1", Source: audit.SourceAPI, CreatedAt: base.Add(time.Second)},
		{
			Action: audit.ActionCreate, EntityType: audit.EntityTenant, EntityID: "7", UserID: "2", Source: audit.SourceAPI,
			Details: map[string]any{"name": "Pizza North"}, CreatedAt: base.Add(2 * time.Second),
		},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
		assert.Len(t, e.ID, 36)
	}

	got, total, err := repo.List(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 3)
	assert.Equal(t, audit.ActionCreate, got[0].Action, "newest first")
	assert.Equal(t, "Pizza North", got[0].Details["name"])
	assert.Equal(t, base.Add(2*time.Second), got[0].CreatedAt)
	assert.Equal(t, audit.ActionRegister, got[2].Action)
	assert.Empty(t, got[1].EntityID)
}

func TestRepository_ListFilters(t *testing.T) {
	repo := audit.NewRepository(testDB(t))
	ctx := context.Background()

	for i, action := range []string{audit.ActionLogin, audit.ActionLoginFailed, audit.ActionLogin, audit.ActionLogout} {
		require.NoError(t, repo.Create(ctx, &audit.Entry{
			Action:     action,
			EntityType: audit.EntitySession,
			UserID:     []string{"1", "2"}[i%2],
			Source:     audit.SourceAPI,
		}))
	}

	tests := []struct {
		name   string
		filter audit.Filter
		want   int
	}{
		{"by action", audit.Filter{Action: audit.ActionLogin}, 2},
		{"by user", audit.Filter{UserID: "2"}, 2},
		{"by action and user", audit.Filter{Action: audit.ActionLogin, UserID: "1"}, 2},
		{"no match", audit.Filter{EntityType: audit.EntityTenant}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestRepository_ListPagination(t *testing.T) {
	repo := audit.NewRepository(testDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &audit.Entry{Action: audit.ActionLogin, EntityType: audit.EntitySession, Source: audit.SourceAPI}))
	}

	page, total, err := repo.List(ctx, audit.Filter{CurrentPage: 3, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 1)

	page, _, err = repo.List(ctx, audit.Filter{PerPage: 10000})
	require.NoError(t, err)
	assert.Len(t, page, 5)
}
