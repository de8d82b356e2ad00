package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panks123/pizza-app-auth-service/internal/audit"
	"github.com/panks123/pizza-app-auth-service/internal/auth"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/database"
	"github.com/panks123/pizza-app-auth-service/internal/tenant"
)

func TestAdminEndpoints_RoleGate(t *testing.T) {
	env := newTestEnv(t)
	admin := env.loginAs(t, auth.RoleAdmin)
	manager := env.loginAs(t, auth.RoleManager)
	customer := env.register(t, "customer@example.com")

	endpoints := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/users", nil},
		{http.MethodGet, "/users/1", nil},
		{http.MethodPost, "/tenants", map[string]string{"name": "Gate", "address": "Gate St"}},
		{http.MethodGet, "/audit", nil},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			rec := env.do(t, ep.method, ep.path, ep.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "no credential")

			rec = env.do(t, ep.method, ep.path, ep.body, manager.access)
			assert.Equal(t, http.StatusForbidden, rec.Code, "manager")
			assert.Equal(t, "You don't have enough permissions", decodeError(t, rec).Message)

			rec = env.do(t, ep.method, ep.path, ep.body, customer.access)
			assert.Equal(t, http.StatusForbidden, rec.Code, "customer")

			rec = env.do(t, ep.method, ep.path, ep.body, admin.access)
			assert.Less(t, rec.Code, 300, "admin: %s", rec.Body.String())
		})
	}
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.loginAs(t, auth.RoleAdmin)

	tn := &tenant.Tenant{Name: "Pizza Palace", Address: "12 High St"}
	require.NoError(t, env.tenants.Create(ctx, tn))

	t.Run("manager with tenant", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/users", map[string]any{
			"firstName": "Mona",
			"lastName":  "Manager",
			"email":     "mona@example.com",
			"password":  "secret123",
			"role":      "manager",
			"tenantId":  tn.ID,
		}, admin.access)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var body idResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		user, err := env.users.GetByID(ctx, body.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleManager, user.Role)
		require.NotNil(t, user.Tenant)
		assert.Equal(t, tn.ID, user.Tenant.ID)
		assert.Equal(t, "Pizza Palace", user.Tenant.Name)

		// A created account can sign in straight away.
		rec = env.do(t, http.MethodPost, "/auth/login", map[string]string{
			"email": "mona@example.com", "password": "secret123",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("manager without tenant", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/users", map[string]any{
			"firstName": "No", "lastName": "Tenant", "email": "nt@example.com",
			"password": "secret123", "role": "manager",
		}, admin.access)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body validationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "tenantId", body.Errors[0].Path)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/users", map[string]any{
			"firstName": "Lost", "lastName": "Tenant", "email": "lost@example.com",
			"password": "secret123", "role": "manager", "tenantId": 9999,
		}, admin.access)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Tenant does not exist", decodeError(t, rec).Message)
	})

	t.Run("invalid role", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/users", map[string]any{
			"firstName": "Bad", "lastName": "Role", "email": "role@example.com",
			"password": "secret123", "role": "superuser",
		}, admin.access)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Role must be one of")
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/users", map[string]any{
			"firstName": "Admin", "lastName": "Again", "email": "admin@example.com",
			"password": "secret123", "role": "admin",
		}, admin.access)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email already exists!", decodeError(t, rec).Message)
	})
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.loginAs(t, auth.RoleAdmin)
	for _, email := range []string{"ann@example.com", "bob@example.com", "cat@example.com"} {
		env.register(t, email)
	}

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantLen   int
		wantPage  int
		wantPer   int
	}{
		{"defaults", "", 4, 4, 1, 6},
		{"role filter", "?role=customer", 3, 3, 1, 6},
		{"search", "?q=bob", 1, 1, 1, 6},
		{"paging", "?perPage=2&currentPage=2", 4, 2, 2, 2},
		{"bad paging falls back", "?perPage=abc&currentPage=-3", 4, 4, 1, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/users"+tt.query, nil, admin.access)
			require.Equal(t, http.StatusOK, rec.Code)

			var body listResponse[map[string]any]
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantTotal, body.Total)
			assert.Len(t, body.Data, tt.wantLen)
			assert.Equal(t, tt.wantPage, body.CurrentPage)
			assert.Equal(t, tt.wantPer, body.PerPage)
			for _, u := range body.Data {
				assert.NotContains(t, u, "password")
			}
		})
	}
}

func TestGetUpdateDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.loginAs(t, auth.RoleAdmin)
	customer := env.register(t, "promote@example.com")
	path := "/users/" + strconv.FormatInt(customer.id, 10)

	tn := &tenant.Tenant{Name: "Slice", Address: "3 Low Rd"}
	require.NoError(t, env.tenants.Create(ctx, tn))

	rec := env.do(t, http.MethodGet, path, nil, admin.access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "promote@example.com")

	rec = env.do(t, http.MethodPatch, path, map[string]any{
		"firstName": "Promoted", "lastName": "User", "role": "manager", "tenantId": tn.ID,
	}, admin.access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	user, err := env.users.GetByID(ctx, customer.id)
	require.NoError(t, err)
	assert.Equal(t, "Promoted", user.FirstName)
	assert.Equal(t, auth.RoleManager, user.Role)
	assert.Equal(t, tn.ID, user.TenantID())
	assert.Equal(t, "promote@example.com", user.Email, "email is not editable")

	rec = env.do(t, http.MethodDelete, path, nil, admin.access)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, path, nil, admin.access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User does not exist", decodeError(t, rec).Message)

	// The deleted user's sessions went with the account.
	records, err := env.tokens.ListByUser(ctx, customer.id)
	require.NoError(t, err)
	assert.Empty(t, records)
	rec = env.do(t, http.MethodPost, "/auth/refresh", nil, customer.refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	entries, _, err := env.audit.List(ctx, audit.Filter{EntityType: audit.EntityUser, EntityID: strconv.FormatInt(customer.id, 10)})
	require.NoError(t, err)
	assert.Len(t, entries, 3, "register, update and delete recorded")
}

func TestUserRoutes_BadParams(t *testing.T) {
	env := newTestEnv(t)
	admin := env.loginAs(t, auth.RoleAdmin)

	for _, id := range []string{"abc", "0", "-4"} {
		rec := env.do(t, http.MethodGet, "/users/"+id, nil, admin.access)
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "Invalid url param", decodeError(t, rec).Message, id)
	}

	rec := env.do(t, http.MethodDelete, "/users/424242", nil, admin.access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User does not exist", decodeError(t, rec).Message)

	rec = env.do(t, http.MethodPatch, "/users/424242", map[string]any{
		"firstName": "A", "lastName": "B", "role": "customer",
	}, admin.access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User does not exist", decodeError(t, rec).Message)
}

// newMockEnv wires the server to a go-sqlmock database and returns a Bearer
// header value for an admin so requests reach the store.
func newMockEnv(t *testing.T) (*testEnv, sqlmock.Sqlmock, string) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() }) //nolint:errcheck // Test cleanup

	env := newTestEnvWith(t, database.New(sqlDB, database.DriverSQLite), testKeys(t))
	token, err := env.issuer.IssueAccessToken(auth.Principal{Subject: "1", Role: auth.RoleAdmin})
	require.NoError(t, err)
	return env, mock, "Bearer " + token
}

func TestStoreFailure_InternalError(t *testing.T) {
	env, mock, bearer := newMockEnv(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("connection reset by peer"))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrCodeInternal, decodeError(t, rec).Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTimeout_Unavailable(t *testing.T) {
	env, mock, bearer := newMockEnv(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(context.DeadlineExceeded)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrCodeUnavailable, decodeError(t, rec).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_StoreFailureSetsNoCookies(t *testing.T) {
	env, mock, _ := newMockEnv(t)
	mock.ExpectQuery("INSERT INTO users").WillReturnError(errors.New("disk I/O error"))

	rec := env.do(t, http.MethodPost, "/auth/register", map[string]string{
		"firstName": "Disk", "lastName": "Full", "email": "disk@example.com", "password": "secret123",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.NotContains(t, rec.Body.String(), "disk I/O")
}
