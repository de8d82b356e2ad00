package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/panks123/pizza-app-auth-service/internal/audit"
	"github.com/panks123/pizza-app-auth-service/internal/auth"
	"github.com/panks123/pizza-app-auth-service/internal/tenant"
)

// listResponse is the paginated list envelope shared by users, tenants and
// audit entries.
type listResponse[T any] struct {
	Data        []T `json:"data"`
	Total       int `json:"total"`
	PerPage     int `json:"perPage"`
	CurrentPage int `json:"currentPage"`
}

// handleCreateUser creates an account with any role on behalf of an admin.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if req.TenantID != 0 && !s.tenantExists(w, r, req.TenantID) {
		return
	}

	user, err := s.auth.CreateUser(r.Context(), auth.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      auth.Role(req.Role),
		TenantID:  req.TenantID,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	actor := claimsFromContext(r.Context())
	s.logger.Info("user created", "user_id", user.ID, "role", user.Role, "created_by", actor.Subject)
	s.recordChange(r, audit.ActionCreate, audit.EntityUser, user.ID, map[string]any{"role": string(user.Role)})

	writeJSON(w, http.StatusCreated, idResponse{ID: user.ID})
}

// handleListUsers returns one page of users.
//
// Query parameters:
//   - q: case-insensitive match on full name or email
//   - role: exact role
//   - currentPage, perPage: paging (defaults 1 and 6)
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	filter := auth.ListFilter{
		Q:           strings.TrimSpace(r.URL.Query().Get("q")),
		Role:        auth.Role(r.URL.Query().Get("role")),
		CurrentPage: page,
		PerPage:     perPage,
	}

	users, total, err := s.users.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[auth.User]{
		Data:        users,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
	})
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(chi.URLParam(r, "id"))
	if !ok {
		writeBadRequest(w, msgInvalidURLParam)
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser replaces a user's name, role and tenant.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(chi.URLParam(r, "id"))
	if !ok {
		writeBadRequest(w, msgInvalidURLParam)
		return
	}

	var req updateUserRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if req.TenantID != 0 && !s.tenantExists(w, r, req.TenantID) {
		return
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Role = auth.Role(req.Role)
	user.Tenant = nil
	if req.TenantID != 0 {
		user.Tenant = &tenant.Tenant{ID: req.TenantID}
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordChange(r, audit.ActionUpdate, audit.EntityUser, id, map[string]any{"role": req.Role})
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

// handleDeleteUser removes an account and, with it, all of its sessions.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(chi.URLParam(r, "id"))
	if !ok {
		writeBadRequest(w, msgInvalidURLParam)
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordChange(r, audit.ActionDelete, audit.EntityUser, id, nil)
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

// tenantExists writes "Tenant does not exist" and returns false when id is unknown.
func (s *Server) tenantExists(w http.ResponseWriter, r *http.Request, id int64) bool {
	if _, err := s.tenants.GetByID(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return false
	}
	return true
}

// recordChange records an admin change made by the signed-in user.
func (s *Server) recordChange(r *http.Request, action, entityType string, entityID int64, details map[string]any) {
	e := audit.Event{
		Action:     action,
		EntityType: entityType,
		EntityID:   strconv.FormatInt(entityID, 10),
		Source:     audit.SourceAPI,
		Details:    details,
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		e.UserID = claims.Subject
	}
	s.recorder.Record(r.Context(), e)
}
