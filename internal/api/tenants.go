package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/panks123/pizza-app-auth-service/internal/audit"
	"github.com/panks123/pizza-app-auth-service/internal/tenant"
)

// handleCreateTenant creates a tenant.
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	t := &tenant.Tenant{Name: req.Name, Address: req.Address}
	if err := s.tenants.Create(r.Context(), t); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info("tenant has been created", "id", t.ID)
	s.recordChange(r, audit.ActionCreate, audit.EntityTenant, t.ID, map[string]any{"name": t.Name})

	writeJSON(w, http.StatusCreated, idResponse{ID: t.ID})
}

// handleListTenants returns one page of tenants.
//
// Query parameters:
//   - q: case-insensitive match on name or address
//   - currentPage, perPage: paging (defaults 1 and 6)
func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)

	tenants, total, err := s.tenants.List(r.Context(), tenant.Filter{
		Q:           strings.TrimSpace(r.URL.Query().Get("q")),
		CurrentPage: page,
		PerPage:     perPage,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[tenant.Tenant]{
		Data:        tenants,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
	})
}

// handleGetTenant returns a single tenant by ID.
func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(chi.URLParam(r, "id"))
	if !ok {
		writeBadRequest(w, msgInvalidURLParam)
		return
	}

	t, err := s.tenants.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTenant replaces a tenant's name and address.
func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(chi.URLParam(r, "id"))
	if !ok {
		writeBadRequest(w, msgInvalidURLParam)
		return
	}

	var req tenantRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.tenants.Update(r.Context(), &tenant.Tenant{ID: id, Name: req.Name, Address: req.Address}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info("tenant has been updated", "id", id)
	s.recordChange(r, audit.ActionUpdate, audit.EntityTenant, id, nil)

	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

// handleDeleteTenant removes a tenant. Its users stay, detached.
func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(chi.URLParam(r, "id"))
	if !ok {
		writeBadRequest(w, msgInvalidURLParam)
		return
	}

	if err := s.tenants.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info("tenant has been deleted", "id", id)
	s.recordChange(r, audit.ActionDelete, audit.EntityTenant, id, nil)

	writeJSON(w, http.StatusOK, idResponse{ID: id})
}
