package api

import (
	"errors"
	"net/http"

	"github.com/panks123/pizza-app-auth-service/internal/audit"
)

// errNoAuditStore is returned by /audit when no audit repository is wired.
var errNoAuditStore = errors.New("audit logging not configured")

// handleListAuditLogs returns paginated audit entries with optional filters.
//
// Query parameters:
//   - action: filter by action (register, login, login_failed, create, ...)
//   - entityType: filter by entity type (user, tenant, session)
//   - entityId: filter by specific entity ID
//   - userId: filter by the acting user
//   - currentPage, perPage: paging (perPage defaults to 6)
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		s.writeServiceError(w, r, errNoAuditStore)
		return
	}

	q := r.URL.Query()
	page, perPage := pageParams(r)

	entries, total, err := s.audit.List(r.Context(), audit.Filter{
		Action:      q.Get("action"),
		EntityType:  q.Get("entityType"),
		EntityID:    q.Get("entityId"),
		UserID:      q.Get("userId"),
		CurrentPage: page,
		PerPage:     perPage,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if perPage > audit.MaxPerPage {
		perPage = audit.MaxPerPage
	}
	writeJSON(w, http.StatusOK, listResponse[audit.Entry]{
		Data:        entries,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
	})
}
