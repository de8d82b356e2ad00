package tenant

import (
	"errors"
	"time"
)

// Tenant is an organisational unit (a restaurant) that manager users belong to.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Filter controls which tenants List returns.
type Filter struct {
	Q           string // optional: case-insensitive match on name or address
	CurrentPage int    // 1-based, default 1
	PerPage     int    // default DefaultPerPage
}

// DefaultPerPage is the page size used when a list request gives none.
const DefaultPerPage = 6

// ErrTenantNotFound is returned when a tenant id does not exist.
var ErrTenantNotFound = errors.New("tenant not found")
