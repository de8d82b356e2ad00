package auth

import (
	"errors"
	"time"

	"github.com/panks123/pizza-app-auth-service/internal/tenant"
)

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleAdmin manages tenants and every user account.
	RoleAdmin Role = "admin"

	// RoleManager runs a single tenant and must be attached to one.
	RoleManager Role = "manager"

	// RoleCustomer is the role given to every self-registered account.
	RoleCustomer Role = "customer"
)

// ValidRoles is the set of roles a user account may hold.
var ValidRoles = []Role{RoleAdmin, RoleManager, RoleCustomer}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents a registered account.
type User struct {
	ID           int64          `json:"id"`
	FirstName    string         `json:"firstName"`
	LastName     string         `json:"lastName"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"` // never serialised
	Role         Role           `json:"role"`
	Tenant       *tenant.Tenant `json:"tenant"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// TenantID returns the id of the user's tenant, or 0 when there is none.
func (u *User) TenantID() int64 {
	if u.Tenant == nil {
		return 0
	}
	return u.Tenant.ID
}

// RefreshToken is the persisted record backing one issued refresh token.
// Its ID is the jti of the signed token; deleting the row revokes the token.
type RefreshToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrKeyUnavailable     = errors.New("signing key unavailable")
)
