package auth

import "testing"

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		allowed []Role
		want    bool
	}{
		{"admin allowed", RoleAdmin, []Role{RoleAdmin}, true},
		{"manager in list", RoleManager, []Role{RoleAdmin, RoleManager}, true},
		{"customer not allowed", RoleCustomer, []Role{RoleAdmin}, false},
		{"empty allow-list", RoleAdmin, nil, false},
		{"unknown role", Role("superuser"), []Role{RoleAdmin}, false},
		{"empty role", Role(""), []Role{RoleAdmin}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.role, tt.allowed...); got != tt.want {
				t.Errorf("CanAccess(%q, %v) = %v, want %v", tt.role, tt.allowed, got, tt.want)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false, want true", r)
		}
	}
	for _, r := range []Role{"", "owner", "ADMIN"} {
		if IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = true, want false", r)
		}
	}
}

func TestRequiresTenant(t *testing.T) {
	if !RequiresTenant(RoleManager) {
		t.Error("manager accounts must require a tenant")
	}
	if RequiresTenant(RoleAdmin) || RequiresTenant(RoleCustomer) {
		t.Error("only manager accounts require a tenant")
	}
}
