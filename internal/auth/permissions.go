package auth

// CanAccess reports whether role is in the allowed list.
// An empty allow-list admits nobody.
func CanAccess(role Role, allowed ...Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// RequiresTenant reports whether accounts with role must belong to a tenant.
func RequiresTenant(role Role) bool {
	return role == RoleManager
}
