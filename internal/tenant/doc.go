// Package tenant stores the tenants (restaurants) that manager accounts are
// attached to.
package tenant
