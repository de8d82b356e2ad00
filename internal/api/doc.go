// Package api implements the HTTP API of the auth service.
//
// This package provides:
//   - /auth endpoints: register, login, self, refresh, logout
//   - admin CRUD for users and tenants, and the audit trail
//   - /.well-known/jwks.json so other services can verify access tokens
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// Tokens travel in HttpOnly, SameSite=Strict cookies: accessToken (1 hour)
// and refreshToken (1 year). Access tokens are also accepted as a Bearer
// header. Refresh tokens are accepted from the cookie only, and only while
// their backing record exists.
//
// A missing or bad credential is 401; a valid credential with the wrong role
// is 403. Unknown users and tenants are 400, matching existing clients.
package api
