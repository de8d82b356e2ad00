// Package auth provides authentication and authorisation for the auth service.
//
// It implements:
//   - bcrypt password hashing (cost 10)
//   - RS256 access tokens (1 hour) verifiable with the published public key
//   - HS256 refresh tokens (1 year) backed by a persisted record per session
//   - refresh rotation: the presented record is consumed and a new one issued
//   - a 3-tier role model (admin, manager, customer) checked by CanAccess
//
// A refresh token is usable only while its record exists. Logout deletes the
// record; rotation replaces it inside a single transaction, so a record can be
// consumed at most once.
//
// Access tokens carry the user's role, tenant and profile as claims. They are
// not refreshed when the account changes; the next rotation picks the change up.
package auth
