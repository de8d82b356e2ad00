package api

import (
	"net/http"
	"time"

	"github.com/panks123/pizza-app-auth-service/internal/auth"
)

// idResponse is the body of every create/login style response.
type idResponse struct {
	ID int64 `json:"id"`
}

// handleRegister creates a customer account and signs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	session, err := s.auth.Register(r.Context(), auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setSessionCookies(w, session)
	writeJSON(w, http.StatusCreated, idResponse{ID: session.User.ID})
}

// handleLogin checks credentials and signs the user in.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, idResponse{ID: session.User.ID})
}

// handleSelf returns the signed-in user. The password digest is never part
// of the User JSON.
func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Self(r.Context(), claimsFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleRefresh rotates the presented refresh token.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	session, err := s.auth.Refresh(r.Context(), refreshClaimsFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, idResponse{ID: session.User.ID})
}

// handleLogout revokes the presented refresh token and clears both cookies.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), refreshClaimsFromContext(r.Context())); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, struct{}{})
}

// setSessionCookies writes both token cookies. Handlers call it only after
// the whole operation has succeeded.
func (s *Server) setSessionCookies(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, s.tokenCookie(accessTokenCookie, session.AccessToken, int(auth.AccessTokenTTL/time.Second)))
	http.SetCookie(w, s.tokenCookie(refreshTokenCookie, session.RefreshToken, int(auth.RefreshTokenTTL/time.Second)))
}

// clearSessionCookies overwrites both token cookies with empty, expired ones.
func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		c := s.tokenCookie(name, "", -1)
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (s *Server) tokenCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.cfg.Cookies.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
