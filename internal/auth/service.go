package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/panks123/pizza-app-auth-service/internal/audit"
	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/logging"
	"github.com/panks123/pizza-app-auth-service/internal/tenant"
)

// Session is the outcome of a successful register, login or refresh.
// The HTTP layer turns the two tokens into cookies.
type Session struct {
	User         *User
	AccessToken  string
	RefreshToken string
}

// RegisterInput is a self-registration request. Inputs are already validated.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// CreateUserInput is an admin request to create an account with any role.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      Role
	TenantID  int64
}

// Service runs the token lifecycle: register, login, refresh, logout.
//
// Thread Safety:
//   - Service holds no mutable state; all methods are safe for concurrent use.
type Service struct {
	users    UserRepository
	tokens   TokenRepository
	issuer   *Issuer
	recorder audit.Recorder
	logger   *logging.Logger
}

// NewService creates a Service. A nil recorder records nothing.
func NewService(users UserRepository, tokens TokenRepository, issuer *Issuer, recorder audit.Recorder, logger *logging.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		users:    users,
		tokens:   tokens,
		issuer:   issuer,
		recorder: recorder,
		logger:   logger.With("component", "auth"),
	}
}

// Register creates a customer account and opens a session for it.
// A taken email yields ErrEmailExists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	s.logger.Debug("new request to register a user",
		"firstName", in.FirstName,
		"lastName", in.LastName,
		"email", in.Email,
		"password", logging.Redacted,
	)

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         RoleCustomer,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user has been registered", "id", user.ID)

	session, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.Event{
		Action:     audit.ActionRegister,
		EntityType: audit.EntityUser,
		EntityID:   formatID(user.ID),
		UserID:     formatID(user.ID),
	})

	return session, nil
}

// Login checks the credentials and opens a session.
//
// An unknown email and a wrong password both yield ErrInvalidCredentials so
// the caller cannot tell which one failed.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.recordFailedLogin(ctx, "")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		s.recordFailedLogin(ctx, formatID(user.ID))
		return nil, ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user has been logged in", "id", user.ID)

	s.recorder.Record(ctx, audit.Event{
		Action:     audit.ActionLogin,
		EntityType: audit.EntitySession,
		UserID:     formatID(user.ID),
	})

	return session, nil
}

func (s *Service) recordFailedLogin(ctx context.Context, userID string) {
	s.recorder.Record(ctx, audit.Event{
		Action:     audit.ActionLoginFailed,
		EntityType: audit.EntitySession,
		UserID:     userID,
	})
}

// Refresh consumes the refresh token described by claims and issues a new
// pair. The consumed record is deleted; presenting it again fails.
//
// The user must still exist (ErrUserNotFound otherwise). The new tokens carry
// the user's current profile and role.
func (s *Service) Refresh(ctx context.Context, claims *Claims) (*Session, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := PrincipalFor(user)
	access, err := s.issuer.IssueAccessToken(p)
	if err != nil {
		return nil, err
	}

	next, err := s.tokens.Rotate(ctx, claims.TokenID, userID)
	if err != nil {
		return nil, err
	}

	refresh, err := s.issuer.IssueRefreshToken(p, next.ID)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.Event{
		Action:     audit.ActionRefresh,
		EntityType: audit.EntitySession,
		UserID:     formatID(userID),
	})

	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes the refresh token described by claims. Revoking an
// already-revoked token succeeds.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if err := s.tokens.Delete(ctx, claims.TokenID); err != nil {
		return err
	}
	s.logger.Info("refresh token has been deleted", "id", claims.TokenID)

	s.recorder.Record(ctx, audit.Event{
		Action:     audit.ActionLogout,
		EntityType: audit.EntitySession,
		UserID:     claims.Subject,
	})
	return nil
}

// Self returns the account named by the claims' subject.
func (s *Service) Self(ctx context.Context, claims *Claims) (*User, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// CreateUser creates an account on behalf of an admin.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if !IsValidRole(in.Role) {
		return nil, fmt.Errorf("creating user: unknown role %q", in.Role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if in.TenantID != 0 {
		user.Tenant = &tenant.Tenant{ID: in.TenantID}
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// openSession issues an access token, persists a refresh record and issues
// the matching refresh token, in that order.
func (s *Service) openSession(ctx context.Context, user *User) (*Session, error) {
	p := PrincipalFor(user)

	access, err := s.issuer.IssueAccessToken(p)
	if err != nil {
		return nil, err
	}

	record, err := s.tokens.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	refresh, err := s.issuer.IssueRefreshToken(p, record.ID)
	if err != nil {
		return nil, err
	}

	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
