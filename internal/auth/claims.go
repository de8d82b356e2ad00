package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes. Cookie max-ages are derived from these.
const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 365 * 24 * time.Hour
)

// DefaultIssuer is the iss claim of every token this service signs.
const DefaultIssuer = "auth-service"

// Principal is the identity a token asserts.
type Principal struct {
	Subject   string
	Role      Role
	Tenant    string
	FirstName string
	LastName  string
	Email     string
}

// PrincipalFor builds the token principal for a user.
// Subject and Tenant are decimal strings.
func PrincipalFor(u *User) Principal {
	p := Principal{
		Subject:   strconv.FormatInt(u.ID, 10),
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
	if id := u.TenantID(); id != 0 {
		p.Tenant = strconv.FormatInt(id, 10)
	}
	return p
}

// Claims are the JWT claims carried by both token kinds.
// TokenID (and jti) are set on refresh tokens only.
type Claims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	Tenant    string `json:"tenant,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	TokenID   int64  `json:"id,omitempty"`
}

// UserID parses the subject as a numeric user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric subject", ErrTokenInvalid)
	}
	return id, nil
}

// Issuer signs and verifies the service's tokens.
type Issuer struct {
	keys   *Keys
	issuer string
	now    func() time.Time
}

// NewIssuer creates an Issuer. An empty issuer name means DefaultIssuer.
func NewIssuer(keys *Keys, issuer string) *Issuer {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Issuer{keys: keys, issuer: issuer, now: time.Now}
}

func (i *Issuer) claimsFor(p Principal, ttl time.Duration) Claims {
	now := i.now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:      p.Role,
		Tenant:    p.Tenant,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
	}
}

// IssueAccessToken signs an RS256 access token valid for AccessTokenTTL.
// It returns ErrKeyUnavailable when no private key is loaded.
func (i *Issuer) IssueAccessToken(p Principal) (string, error) {
	key, err := i.keys.SigningKey()
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, i.claimsFor(p, AccessTokenTTL))
	token.Header["kid"] = i.keys.KeyID()

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs an HS256 refresh token valid for RefreshTokenTTL.
// tokenID is the id of the persisted record and becomes both jti and id.
func (i *Issuer) IssueRefreshToken(p Principal, tokenID int64) (string, error) {
	secret, err := i.keys.RefreshSecret()
	if err != nil {
		return "", err
	}

	claims := i.claimsFor(p, RefreshTokenTTL)
	claims.ID = strconv.FormatInt(tokenID, 10)
	claims.TokenID = tokenID

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies an access token's RS256 signature, issuer and
// expiry. Any verification failure is reported as ErrTokenInvalid.
func (i *Issuer) ParseAccessToken(raw string) (*Claims, error) {
	key, err := i.keys.VerifyingKey()
	if err != nil {
		return nil, err
	}
	return i.parse(raw, jwt.SigningMethodRS256, key)
}

// ParseRefreshToken verifies a refresh token's HS256 signature, issuer and
// expiry, and requires a numeric jti naming the persisted record.
func (i *Issuer) ParseRefreshToken(raw string) (*Claims, error) {
	secret, err := i.keys.RefreshSecret()
	if err != nil {
		return nil, err
	}

	claims, err := i.parse(raw, jwt.SigningMethodHS256, secret)
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(claims.ID, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: missing or non-numeric jti", ErrTokenInvalid)
	}
	if claims.TokenID != 0 && claims.TokenID != id {
		return nil, fmt.Errorf("%w: id does not match jti", ErrTokenInvalid)
	}
	claims.TokenID = id

	return claims, nil
}

func (i *Issuer) parse(raw string, method jwt.SigningMethod, key any) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(_ *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}

	return claims, nil
}

// IsTokenError reports whether err is a client-side token problem rather than
// a server fault.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrTokenRevoked)
}
