package auth

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/config"
)

// Keys holds the signing material loaded at startup.
//
// The RSA private key signs access tokens and the public key verifies them;
// the symmetric secret both signs and verifies refresh tokens.
// Keys is immutable after construction and safe for concurrent use.
type Keys struct {
	private       *rsa.PrivateKey
	public        *rsa.PublicKey
	refreshSecret []byte
	kid           string
}

// NewKeys builds Keys from already-parsed material. The public key is derived
// from private. Either argument may be empty; the matching accessor then
// returns ErrKeyUnavailable.
func NewKeys(private *rsa.PrivateKey, refreshSecret []byte) *Keys {
	k := &Keys{private: private, refreshSecret: refreshSecret}
	if private != nil {
		k.public = &private.PublicKey
		k.kid = thumbprint(k.public)
	}
	return k
}

// LoadKeys reads the PEM key files named in cfg.
//
// It fails fast when the private key or the refresh secret is missing, so a
// misconfigured service never starts. When PublicKeyPath is empty the public
// key is derived from the private key; when it is set it must match.
func LoadKeys(cfg config.KeysConfig) (*Keys, error) {
	if cfg.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("%w: refresh token secret is empty", ErrKeyUnavailable)
	}

	privatePEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading private key: %w", ErrKeyUnavailable, err)
	}
	private, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	keys := NewKeys(private, []byte(cfg.RefreshTokenSecret))

	if cfg.PublicKeyPath != "" {
		publicPEM, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading public key: %w", err)
		}
		public, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
		if err != nil {
			return nil, fmt.Errorf("parsing public key: %w", err)
		}
		if !public.Equal(keys.public) {
			return nil, fmt.Errorf("public key does not match private key")
		}
	}

	return keys, nil
}

// SigningKey returns the RSA private key for access tokens.
func (k *Keys) SigningKey() (*rsa.PrivateKey, error) {
	if k == nil || k.private == nil {
		return nil, ErrKeyUnavailable
	}
	return k.private, nil
}

// VerifyingKey returns the RSA public key for access tokens.
func (k *Keys) VerifyingKey() (*rsa.PublicKey, error) {
	if k == nil || k.public == nil {
		return nil, ErrKeyUnavailable
	}
	return k.public, nil
}

// RefreshSecret returns the HMAC secret for refresh tokens.
func (k *Keys) RefreshSecret() ([]byte, error) {
	if k == nil || len(k.refreshSecret) == 0 {
		return nil, ErrKeyUnavailable
	}
	return k.refreshSecret, nil
}

// KeyID returns the RFC 7638 thumbprint of the public key, used as "kid".
func (k *Keys) KeyID() string {
	if k == nil {
		return ""
	}
	return k.kid
}

// JWK is a single RSA JSON Web Key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSet is a JSON Web Key Set document.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// JWKS renders the access-token verification key as a JWK Set, letting other
// services verify access tokens without sharing any secret.
func (k *Keys) JWKS() (*JWKSet, error) {
	public, err := k.VerifyingKey()
	if err != nil {
		return nil, err
	}
	n, e := encodePublicKey(public)
	return &JWKSet{Keys: []JWK{{
		Kty: "RSA",
		Use: "sig",
		Alg: jwt.SigningMethodRS256.Alg(),
		Kid: k.kid,
		N:   n,
		E:   e,
	}}}, nil
}

func encodePublicKey(pub *rsa.PublicKey) (n, e string) {
	n = base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e = base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	return n, e
}

// thumbprint hashes the required JWK members in lexicographic order.
func thumbprint(pub *rsa.PublicKey) string {
	n, e := encodePublicKey(pub)
	canonical, _ := json.Marshal(struct { //nolint:errcheck // strings always marshal
		E   string `json:"e"`
		Kty string `json:"kty"`
		N   string `json:"n"`
	}{E: e, Kty: "RSA", N: n})
	sum := sha256.Sum256(canonical)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
