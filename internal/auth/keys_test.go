package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/config"
)

func writeKeyFiles(t *testing.T, key *rsa.PrivateKey) (privatePath, publicPath string) {
	t.Helper()
	dir := t.TempDir()

	privatePath = filepath.Join(dir, "private.pem")
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(privatePath, privatePEM, 0600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPath = filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(publicPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0600))

	return privatePath, publicPath
}

func TestLoadKeys(t *testing.T) {
	key := testRSAKey(t)
	privatePath, publicPath := writeKeyFiles(t, key)

	keys, err := LoadKeys(config.KeysConfig{
		PrivateKeyPath:     privatePath,
		PublicKeyPath:      publicPath,
		RefreshTokenSecret: testRefreshSecret,
	})
	require.NoError(t, err)

	signing, err := keys.SigningKey()
	require.NoError(t, err)
	assert.True(t, signing.Equal(key))

	secret, err := keys.RefreshSecret()
	require.NoError(t, err)
	assert.Equal(t, testRefreshSecret, string(secret))
	assert.NotEmpty(t, keys.KeyID())
}

func TestLoadKeys_DerivesPublicKey(t *testing.T) {
	privatePath, _ := writeKeyFiles(t, testRSAKey(t))

	keys, err := LoadKeys(config.KeysConfig{PrivateKeyPath: privatePath, RefreshTokenSecret: testRefreshSecret})
	require.NoError(t, err)

	_, err = keys.VerifyingKey()
	assert.NoError(t, err)
}

func TestLoadKeys_Failures(t *testing.T) {
	privatePath, _ := writeKeyFiles(t, testRSAKey(t))

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, otherPublic := writeKeyFiles(t, other)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0600))

	tests := []struct {
		name    string
		cfg     config.KeysConfig
		wantErr error
	}{
		{
			name:    "missing secret",
			cfg:     config.KeysConfig{PrivateKeyPath: privatePath},
			wantErr: ErrKeyUnavailable,
		},
		{
			name:    "missing private key file",
			cfg:     config.KeysConfig{PrivateKeyPath: "/nonexistent/private.pem", RefreshTokenSecret: testRefreshSecret},
			wantErr: ErrKeyUnavailable,
		},
		{
			name: "malformed private key",
			cfg:  config.KeysConfig{PrivateKeyPath: garbage, RefreshTokenSecret: testRefreshSecret},
		},
		{
			name: "mismatched public key",
			cfg:  config.KeysConfig{PrivateKeyPath: privatePath, PublicKeyPath: otherPublic, RefreshTokenSecret: testRefreshSecret},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadKeys(tt.cfg)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestKeys_JWKS(t *testing.T) {
	keys := testKeys(t)

	set, err := keys.JWKS()
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)

	jwk := set.Keys[0]
	assert.Equal(t, "RSA", jwk.Kty)
	assert.Equal(t, "RS256", jwk.Alg)
	assert.Equal(t, "sig", jwk.Use)
	assert.Equal(t, keys.KeyID(), jwk.Kid)
	assert.Equal(t, "AQAB", jwk.E)

	_, err = NewKeys(nil, nil).JWKS()
	assert.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestKeys_KeyIDStable(t *testing.T) {
	key := testRSAKey(t)
	assert.Equal(t, NewKeys(key, nil).KeyID(), NewKeys(key, nil).KeyID())
}
