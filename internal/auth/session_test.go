package auth

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevModeUsesTokenAsIdentity(t *testing.T) {
	a := NewDevAuthenticator()

	id, err := a.Authenticate("Bearer alien-42")
	require.NoError(t, err)
	assert.Equal(t, "alien-42", id)

	id, err = a.Authenticate("bearer   alien-42 ")
	require.NoError(t, err)
	assert.Equal(t, "alien-42", id)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "alien-42"} {
		_, err := a.Authenticate(h)
		assert.ErrorIs(t, err, ErrMissingToken, "header %q", h)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeys()
	require.NoError(t, err)
	a := NewAuthenticator(pub, priv, time.Hour)

	token, err := a.CreateJWT("player-1")
	require.NoError(t, err)

	id, err := a.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "player-1", id)

	_, err = a.Authenticate("Bearer player-1")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsForeignKeyAndExpiry(t *testing.T) {
	pub, _, err := GenerateKeys()
	require.NoError(t, err)
	_, otherPriv, err := GenerateKeys()
	require.NoError(t, err)

	forged, err := NewAuthenticator(nil, otherPriv, 0).CreateJWT("player-1")
	require.NoError(t, err)
	verifier := NewAuthenticator(pub, nil, 0)
	_, err = verifier.AuthenticateJWT(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	pub2, priv2, err := GenerateKeys()
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": "player-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString(priv2)
	require.NoError(t, err)
	_, err = NewAuthenticator(pub2, nil, 0).AuthenticateJWT(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRequiresSubject(t *testing.T) {
	pub, priv, err := GenerateKeys()
	require.NoError(t, err)
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"name": "x"}).SignedString(priv)
	require.NoError(t, err)

	_, err = NewAuthenticator(pub, nil, 0).AuthenticateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCreateJWTWithoutKey(t *testing.T) {
	_, err := NewDevAuthenticator().CreateJWT("player-1")
	assert.Error(t, err)
}

func TestLoadPublicKey(t *testing.T) {
	pub, priv, err := GenerateKeys()
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "auth.pub")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	loaded, err := LoadPublicKey(path)
	require.NoError(t, err)
	assert.Equal(t, pub, loaded)

	token, err := NewAuthenticator(nil, priv, 0).CreateJWT("player-9")
	require.NoError(t, err)
	id, err := NewAuthenticator(loaded, nil, 0).AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "player-9", id)

	_, err = LoadPublicKey(filepath.Join(t.TempDir(), "missing.pub"))
	assert.Error(t, err)
}
