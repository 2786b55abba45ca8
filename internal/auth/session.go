// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator resolves a bearer token into a player identity.
type Authenticator struct {
	devMode    bool
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey // optional, only needed to issue tokens
	tokenTTL   time.Duration      // 0 means tokens never expire
}

// NewDevAuthenticator accepts any non-empty token and uses it as the identity.
func NewDevAuthenticator() *Authenticator {
	return &Authenticator{devMode: true}
}

// NewAuthenticator verifies EdDSA tokens against publicKey. privateKey may be nil.
func NewAuthenticator(publicKey ed25519.PublicKey, privateKey ed25519.PrivateKey, tokenTTL time.Duration) *Authenticator {
	return &Authenticator{publicKey: publicKey, privateKey: privateKey, tokenTTL: tokenTTL}
}

// GenerateKeys creates a fresh ed25519 key pair.
func GenerateKeys() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return pub, priv, nil
}

// LoadPublicKey reads a PEM encoded ed25519 public key.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	key, err := jwt.ParseEdPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not ed25519", key)
	}
	return pub, nil
}

// DevMode reports whether tokens are taken verbatim.
func (a *Authenticator) DevMode() bool { return a.devMode }

// CreateJWT creates a signed token with "sub" = playerID and, when a TTL is set, "exp".
func (a *Authenticator) CreateJWT(playerID string) (string, error) {
	if a.privateKey == nil {
		return "", errors.New("no signing key configured")
	}
	claims := jwt.MapClaims{"sub": playerID}
	if a.tokenTTL > 0 {
		claims["exp"] = time.Now().Add(a.tokenTTL).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(a.privateKey)
}

// AuthenticateJWT verifies a token and returns its "sub".
func (a *Authenticator) AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return sub, nil
}

// Authenticate parses an Authorization header value of the form "Bearer <token>".
func (a *Authenticator) Authenticate(header string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	if a.devMode {
		return token, nil
	}
	return a.AuthenticateJWT(token)
}
