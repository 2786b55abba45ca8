package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Authenticator resolves an Authorization header into a caller identity.
type Authenticator interface {
	Authenticate(header string) (string, error)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the caller identity.
func WithIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Identity returns the caller identity set by RequireIdentity.
func Identity(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey{}).(string)
	return id, ok && id != ""
}

// RequireIdentity rejects requests without a valid bearer token with 401. A "token"
// query parameter stands in for the header, since browsers cannot set headers on
// websocket upgrades.
func RequireIdentity(a Authenticator, logger logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				if token := r.URL.Query().Get("token"); token != "" {
					header = "Bearer " + token
				}
			}
			id, err := a.Authenticate(header)
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Debug("rejected unauthenticated request")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "UNAUTHORIZED",
					"message": err.Error(),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
