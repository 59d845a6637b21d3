package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"flashvault/crypto"
)

type callerContextKey struct{}

// CallerFromContext returns the authenticated caller's AccountId, set by
// Authenticator's middleware once a request clears JWT verification.
func CallerFromContext(ctx context.Context) (crypto.Address, bool) {
	addr, ok := ctx.Value(callerContextKey{}).(crypto.Address)
	return addr, ok
}

// Authenticator verifies bearer JWTs the way the teacher's gRPC
// interceptor verifies bearer tokens (services/lending/server/auth.go),
// adapted to chi middleware and to a JWT whose "sub" claim carries the
// caller's bech32 AccountId rather than an opaque API token.
type Authenticator struct {
	signingKey []byte
}

// NewAuthenticator constructs an Authenticator that verifies tokens signed
// with signingKey (HMAC).
func NewAuthenticator(signingKey string) *Authenticator {
	return &Authenticator{signingKey: []byte(signingKey)}
}

// Middleware rejects any request without a valid bearer JWT and injects the
// token's subject (an AccountId) into the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "bearer token required")
			return
		}

		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return a.signingKey, nil
		})
		if err != nil || !parsed.Valid {
			writeError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}

		sub, _ := claims["sub"].(string)
		caller, err := crypto.DecodeAddress(sub)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token subject")
			return
		}

		ctx := context.WithValue(r.Context(), callerContextKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseBearerToken(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(strings.TrimSpace(parts[0]), "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
