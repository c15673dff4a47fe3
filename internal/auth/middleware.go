package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "claims", c), ANY package that knows the string can
// read or shadow your value. Only THIS package can create a key of type
// contextKey, so only this package can read or write claims in the context.
type contextKey string

const claimsKey contextKey = "claims"

// OptionalAuth extracts the caller's identity if a valid bearer token is
// present, but never blocks the request if it's missing or invalid.
//
// Every route is public. The claims are only used for attribution, e.g.
// the request log line records which account made the call.
//
// Handlers check for the caller via ClaimsFromContext. If it returns
// (nil, false), the request is anonymous.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := bearerToken(r); ok {
				if claims, err := tokens.Validate(raw); err == nil {
					r = r.WithContext(WithClaims(r.Context(), claims))
				}
			}
			// Always continue: no 401 even if no token
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims returns a copy of ctx carrying the given claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext retrieves the authenticated caller's claims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// bearerToken reads "Authorization: Bearer <jwt>". The scheme is matched
// case-insensitively, as RFC 6750 allows.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
