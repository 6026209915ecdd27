package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is unexported so no other package can read or shadow the
// identity stored in a request context.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue accepts any key. With a plain string such as "identity",
// every package that knows the string can read or overwrite the value. A key
// of an unexported type can only be created inside this package, so
// WithIdentity and IdentityFromContext are the only way in and out.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
}

// WithIdentity returns a copy of ctx carrying id. Handlers' tests use it to
// skip token handling.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the current caller, or false for an anonymous
// request.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// otherwise stores the caller's Identity in the request context.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new one that wraps it:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... before the handler ...
//	        next.ServeHTTP(w, r)
//	        // ... after the handler ...
//	    })
//	}
//
// Chi runs them as a chain: req → M1 → M2 → Handler → M2 → M1 → resp. Here
// the "before" part is the token check; on failure next is never called.
//
// BEARER TOKENS:
// The token travels in "Authorization: Bearer <jwt>". The WWW-Authenticate
// header on a 401 tells the client which scheme to retry with.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="inkwell"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the Identity when a valid token is present and lets
// the request through either way.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), Identity{UserID: userID}))
			}
			next.ServeHTTP(w, r)
		})
	}
}

var errNoBearer = errors.New("auth: missing bearer token")

// extractUserID reads "Authorization: Bearer <jwt>" and validates the token.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errNoBearer
	}
	return tokens.Validate(strings.TrimSpace(token))
}
