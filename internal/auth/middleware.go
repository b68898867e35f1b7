package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/profiles-api/internal/apperror"
)

// contextKey is unexported so no other package can read or overwrite the
// principal stored in a request context.
type contextKey string

const principalKey contextKey = "principal"

// Resolver turns a bearer token into a Principal. *Authority implements it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Principal, error)
}

// ErrorWriter renders an error response. The handler package supplies it so
// auth failures share the API's JSON error shape.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Authenticate resolves the Authorization header, when present, and stores
// the Principal in the request context.
//
// A request without the header continues anonymously. A request WITH a
// header that does not resolve is rejected with 401, even on GET: a client
// that sent a broken token should learn about it rather than silently read
// as anonymous.
func Authenticate(resolver Resolver, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present, err := tokenFromHeader(r.Header.Get("Authorization"))
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				writeErr(w, r, err)
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuth rejects anonymous requests. Mount it after Authenticate.
func RequireAuth(writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				writeErr(w, r, apperror.Unauthenticated("Authentication credentials were not provided."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller, or (nil, false) for anonymous
// requests.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// ActorID returns the caller's account id, or 0 for anonymous requests.
func ActorID(ctx context.Context) int64 {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.ID
	}
	return 0
}

// tokenFromHeader parses "Token <key>" or "Bearer <key>". The scheme is
// case-insensitive. present is false only when the header is empty.
func tokenFromHeader(header string) (token string, present bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false, nil
	}

	parts := strings.Fields(header)
	if len(parts) == 0 {
		return "", false, nil
	}
	scheme := strings.ToLower(parts[0])
	if scheme != "token" && scheme != "bearer" {
		// Another scheme (e.g. Basic) is not ours to judge.
		return "", false, nil
	}

	switch len(parts) {
	case 1:
		return "", true, apperror.Unauthenticated("Invalid token header. No credentials provided.")
	case 2:
		return parts[1], true, nil
	default:
		return "", true, apperror.Unauthenticated("Invalid token header. Token string should not contain spaces.")
	}
}
