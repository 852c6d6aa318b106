package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/roster/internal/auth"
	"github.com/JonMunkholm/roster/internal/features"
)

// ErrorResponder writes an error response for a rejected request.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

type principalKey struct{}

// PrincipalFromContext returns the principal stored by Authenticate.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// Authenticate validates the bearer token and requires one of roles.
// Failures are passed to respond unchanged so their status and code reach
// the client.
func Authenticate(guard *auth.Guard, respond ErrorResponder, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := guard.RequireAuth(r.Header.Get("Authorization"), roles...)
			if err != nil {
				slog.Warn("auth: request rejected",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireFeature rejects requests whose principal has feature disabled.
// It must run after Authenticate.
func RequireFeature(flags *features.Flags, feature string, respond ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFromContext(r.Context())
			if err := flags.RequireFeature(p.Role, feature); err != nil {
				respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
