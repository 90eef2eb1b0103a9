package middleware

import (
	"context"
	"net/http"
	"strings"

	"clothing-marketplace/internal/auth"
	"clothing-marketplace/internal/config"
	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/response"

	"github.com/rs/zerolog"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// WithPrincipal stores the caller on ctx.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFrom returns the caller stored by Authenticate.
func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(model.Principal)
	return p, ok
}

// Authenticate validates the bearer token and seeds the request context with the principal.
func Authenticate(cfg config.AuthConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(raw) < 7 || !strings.EqualFold(raw[:7], "bearer ") {
				response.Error(w, r, model.ErrUnauthorised.WithMessage("Missing bearer token"), logger)
				return
			}

			principal, err := auth.Parse(cfg, strings.TrimSpace(raw[7:]))
			if err != nil {
				response.Error(w, r, model.ErrUnauthorised.WithMessage("Invalid or expired token").Wrap(err), logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(logger zerolog.Logger, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				response.Error(w, r, model.ErrUnauthorised, logger)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, r, model.ErrForbidden.WithMessage("Role not permitted"), logger)
		})
	}
}
