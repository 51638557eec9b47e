package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/perimeterhq/tenantd/internal/auth"
)

// Auth authenticates admin requests. Bearer JWTs carry the actor id and role;
// the bootstrap API key (X-API-Key) authenticates as the bootstrap system
// actor with the admin role.
func Auth(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := extractBearer(r); tok != "" {
				claims, err := authSvc.ValidateToken(tok)
				if err == nil {
					ctx := r.Context()
					ctx = context.WithValue(ctx, ContextKeyActorID, claims.ActorID)
					ctx = context.WithValue(ctx, ContextKeyActorRole, claims.Role)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			if key := r.Header.Get("X-API-Key"); key != "" {
				if err := authSvc.VerifyBootstrapKey(key); err == nil {
					ctx := r.Context()
					ctx = context.WithValue(ctx, ContextKeyActorID, auth.BootstrapActorID)
					ctx = context.WithValue(ctx, ContextKeyActorRole, "admin")
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}
