package middleware

import (
	"net/http"

	"github.com/perimeterhq/tenantd/internal/audit"
)

// RequestMeta records the client address and user agent in the request
// context so the audit write path can attach them. Must run after chi's
// RealIP middleware so RemoteAddr reflects the original client.
func RequestMeta() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := audit.WithRequestMeta(r.Context(), audit.RequestMeta{
				ClientIP:  r.RemoteAddr,
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
