package chi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/domain/principal"
	"github.com/kailas-cloud/autofilter/internal/logger"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware resolves the request principal from a Bearer API key.
// Requests without an Authorization header continue as anonymous; a header
// with another scheme or an unknown key is rejected with 401.
func BearerAuthMiddleware(principals map[string]principal.Principal) func(http.Handler) http.Handler {
	keys := make(map[string]principal.Principal, len(principals))
	for k, p := range principals {
		if k != "" {
			keys[k] = p
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			p, ok := keys[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			ctx := principal.WithPrincipal(r.Context(), p)
			ctx = logger.With(ctx, zap.String("principal", p.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
