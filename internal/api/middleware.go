package api

import (
	"net/http"
	"strings"
	"time"

	"rentalcore/pkg/config"
)

// ActorAuth authenticates commands with a Bearer session token.
//
// Dev fallback: when no Authorization header is present and APP_ENV is dev,
// the caller may identify via `X-Actor-Id` / `X-Actor-Role` headers.
func ActorAuth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if authz == "" && cfg.AppEnv == "dev" {
				id := strings.TrimSpace(r.Header.Get("X-Actor-Id"))
				role, ok := ParseRole(strings.TrimSpace(r.Header.Get("X-Actor-Role")))
				if id == "" || !ok {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing actor identity")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), &Actor{ID: id, Role: role})))
				return
			}

			token := strings.TrimPrefix(authz, "Bearer ")
			if token == "" || token == authz {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			actor, err := VerifySessionToken(token, cfg.JWTSecret, time.Now())
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireRole gates a route group to the given roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := ActorFromContext(r.Context())
			if a == nil {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing actor identity")
				return
			}
			if !allowed[a.Role] {
				WriteError(w, http.StatusForbidden, "FORBIDDEN", "role not permitted for this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
