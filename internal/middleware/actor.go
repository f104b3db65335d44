package middleware

import (
	"net/http"

	"github.com/jumokuso/crmaudit/internal/auth"
	"github.com/jumokuso/crmaudit/internal/domain"
)

// ActorMiddleware lifts the acting user from request headers into the request
// context. Requests without the headers pass through without an actor; the
// mutating endpoints reject those, read endpoints do not care.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := r.Header.Get("X-Audit-User-Id"); uid != "" {
			actor := &domain.AuditUser{
				UID:         uid,
				DisplayName: r.Header.Get("X-Audit-User-Name"),
				Email:       r.Header.Get("X-Audit-User-Email"),
			}
			r = r.WithContext(auth.ContextWithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
