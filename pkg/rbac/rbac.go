// Package rbac gates routes by role.
package rbac

import (
	"net/http"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/middleware"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/response"
)

// HasRole allows only the given roles. middleware.Auth must run first. A
// signed-in caller with another role gets 403 with their own landing path so
// the terminal can send them to the right view.
func HasRole[R ~string](roles ...R) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := middleware.PrincipalFromCtx(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[p.RoleName()] {
				response.Forbidden(w, p.Landing())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
