package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/response"
)

// Principal is the signed-in caller. The app decides what it is; the
// framework only needs its id, its role and where its own view lives.
type Principal interface {
	Subject() string
	RoleName() string
	Landing() string
}

// Authenticator turns a bearer token into the caller and the id of the
// session the token was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, string, error)
}

// AuthenticatorFunc adapts a plain function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, token string) (Principal, string, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, token string) (Principal, string, error) {
	return f(ctx, token)
}

type principalKey struct{}

type signedIn struct {
	principal Principal
	sessionID string
}

// WithPrincipal stores the signed-in caller and its session id in ctx.
func WithPrincipal(ctx context.Context, p Principal, sessionID string) context.Context {
	return context.WithValue(ctx, principalKey{}, signedIn{principal: p, sessionID: sessionID})
}

// PrincipalFromCtx returns the caller set by Auth.
func PrincipalFromCtx(ctx context.Context) (Principal, bool) {
	s, ok := ctx.Value(principalKey{}).(signedIn)
	return s.principal, ok && s.principal != nil
}

// SessionFromCtx returns the session id set by Auth.
func SessionFromCtx(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(principalKey{}).(signedIn)
	return s.sessionID, ok && s.sessionID != ""
}

// BearerToken reads the token from the Authorization header. Browsers cannot
// set headers on a websocket handshake, so ?token= is accepted as well.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Auth rejects requests without a live session. A token whose session was
// cleared by logout is refused even before it expires.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				response.Unauthorized(w)
				return
			}

			p, sid, err := a.Authenticate(r.Context(), token)
			if err != nil || p == nil {
				logger.WithCtx(r.Context()).Debug("token refused", "error", err)
				response.Unauthorized(w)
				return
			}

			ctx := WithPrincipal(r.Context(), p, sid)
			ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user_id", p.Subject(), "role", p.RoleName()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
