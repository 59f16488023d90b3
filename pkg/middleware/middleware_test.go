package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/middleware"
)

type staff struct{ id, role string }

func (s staff) Subject() string  { return s.id }
func (s staff) RoleName() string { return s.role }
func (s staff) Landing() string  { return "/" + s.role }

type fakeAuth map[string]staff

func (f fakeAuth) Authenticate(_ context.Context, token string) (middleware.Principal, string, error) {
	s, ok := f[token]
	if !ok {
		return nil, "", errors.New("unknown token")
	}
	return s, "sid-" + token, nil
}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuth(t *testing.T) {
	juan := staff{id: "u1", role: "waiter"}
	h := middleware.Auth(fakeAuth{"good": juan})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, found := middleware.PrincipalFromCtx(r.Context())
		require.True(t, found)
		assert.Equal(t, juan, id)
		sid, _ := middleware.SessionFromCtx(r.Context())
		assert.Equal(t, "sid-good", sid)
		w.WriteHeader(http.StatusOK)
	}))

	cases := map[string]struct {
		header, query string
		want          int
	}{
		"bearer":       {header: "Bearer good", want: http.StatusOK},
		"query token":  {query: "?token=good", want: http.StatusOK},
		"missing":      {want: http.StatusUnauthorized},
		"wrong token":  {header: "Bearer bad", want: http.StatusUnauthorized},
		"wrong scheme": {header: "Basic good", want: http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestLimiter(t *testing.T) {
	l := middleware.NewLimiter(2, time.Minute)
	h := l.Middleware(http.HandlerFunc(ok))

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"), "budgets are per client")
}

func TestLimiterDisabled(t *testing.T) {
	h := middleware.NewLimiter(0, time.Minute).Middleware(http.HandlerFunc(ok))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:4000"
	assert.Equal(t, "192.168.1.9", middleware.ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 1.2.3.4 , 10.0.0.1")
	assert.Equal(t, "1.2.3.4", middleware.ClientIP(req))
}

func TestRecovery(t *testing.T) {
	h := middleware.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggerPassesStatus(t *testing.T) {
	h := middleware.Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORS(t *testing.T) {
	h := middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: middleware.ParseOrigins("https://caja.local, https://barra.local"),
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         60,
	})(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://caja.local")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://caja.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, []string{"*"}, middleware.ParseOrigins(" "))
}
