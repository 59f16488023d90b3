package ctx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/middleware"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/orm"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/response"
)

func serve(req *http.Request, h appctx.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSuccessEnvelope(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Success(map[string]any{"id": 1})
		assert.Equal(t, http.StatusOK, c.WrittenStatus())
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.EqualValues(t, 200, body["status"])
	assert.EqualValues(t, 1, body["data"].(map[string]any)["id"])
}

func TestBindJSONValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pin":"1234"}`))
	rec := serve(req, func(c *appctx.Context) {
		var in struct {
			PIN string `json:"pin" validate:"required,digits=4"`
		}
		require.True(t, c.BindJSON(&in))
		assert.Equal(t, "1234", in.PIN)
		c.NoContent()
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBindJSONInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pin":"12"}`))
	rec := serve(req, func(c *appctx.Context) {
		var in struct {
			PIN string `json:"pin" validate:"required,digits=4"`
		}
		assert.False(t, c.BindJSON(&in))
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "pin")
}

func TestBindJSONMalformed(t *testing.T) {
	for _, body := range []string{"", "{", `{"pin":"1234","extra":1}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rec := serve(req, func(c *appctx.Context) {
			var in struct {
				PIN string `json:"pin"`
			}
			assert.False(t, c.BindJSON(&in))
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestParamsAndQuery(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/orders/{id}", appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, "abc", c.Param("id"))
		assert.Equal(t, []string{"pending", "ready"}, c.QueryAll("status"))
		assert.Equal(t, 3, c.QueryInt("page", 1))
		assert.Equal(t, 20, c.QueryInt("size", 20))
		assert.Equal(t, 20, c.QueryInt("bad", 20))
		c.Success(nil)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc?status=pending&status=ready&page=3&bad=x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type waiter struct{ id string }

func (w waiter) Subject() string  { return w.id }
func (w waiter) RoleName() string { return "waiter" }
func (w waiter) Landing() string  { return "/camarero" }

func TestPrincipalFromMiddleware(t *testing.T) {
	juan := waiter{id: "u1"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithPrincipal(context.Background(), juan, "s1"))

	serve(req, func(c *appctx.Context) {
		got, ok := c.Principal()
		require.True(t, ok)
		assert.Equal(t, "u1", got.Subject())
		assert.Equal(t, "s1", c.SessionID())
	})

	serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		_, ok := c.Principal()
		assert.False(t, ok)
		assert.Empty(t, c.SessionID())
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	serve(req, func(c *appctx.Context) {
		assert.Equal(t, "1.2.3.4", c.ClientIP())
	})
}

func TestErrorHelpers(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) { c.NotFound() })
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) { c.Forbidden("/cocina") })
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "/cocina", decode(t, rec)["data"].(map[string]any)["redirect"])

	rec = serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Fail(http.StatusConflict, "blocked", map[string]string{"dependent": "orders"})
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "blocked", env.Message)
}

func TestPaginated(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Paginated([]int{1, 2}, orm.Pagination{Total: 5, Page: 1, Limit: 2, LastPage: 3})
	})
	data := decode(t, rec)["data"].(map[string]any)
	assert.Len(t, data["items"], 2)
	assert.Contains(t, data, "pagination")
}
