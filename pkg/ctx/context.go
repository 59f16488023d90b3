// Package ctx provides a small request context for handlers.
//
// Instead of accepting (http.ResponseWriter, *http.Request), a handler
// receives a single *Context with helpers for params, binding and the JSON
// envelope:
//
//	func ShowOrder(c *ctx.Context) {
//	    o, ok := orders.Order(c.Param("id"))
//	    if !ok {
//	        c.NotFound()
//	        return
//	    }
//	    c.Success(o)
//	}
//
//	router.Get("/orders/{id}", "orders.show", ctx.Wrap(ShowOrder))
package ctx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/bind"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/middleware"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/orm"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/response"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// ─── Context ──────────────────────────────────────────────────────────────────

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int // written status code (0 = not written yet)
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter (e.g. "/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// Query returns a query-string value. Returns "" if not present.
func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// QueryAll returns every value of a repeated query parameter.
func (c *Context) QueryAll(key string) []string {
	return c.R.URL.Query()[key]
}

// QueryInt parses a query parameter as an int, or returns def.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// ClientIP returns the real client IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string { return middleware.ClientIP(c.R) }

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// Principal returns the signed-in caller placed by middleware.Auth.
func (c *Context) Principal() (middleware.Principal, bool) {
	return middleware.PrincipalFromCtx(c.R.Context())
}

// SessionID returns the session behind the request's bearer token.
func (c *Context) SessionID() string {
	sid, _ := middleware.SessionFromCtx(c.R.Context())
	return sid
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes the JSON body into dest and runs validation.
// On validation failure it sends a 422 and returns false; on a decode error
// it sends a 400. Returns true only when dest is ready to use.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.Error(http.StatusRequestEntityTooLarge, err.Error())
			return false
		}
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if len(errs) > 0 {
		c.ValidationError(errs)
		return false
	}
	return true
}

// ─── Response helpers ─────────────────────────────────────────────────────────

func (c *Context) write(code int, body response.Envelope) {
	c.status = code
	response.Write(c.W, code, body)
}

// Success sends a 200 JSON envelope: {"status":200,"data":...}
func (c *Context) Success(data any) {
	c.write(http.StatusOK, response.Envelope{Status: http.StatusOK, Data: data})
}

// Created sends a 201 JSON envelope.
func (c *Context) Created(data any) {
	c.write(http.StatusCreated, response.Envelope{Status: http.StatusCreated, Data: data})
}

// Paginated sends a 200 with items and pagination metadata.
func (c *Context) Paginated(data any, p orm.Pagination) {
	c.status = http.StatusOK
	response.Paginated(c.W, data, p)
}

// NoContent writes 204 with an empty body.
func (c *Context) NoContent() {
	c.status = http.StatusNoContent
	c.W.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error envelope with the given status and message.
func (c *Context) Error(code int, message string) {
	c.write(code, response.Envelope{Status: code, Message: message})
}

// Fail sends an error envelope that also carries data.
func (c *Context) Fail(code int, message string, data any) {
	c.write(code, response.Envelope{Status: code, Message: message, Data: data})
}

// ValidationError sends a 422 Unprocessable Entity with field-level errors.
func (c *Context) ValidationError(errs map[string]string) {
	c.write(http.StatusUnprocessableEntity, response.Envelope{
		Status:  http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  errs,
	})
}

// Unauthorized sends a 401.
func (c *Context) Unauthorized() { c.Error(http.StatusUnauthorized, "Unauthorized") }

// Forbidden sends a 403 naming where the caller belongs.
func (c *Context) Forbidden(redirect string) {
	c.status = http.StatusForbidden
	response.Forbidden(c.W, redirect)
}

// NotFound sends a 404.
func (c *Context) NotFound() { c.Error(http.StatusNotFound, "Not found") }

// WrittenStatus returns the HTTP status code written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
