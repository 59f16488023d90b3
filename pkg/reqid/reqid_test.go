package reqid_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/reqid"
)

func serve(header string) (seen string, echoed string) {
	h := reqid.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = reqid.FromCtx(r.Context())
	}))
	req := httptest.NewRequest("GET", "/", nil)
	if header != "" {
		req.Header.Set(reqid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec.Header().Get(reqid.Header)
}

func TestGeneratesID(t *testing.T) {
	seen, echoed := serve("")
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, echoed)
}

func TestReusesUpstreamID(t *testing.T) {
	seen, echoed := serve("gw-42")
	assert.Equal(t, "gw-42", seen)
	assert.Equal(t, "gw-42", echoed)
}

func TestReplacesMalformedID(t *testing.T) {
	seen, _ := serve("bad id\nwith newline")
	assert.NotContains(t, seen, " ")
	assert.Len(t, seen, 36)
}
