package kernel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/repositories"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/routes"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/config"
	"github.com/Artssj1234/mesa-y-pedidos-app/internal/kernel"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/auth"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/session"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/testkit"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ws"
)

func TestMain(m *testing.M) {
	logger.Silence()
	os.Exit(m.Run())
}

const adminPassword = "correct horse battery"

type harness struct {
	handler http.Handler
	s       routes.Services
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	config.Set("SEED_ADMIN_PASSWORD", adminPassword)
	config.Set("RATE_LIMIT", "100000")
	db := testkit.Seeded(t)

	bus := notify.NewMemory(2, logger.Discard())
	t.Cleanup(func() { _ = bus.Close() })

	repos := repositories.New(db, bus)
	catalog := services.NewCatalogStore(repos)
	require.NoError(t, catalog.Refresh(ctx))
	orders := services.NewOrderManager(repos, catalog)
	require.NoError(t, orders.Refresh(ctx))

	issuer, err := auth.NewIssuer("kernel-test-secret", time.Hour)
	require.NoError(t, err)

	s := routes.Services{
		Gate:    services.NewIdentityGate(repos.Users, services.NewSessions(session.NewMemoryStore(), time.Hour), issuer),
		Catalog: catalog,
		Orders:  orders,
		Admin:   services.NewAdminPanel(repos, catalog),
		Hub:     ws.NewHub(logger.Discard()),
		Changes: bus,
	}
	k, err := kernel.NewHTTPKernel(s)
	require.NoError(t, err)
	return &harness{handler: k.Handler(), s: s}
}

// settle reloads the order snapshot, which in production follows the
// change notifier in the background.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, h.s.Orders.Refresh(context.Background()))
}

func TestScenarios(t *testing.T) {
	scenarios, errs := testkit.LoadAllFromDir("testdata")
	require.Empty(t, errs)

	for _, sc := range scenarios {
		sc := sc
		// Every scenario starts from a freshly seeded restaurant.
		t.Run(sc.Name, func(t *testing.T) {
			h := newHarness(t)
			r := &testkit.Runner{Handler: h.handler, Settle: h.settle}
			r.RunScenario(t, sc)
		})
	}
}

func TestHealthReportsLoadedSnapshots(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Data["status"])
	assert.Equal(t, float64(0), body.Data["feed_clients"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouteTableWithoutServices(t *testing.T) {
	k, err := kernel.NewHTTPKernel(routes.Services{})
	require.NoError(t, err)

	byName := map[string]string{}
	for _, r := range k.Router().Routes() {
		byName[r.Name] = r.Method + " " + r.Path
	}
	assert.Equal(t, "POST /api/orders", byName["orders.store"])
	assert.Equal(t, "PATCH /api/orders/{id}/status", byName["orders.status"])
	assert.Equal(t, "DELETE /api/admin/staff/{id}", byName["admin.staff.destroy"])
	assert.Equal(t, "GET /ws", byName["ws.feed"])
	assert.Equal(t, "* /metrics", byName["metrics"])
}
