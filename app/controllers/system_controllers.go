package controllers

import (
	"net/http"
	"time"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/resource"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/sse"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ws"
)

const eventsHeartbeat = 25 * time.Second

// SystemController serves the health probe and the change feeds.
type SystemController struct {
	catalog *services.CatalogStore
	orders  *services.OrderManager
	hub     *ws.Hub
	changes sse.Subscriber
}

func NewSystemController(catalog *services.CatalogStore, orders *services.OrderManager, hub *ws.Hub, changes sse.Subscriber) *SystemController {
	return &SystemController{catalog: catalog, orders: orders, hub: hub, changes: changes}
}

// Health handles GET /healthz. It reports 503 until both snapshots have
// loaded once.
func (s *SystemController) Health(c *ctx.Context) {
	body := resource.Map{
		"catalog_loaded_at": s.catalog.LoadedAt(),
		"orders_loaded_at":  s.orders.LoadedAt(),
		"feed_clients":      s.hub.ClientCount(),
	}
	if s.catalog.LoadedAt().IsZero() || s.orders.LoadedAt().IsZero() {
		c.Fail(http.StatusServiceUnavailable, "starting", body)
		return
	}
	body["status"] = "ok"
	c.Success(body)
}

// Feed handles GET /ws. Browsers pass the bearer token as ?token=.
func (s *SystemController) Feed(c *ctx.Context) {
	id, ok := identity(c)
	if !ok {
		c.Unauthorized()
		return
	}
	s.hub.Upgrade(c.W, c.R, id.ID, string(id.Role))
}

// Events handles GET /api/events, the same hints as /ws over SSE.
func (s *SystemController) Events(c *ctx.Context) {
	if s.changes == nil {
		c.Error(http.StatusServiceUnavailable, "change feed unavailable")
		return
	}
	if err := sse.Serve(c.W, c.R, s.changes, eventsHeartbeat); err != nil {
		logger.WithCtx(c.Context()).Error("events: subscribe failed", "error", err)
		c.Error(http.StatusBadGateway, "Backend unavailable, try again")
	}
}
