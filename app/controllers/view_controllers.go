package controllers

import (
	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/collection"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/resource"
)

// ViewController serves the data each role-specific screen is built from.
type ViewController struct {
	catalog *services.CatalogStore
	orders  *services.OrderManager
	admin   *services.AdminPanel
}

func NewViewController(catalog *services.CatalogStore, orders *services.OrderManager, admin *services.AdminPanel) *ViewController {
	return &ViewController{catalog: catalog, orders: orders, admin: admin}
}

func isReady(o models.Order) bool { return o.Status == models.StatusReady }

// Kitchen handles GET /api/views/kitchen.
func (v *ViewController) Kitchen(c *ctx.Context) {
	ready, active := collection.Partition(v.orders.Orders(services.OrderFilter{}), isReady)
	c.Success(resource.Map{
		"active":    resource.Many(active, orderResource),
		"ready":     resource.Many(ready, orderResource),
		"loaded_at": v.orders.LoadedAt(),
	})
}

// Waiter handles GET /api/views/waiter: the menu, the open tables and the
// caller's own orders.
func (v *ViewController) Waiter(c *ctx.Context) {
	id, _ := identity(c)
	ready, active := collection.Partition(v.orders.Orders(services.OrderFilter{UserID: id.ID}), isReady)
	c.Success(resource.Map{
		"categories": menu(v.catalog.Categories(), v.catalog.Products()),
		"tables":     resource.Many(v.catalog.ActiveTables(), tableResource),
		"active":     resource.Many(active, orderResource),
		"ready":      resource.Many(ready, orderResource),
	})
}

// Admin handles GET /api/views/admin.
func (v *ViewController) Admin(c *ctx.Context) {
	staff, err := v.admin.Staff(c.Context())
	if err != nil {
		fail(c, err)
		return
	}

	all := v.orders.Orders(services.OrderFilter{})
	byStatus := collection.GroupBy(all, func(o models.Order) models.Status { return o.Status })
	counts := make(map[models.Status]int, len(models.Statuses))
	for _, s := range models.Statuses {
		counts[s] = len(byStatus[s])
	}

	recent := all
	if len(recent) > 20 {
		recent = recent[:20]
	}

	c.Success(resource.Map{
		"categories": resource.Many(v.catalog.Categories(), categoryResource),
		"products":   resource.Many(v.catalog.Products(), productResource),
		"tables":     resource.Many(v.catalog.Tables(), tableResource),
		"staff":      resource.Many(staff, staffResource),
		"orders": resource.Map{
			"by_status": counts,
			"recent":    resource.Many(recent, orderResource),
		},
	})
}
