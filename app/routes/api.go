package routes

import (
	"context"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/controllers"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/metrics"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/middleware"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/rbac"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/router"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/sse"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ws"
)

// Services is everything the handlers call into.
type Services struct {
	Gate    *services.IdentityGate
	Catalog *services.CatalogStore
	Orders  *services.OrderManager
	Admin   *services.AdminPanel
	Hub     *ws.Hub
	Changes sse.Subscriber
}

// bearer lets the auth middleware resume sessions through the identity gate.
func bearer(gate *services.IdentityGate) middleware.AuthenticatorFunc {
	return func(reqCtx context.Context, token string) (middleware.Principal, string, error) {
		s, err := gate.Authenticate(reqCtx, token)
		if err != nil {
			return nil, "", err
		}
		return s.Value, s.ID, nil
	}
}

func RegisterAPI(r *router.Router, s Services) error {
	auth := controllers.NewAuthController(s.Gate)
	catalog := controllers.NewCatalogController(s.Catalog)
	orders := controllers.NewOrderController(s.Orders)
	views := controllers.NewViewController(s.Catalog, s.Orders, s.Admin)
	admin := controllers.NewAdminController(s.Admin, s.Catalog)
	system := controllers.NewSystemController(s.Catalog, s.Orders, s.Hub, s.Changes)
	history, err := controllers.NewHistoryController(s.Orders)
	if err != nil {
		return err
	}

	r.Get("/healthz", "health", ctx.Wrap(system.Health))
	r.Handle("/metrics", "metrics", metrics.Handler())

	api := r.Group("/api")
	api.Post("/auth/pin", "auth.pin", ctx.Wrap(auth.PinLogin))
	api.Post("/auth/admin", "auth.admin", ctx.Wrap(auth.AdminLogin))

	signedIn := api.Group("", middleware.Auth(bearer(s.Gate)))
	signedIn.Post("/auth/logout", "auth.logout", ctx.Wrap(auth.Logout))
	signedIn.Get("/auth/me", "auth.me", ctx.Wrap(auth.Me))
	signedIn.Get("/events", "events", ctx.Wrap(system.Events))
	signedIn.Get("/catalog", "catalog.show", ctx.Wrap(catalog.Show))
	signedIn.Get("/orders", "orders.index", ctx.Wrap(orders.Index))
	signedIn.Get("/orders/{id}", "orders.show", ctx.Wrap(orders.Show))
	signedIn.Post("/orders", "orders.store", ctx.Wrap(orders.Store), rbac.HasRole(models.RoleWaiter))
	signedIn.Patch("/orders/{id}/status", "orders.status", ctx.Wrap(orders.UpdateStatus), rbac.HasRole(models.RoleKitchen))

	signedIn.Get("/views/kitchen", "views.kitchen", ctx.Wrap(views.Kitchen), rbac.HasRole(models.RoleKitchen))
	signedIn.Get("/views/waiter", "views.waiter", ctx.Wrap(views.Waiter), rbac.HasRole(models.RoleWaiter))
	signedIn.Get("/views/admin", "views.admin", ctx.Wrap(views.Admin), rbac.HasRole(models.RoleAdmin))

	panel := signedIn.Group("/admin", rbac.HasRole(models.RoleAdmin))
	panel.Get("/categories", "admin.categories.index", ctx.Wrap(admin.Categories))
	panel.Post("/categories", "admin.categories.store", ctx.Wrap(admin.StoreCategory))
	panel.Put("/categories/{id}", "admin.categories.update", ctx.Wrap(admin.UpdateCategory))
	panel.Delete("/categories/{id}", "admin.categories.destroy", ctx.Wrap(admin.DestroyCategory))

	panel.Get("/products", "admin.products.index", ctx.Wrap(admin.Products))
	panel.Post("/products", "admin.products.store", ctx.Wrap(admin.StoreProduct))
	panel.Put("/products/{id}", "admin.products.update", ctx.Wrap(admin.UpdateProduct))
	panel.Delete("/products/{id}", "admin.products.destroy", ctx.Wrap(admin.DestroyProduct))

	panel.Get("/tables", "admin.tables.index", ctx.Wrap(admin.Tables))
	panel.Post("/tables", "admin.tables.store", ctx.Wrap(admin.StoreTable))
	panel.Put("/tables/{id}", "admin.tables.update", ctx.Wrap(admin.UpdateTable))
	panel.Delete("/tables/{id}", "admin.tables.destroy", ctx.Wrap(admin.DestroyTable))

	panel.Get("/staff", "admin.staff.index", ctx.Wrap(admin.Staff))
	panel.Post("/staff", "admin.staff.store", ctx.Wrap(admin.StoreStaff))
	panel.Put("/staff/{id}", "admin.staff.update", ctx.Wrap(admin.UpdateStaff))
	panel.Delete("/staff/{id}", "admin.staff.destroy", ctx.Wrap(admin.DestroyStaff))

	panel.Get("/orders", "admin.orders.index", ctx.Wrap(history.Index))
	panel.Post("/graphql", "admin.graphql", ctx.Wrap(history.GraphQL))

	feed := r.Group("/ws", middleware.Auth(bearer(s.Gate)))
	feed.Get("/", "ws.feed", ctx.Wrap(system.Feed))

	return nil
}
