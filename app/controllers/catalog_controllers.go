package controllers

import (
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/resource"
)

type CatalogController struct {
	catalog *services.CatalogStore
}

func NewCatalogController(catalog *services.CatalogStore) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// Show handles GET /api/catalog: the menu grouped by category and the
// tables an order can be placed on.
func (cc *CatalogController) Show(c *ctx.Context) {
	c.Success(resource.Map{
		"categories": menu(cc.catalog.Categories(), cc.catalog.Products()),
		"tables":     resource.Many(cc.catalog.ActiveTables(), tableResource),
		"loaded_at":  cc.catalog.LoadedAt(),
	})
}
