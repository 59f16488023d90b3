package controllers

import (
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/resource"
)

// AdminController exposes the CRUD panels for categories, products, tables
// and staff. Lists are served from the catalog snapshot, which every write
// below refreshes before answering.
type AdminController struct {
	admin   *services.AdminPanel
	catalog *services.CatalogStore
}

func NewAdminController(admin *services.AdminPanel, catalog *services.CatalogStore) *AdminController {
	return &AdminController{admin: admin, catalog: catalog}
}

// ─── Categories ──────────────────────────────────────────────────────────────

func (a *AdminController) Categories(c *ctx.Context) {
	c.Success(resource.Many(a.catalog.Categories(), categoryResource))
}

func (a *AdminController) StoreCategory(c *ctx.Context) {
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := a.admin.CreateCategory(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(resource.One(cat, categoryResource))
}

func (a *AdminController) UpdateCategory(c *ctx.Context) {
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := a.admin.UpdateCategory(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.One(cat, categoryResource))
}

func (a *AdminController) DestroyCategory(c *ctx.Context) {
	if err := a.admin.DeleteCategory(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.NoContent()
}

// ─── Products ────────────────────────────────────────────────────────────────

func (a *AdminController) Products(c *ctx.Context) {
	if cat := c.Query("category_id"); cat != "" {
		c.Success(resource.Many(a.catalog.ProductsByCategory(cat), productResource))
		return
	}
	c.Success(resource.Many(a.catalog.Products(), productResource))
}

func (a *AdminController) StoreProduct(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := a.admin.CreateProduct(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(resource.One(p, productResource))
}

func (a *AdminController) UpdateProduct(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := a.admin.UpdateProduct(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.One(p, productResource))
}

func (a *AdminController) DestroyProduct(c *ctx.Context) {
	if err := a.admin.DeleteProduct(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.NoContent()
}

// ─── Tables ──────────────────────────────────────────────────────────────────

func (a *AdminController) Tables(c *ctx.Context) {
	c.Success(resource.Many(a.catalog.Tables(), tableResource))
}

func (a *AdminController) StoreTable(c *ctx.Context) {
	var in services.TableInput
	if !c.BindJSON(&in) {
		return
	}
	t, err := a.admin.CreateTable(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(resource.One(t, tableResource))
}

func (a *AdminController) UpdateTable(c *ctx.Context) {
	var in services.TableInput
	if !c.BindJSON(&in) {
		return
	}
	t, err := a.admin.UpdateTable(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.One(t, tableResource))
}

func (a *AdminController) DestroyTable(c *ctx.Context) {
	if err := a.admin.DeleteTable(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.NoContent()
}

// ─── Staff ───────────────────────────────────────────────────────────────────

func (a *AdminController) Staff(c *ctx.Context) {
	staff, err := a.admin.Staff(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.Many(staff, staffResource))
}

func (a *AdminController) StoreStaff(c *ctx.Context) {
	var in services.StaffInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := a.admin.CreateStaff(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(resource.One(u, staffResource))
}

func (a *AdminController) UpdateStaff(c *ctx.Context) {
	var in services.StaffInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := a.admin.UpdateStaff(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.One(u, staffResource))
}

func (a *AdminController) DestroyStaff(c *ctx.Context) {
	if err := a.admin.DeleteStaff(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.NoContent()
}
