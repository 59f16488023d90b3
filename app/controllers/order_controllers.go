package controllers

import (
	"strings"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/resource"
)

type OrderController struct {
	orders *services.OrderManager
}

func NewOrderController(orders *services.OrderManager) *OrderController {
	return &OrderController{orders: orders}
}

// statusQuery reads ?status=pending&status=ready or ?status=pending,ready.
func statusQuery(c *ctx.Context) ([]models.Status, map[string]string) {
	var out []models.Status
	for _, raw := range c.QueryAll("status") {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			s, err := models.ParseStatus(part)
			if err != nil {
				return nil, map[string]string{"status": err.Error()}
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// Index handles GET /api/orders from the in-memory list.
func (oc *OrderController) Index(c *ctx.Context) {
	statuses, errs := statusQuery(c)
	if errs != nil {
		c.ValidationError(errs)
		return
	}

	f := services.OrderFilter{
		Statuses: statuses,
		TableID:  c.Query("table_id"),
		Limit:    c.QueryInt("limit", 0),
	}
	if c.Query("mine") == "true" || c.Query("mine") == "1" {
		id, _ := identity(c)
		f.UserID = id.ID
	}

	c.Success(resource.Many(oc.orders.Orders(f), orderResource))
}

// Show handles GET /api/orders/{id}.
func (oc *OrderController) Show(c *ctx.Context) {
	o, ok := oc.orders.Order(c.Param("id"))
	if !ok {
		c.NotFound()
		return
	}
	c.Success(resource.One(o, orderResource))
}

// Store handles POST /api/orders. The creator is always the signed-in user.
func (oc *OrderController) Store(c *ctx.Context) {
	var in services.OrderInput
	if !c.BindJSON(&in) {
		return
	}
	id, _ := identity(c)
	in.UserID = id.ID

	placed, err := oc.orders.CreateOrder(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(resource.Map{
		"order":        resource.One(placed.Order, orderResource),
		"total":        placed.Total.StringFixed(2),
		"confirmation": placed.Confirmation,
	})
}

// UpdateStatus handles PATCH /api/orders/{id}/status.
func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	var body struct {
		Status string `json:"status" validate:"required"`
	}
	if !c.BindJSON(&body) {
		return
	}

	to, err := models.ParseStatus(body.Status)
	if err != nil {
		to = models.Status(body.Status)
	}

	o, err := oc.orders.UpdateStatus(c.Context(), c.Param("id"), to)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resource.Map{
		"id":           o.ID,
		"status":       o.Status,
		"status_label": o.Status.Label(),
	})
}
