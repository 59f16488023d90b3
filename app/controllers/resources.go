package controllers

import (
	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/collection"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/resource"
)

// Prices and totals render with two decimals.
var itemResource resource.Transformer[models.OrderItem] = func(it models.OrderItem) resource.Map {
	return resource.Map{
		"id":            it.ID,
		"product_id":    it.ProductID,
		"product_name":  it.ProductName,
		"product_price": it.ProductPrice.StringFixed(2),
		"quantity":      it.Quantity,
		"subtotal":      it.Subtotal().StringFixed(2),
	}
}

var orderResource resource.Transformer[models.Order] = func(o models.Order) resource.Map {
	return resource.Map{
		"id":           o.ID,
		"table_id":     o.TableID,
		"table_number": o.TableNumber,
		"user_id":      o.UserID,
		"waiter_name":  o.WaiterName,
		"status":       o.Status,
		"status_label": o.Status.Label(),
		"observations": o.Observations,
		"created_at":   o.CreatedAt,
		"items":        resource.Many(o.Items, itemResource),
		"total":        o.Total().StringFixed(2),
	}
}

var productResource resource.Transformer[models.Product] = func(p models.Product) resource.Map {
	m := resource.Map{
		"id":          p.ID,
		"name":        p.Name,
		"price":       p.Price.StringFixed(2),
		"category_id": p.CategoryID,
	}
	if p.Category != nil {
		m["category_name"] = p.Category.Name
	}
	return m
}

var categoryResource resource.Transformer[models.Category] = func(c models.Category) resource.Map {
	return resource.Map{"id": c.ID, "name": c.Name}
}

var tableResource resource.Transformer[models.Table] = func(t models.Table) resource.Map {
	return resource.Map{"id": t.ID, "number": t.Number, "active": t.Active}
}

var staffResource resource.Transformer[models.User] = func(u models.User) resource.Map {
	m := resource.Map{
		"id":         u.ID,
		"name":       u.Name,
		"role":       u.Role,
		"created_at": u.CreatedAt,
	}
	if pin := u.PIN(); pin != "" {
		m["code"] = pin
	}
	return m
}

// menu nests each category's products under it, keeping catalog order.
func menu(categories []models.Category, products []models.Product) []resource.Map {
	byCategory := collection.GroupBy(products, func(p models.Product) string { return p.CategoryID })
	return collection.Map(categories, func(c models.Category) resource.Map {
		return resource.With(categoryResource(c), resource.Map{
			"products": resource.Many(byCategory[c.ID], productResource),
		})
	})
}
