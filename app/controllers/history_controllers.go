package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/repositories"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ctx"
	gql "github.com/Artssj1234/mesa-y-pedidos-app/pkg/graphql"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/orm"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/resource"
)

// HistoryController pages through every order ever placed, straight from
// the database, as REST or GraphQL.
type HistoryController struct {
	orders *services.OrderManager
	schema graphql.Schema
}

func NewHistoryController(orders *services.OrderManager) (*HistoryController, error) {
	h := &HistoryController{orders: orders}
	schema, err := gql.NewSchema(h.queryType())
	if err != nil {
		return nil, err
	}
	h.schema = schema
	return h, nil
}

// Index handles GET /api/admin/orders?page=&limit=&status=&table_id=&user_id=.
func (h *HistoryController) Index(c *ctx.Context) {
	statuses, errs := statusQuery(c)
	if errs != nil {
		c.ValidationError(errs)
		return
	}

	orders, page, err := h.orders.History(c.Context(), repositories.OrderQuery{
		Statuses: statuses,
		TableID:  c.Query("table_id"),
		UserID:   c.Query("user_id"),
		Page:     orm.Page{Number: c.QueryInt("page", 1), Size: c.QueryInt("limit", orm.DefaultPageSize)},
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Paginated(resource.Many(orders, orderResource), page)
}

// GraphQL handles POST /api/admin/graphql.
//
//	{ orders(status: ["ready"], page: 1, limit: 20) { total items { table_number total } } }
func (h *HistoryController) GraphQL(c *ctx.Context) {
	var req gql.Request
	if !c.BindJSON(&req) {
		return
	}

	result := gql.Execute(c.Context(), h.schema, req)
	if result.HasErrors() {
		c.Fail(http.StatusBadRequest, "GraphQL query failed", result)
		return
	}
	c.Success(result.Data)
}

// ─── Schema ──────────────────────────────────────────────────────────────────

var gqlItem = graphql.NewObject(graphql.ObjectConfig{
	Name: "OrderItem",
	Fields: graphql.Fields{
		"product_id":    &graphql.Field{Type: graphql.String},
		"product_name":  &graphql.Field{Type: graphql.String},
		"product_price": &graphql.Field{Type: graphql.String},
		"quantity":      &graphql.Field{Type: graphql.Int},
		"subtotal":      &graphql.Field{Type: graphql.String},
	},
})

var gqlOrder = graphql.NewObject(graphql.ObjectConfig{
	Name: "Order",
	Fields: graphql.Fields{
		"id":           &graphql.Field{Type: graphql.String},
		"table_id":     &graphql.Field{Type: graphql.String},
		"table_number": &graphql.Field{Type: graphql.Int},
		"user_id":      &graphql.Field{Type: graphql.String},
		"waiter_name":  &graphql.Field{Type: graphql.String},
		"status":       &graphql.Field{Type: graphql.String},
		"status_label": &graphql.Field{Type: graphql.String},
		"observations": &graphql.Field{Type: graphql.String},
		"created_at":   &graphql.Field{Type: graphql.String},
		"total":        &graphql.Field{Type: graphql.String},
		"items":        &graphql.Field{Type: graphql.NewList(gqlItem)},
	},
})

var gqlOrderPage = graphql.NewObject(graphql.ObjectConfig{
	Name: "OrderPage",
	Fields: graphql.Fields{
		"items":     &graphql.Field{Type: graphql.NewList(gqlOrder)},
		"total":     &graphql.Field{Type: graphql.Int},
		"page":      &graphql.Field{Type: graphql.Int},
		"limit":     &graphql.Field{Type: graphql.Int},
		"last_page": &graphql.Field{Type: graphql.Int},
	},
})

// graphOrder flattens an order into scalars graphql-go can serialize.
func graphOrder(o models.Order) resource.Map {
	m := orderResource(o)
	m["status"] = string(o.Status)
	m["created_at"] = o.CreatedAt.UTC().Format(time.RFC3339)
	return m
}

func (h *HistoryController) queryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"orders": &graphql.Field{
				Type: gqlOrderPage,
				Args: graphql.FieldConfigArgument{
					"status":   &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"table_id": &graphql.ArgumentConfig{Type: graphql.String},
					"user_id":  &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: orm.DefaultPageSize},
				},
				Resolve: h.resolveOrders,
			},
		},
	})
}

func (h *HistoryController) resolveOrders(p graphql.ResolveParams) (interface{}, error) {
	q := repositories.OrderQuery{}
	if raw, ok := p.Args["status"].([]interface{}); ok {
		for _, v := range raw {
			s, err := models.ParseStatus(toString(v))
			if err != nil {
				return nil, err
			}
			q.Statuses = append(q.Statuses, s)
		}
	}
	q.TableID, _ = p.Args["table_id"].(string)
	q.UserID, _ = p.Args["user_id"].(string)
	q.Page.Number, _ = p.Args["page"].(int)
	q.Page.Size, _ = p.Args["limit"].(int)

	ctx := p.Context
	if ctx == nil {
		ctx = context.Background()
	}
	orders, page, err := h.orders.History(ctx, q)
	if err != nil {
		return nil, err
	}

	items := make([]interface{}, len(orders))
	for i, o := range orders {
		items[i] = graphOrder(o)
	}
	return resource.Map{
		"items":     items,
		"total":     int(page.Total),
		"page":      page.Page,
		"limit":     page.Limit,
		"last_page": page.LastPage,
	}, nil
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
