package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/repositories"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/metrics"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/orm"
)

const maxObservations = 500

// OrderLine is one requested product and quantity.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderInput is what a waiter submits for a table.
type OrderInput struct {
	TableID      string      `json:"table_id"`
	Items        []OrderLine `json:"items"`
	Observations string      `json:"observations"`
	UserID       string      `json:"-"`
}

// PlacedOrder is a freshly created order.
type PlacedOrder struct {
	Order        models.Order    `json:"order"`
	Total        decimal.Decimal `json:"total"`
	Confirmation string          `json:"confirmation"`
}

// OrderFilter narrows a snapshot read. Zero values mean "any".
type OrderFilter struct {
	Statuses []models.Status
	UserID   string
	TableID  string
	Limit    int
}

func (f OrderFilter) match(o models.Order) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.TableID != "" && o.TableID != f.TableID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// OrderManager creates orders, advances their status and keeps an
// in-memory list of every order, newest first.
type OrderManager struct {
	orders  *repositories.OrderRepository
	users   *repositories.UserRepository
	catalog *CatalogStore

	refreshMu sync.Mutex

	mu       sync.RWMutex
	snapshot []models.Order
	loadedAt time.Time
}

func NewOrderManager(repos *repositories.Repositories, catalog *CatalogStore) *OrderManager {
	return &OrderManager{orders: repos.Orders, users: repos.Users, catalog: catalog}
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// CreateOrder validates the input against the catalog, snapshots names and
// prices onto the rows and writes the order with its items atomically.
func (m *OrderManager) CreateOrder(ctx context.Context, in OrderInput) (*PlacedOrder, error) {
	if len(in.Items) == 0 {
		return nil, invalid("items", "an order needs at least one item")
	}
	obs := strings.TrimSpace(in.Observations)
	if utf8.RuneCountInString(obs) > maxObservations {
		return nil, invalid("observations", fmt.Sprintf("at most %d characters", maxObservations))
	}

	creator, err := m.users.FindByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("user_id", "unknown user")
		}
		return nil, backend("find order creator", err)
	}

	table, ok := m.lookupTable(ctx, in.TableID)
	if !ok {
		return nil, invalid("table_id", "unknown table")
	}
	if !table.Active {
		return nil, invalid("table_id", fmt.Sprintf("table %d is not in service", table.Number))
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	for i, line := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if line.Quantity < 1 {
			return nil, invalid(field+".quantity", "must be at least 1")
		}
		p, ok := m.lookupProduct(ctx, line.ProductID)
		if !ok {
			return nil, invalid(field+".product_id", "unknown product")
		}
		items = append(items, models.OrderItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			Quantity:     line.Quantity,
		})
	}

	o := models.Order{
		TableID:      table.ID,
		TableNumber:  table.Number,
		Observations: obs,
		Status:       models.StatusPending,
		UserID:       creator.ID,
		WaiterName:   creator.Name,
		Items:        items,
	}
	if err := m.orders.CreateWithItems(ctx, &o); err != nil {
		if vErr := m.vanished(ctx, o); vErr != nil {
			logger.WithCtx(ctx).Warn("order references removed rows", "error", err)
			return nil, vErr
		}
		return nil, backend("create order", err)
	}

	metrics.OrdersCreated.Inc()
	logger.WithCtx(ctx).Info("order created", "order_id", o.ID, "table", o.TableNumber, "items", len(o.Items))
	return &PlacedOrder{
		Order:        o,
		Total:        o.Total(),
		Confirmation: Confirmation(o.TableNumber),
	}, nil
}

// Confirmation is the message shown to the waiter after sending an order.
func Confirmation(tableNumber int) string {
	return fmt.Sprintf("Pedido enviado para la mesa %d", tableNumber)
}

// UpdateStatus moves an order one step forward. Any other target, including
// a step backwards or a skip, is an InvalidTransition.
func (m *OrderManager) UpdateStatus(ctx context.Context, id string, to models.Status) (models.Order, error) {
	if to.Rank() < 0 {
		return models.Order{}, invalid("status", fmt.Sprintf("unknown status %q", to))
	}

	o, err := m.orders.FindByID(ctx, id)
	if err != nil {
		return models.Order{}, backend("find order", err)
	}
	from := o.Status
	if !models.CanTransition(from, to) {
		metrics.OrderTransitions.WithLabelValues(string(from), string(to), "rejected").Inc()
		return models.Order{}, &InvalidTransition{OrderID: id, From: from, To: to}
	}

	ok, err := m.orders.UpdateStatus(ctx, id, from, to)
	if err != nil {
		metrics.OrderTransitions.WithLabelValues(string(from), string(to), "error").Inc()
		return models.Order{}, backend("update order status", err)
	}
	if !ok {
		// Someone else moved it between our read and write.
		current := from
		if fresh, err := m.orders.FindByID(ctx, id); err == nil {
			current = fresh.Status
		}
		metrics.OrderTransitions.WithLabelValues(string(from), string(to), "rejected").Inc()
		return models.Order{}, &InvalidTransition{OrderID: id, From: current, To: to}
	}

	metrics.OrderTransitions.WithLabelValues(string(from), string(to), "ok").Inc()
	logger.WithCtx(ctx).Info("order status changed", "order_id", id, "from", from, "to", to)
	o.Status = to
	return o, nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// Orders returns the snapshot orders matching f, newest first.
func (m *OrderManager) Orders(f OrderFilter) []models.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, o := range m.snapshot {
		if !f.match(o) {
			continue
		}
		out = append(out, o)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Order returns one order from the snapshot.
func (m *OrderManager) Order(id string) (models.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.snapshot {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// LoadedAt is when the snapshot was last replaced.
func (m *OrderManager) LoadedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadedAt
}

// Refresh re-lists every order with its items. The result is dropped when
// ctx is cancelled before the list returns.
func (m *OrderManager) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	orders, err := m.orders.List(ctx, repositories.OrderQuery{})
	if err != nil {
		return backend("list orders", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.snapshot = orders
	m.loadedAt = time.Now()
	m.mu.Unlock()
	return nil
}

// Start loads the list and re-lists it on every order change.
func (m *OrderManager) Start(ctx context.Context, sub Subscriber) error {
	if err := m.Refresh(ctx); err != nil {
		return err
	}
	return watch(ctx, sub, "orders", []string{
		models.CollectionOrders,
		models.CollectionOrderItems,
	}, m.Refresh)
}

// History pages through orders straight from the database.
func (m *OrderManager) History(ctx context.Context, q repositories.OrderQuery) ([]models.Order, orm.Pagination, error) {
	q.Page = q.Page.Normalize()
	total, err := m.orders.Count(ctx, q)
	if err != nil {
		return nil, orm.Pagination{}, backend("count orders", err)
	}
	orders, err := m.orders.List(ctx, q)
	if err != nil {
		return nil, orm.Pagination{}, backend("list orders", err)
	}
	return orders, orm.NewPagination(q.Page, total), nil
}

// lookupTable resolves a table from the catalog, reloading it once when the
// id is unknown in case the snapshot is behind.
func (m *OrderManager) lookupTable(ctx context.Context, id string) (models.Table, bool) {
	if id == "" {
		return models.Table{}, false
	}
	if t, ok := m.catalog.Table(id); ok {
		return t, true
	}
	if err := m.catalog.Refresh(ctx); err != nil {
		logger.WithCtx(ctx).Warn("catalog reload failed", "error", err)
		return models.Table{}, false
	}
	return m.catalog.Table(id)
}

// vanished reloads the catalog after a failed order write and reports a
// table, product or creator that was removed since validation.
func (m *OrderManager) vanished(ctx context.Context, o models.Order) error {
	if err := m.catalog.Refresh(ctx); err != nil {
		return nil
	}
	if _, ok := m.catalog.Table(o.TableID); !ok {
		return invalid("table_id", "unknown table")
	}
	for i, it := range o.Items {
		if _, ok := m.catalog.Product(it.ProductID); !ok {
			return invalid(fmt.Sprintf("items[%d].product_id", i), "unknown product")
		}
	}
	if _, err := m.users.FindByID(ctx, o.UserID); errors.Is(err, gorm.ErrRecordNotFound) {
		return invalid("user_id", "unknown user")
	}
	return nil
}

func (m *OrderManager) lookupProduct(ctx context.Context, id string) (models.Product, bool) {
	if id == "" {
		return models.Product{}, false
	}
	if p, ok := m.catalog.Product(id); ok {
		return p, true
	}
	if err := m.catalog.Refresh(ctx); err != nil {
		logger.WithCtx(ctx).Warn("catalog reload failed", "error", err)
		return models.Product{}, false
	}
	return m.catalog.Product(id)
}
