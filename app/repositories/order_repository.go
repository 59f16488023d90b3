package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/orm"
)

// OrderQuery filters order listings. Zero values mean "any".
type OrderQuery struct {
	Statuses []models.Status
	UserID   string
	TableID  string
	Page     orm.Page
}

func (q OrderQuery) apply(db *gorm.DB) *gorm.DB {
	if len(q.Statuses) > 0 {
		db = db.Where("status IN ?", q.Statuses)
	}
	if q.UserID != "" {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.TableID != "" {
		db = db.Where("table_id = ?", q.TableID)
	}
	return db
}

// OrderRepository handles database operations for orders and their items.
type OrderRepository struct{ base }

// CreateWithItems writes the order row and then its item rows inside one
// transaction. Nothing is visible to readers until both writes commit.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *models.Order) error {
	items := o.Items
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		o.Items = nil
		if err := tx.Omit("Table", "User").Create(o).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		return tx.Omit("Product").Create(&items).Error
	})
	o.Items = items
	if err != nil {
		return err
	}

	r.changed(ctx, models.CollectionOrders, notify.OpInsert, o.ID)
	r.changed(ctx, models.CollectionOrderItems, notify.OpInsert, o.ID)
	return nil
}

// List returns matching orders with their items, newest first. A zero page
// size returns every match.
func (r *OrderRepository) List(ctx context.Context, q OrderQuery) ([]models.Order, error) {
	db := q.apply(r.conn(ctx).Model(&models.Order{})).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Order("created_at DESC, id DESC")
	if q.Page.Size > 0 {
		db = db.Scopes(orm.Paginate(q.Page))
	}

	var orders []models.Order
	err := db.Find(&orders).Error
	return orders, err
}

// Count returns the number of orders matching q.
func (r *OrderRepository) Count(ctx context.Context, q OrderQuery) (int64, error) {
	var n int64
	err := q.apply(r.conn(ctx).Model(&models.Order{})).Count(&n).Error
	return n, err
}

// FindByID returns one order with its items.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (models.Order, error) {
	var o models.Order
	err := r.conn(ctx).Preload("Items").Where("id = ?", id).First(&o).Error
	return o, err
}

// UpdateStatus moves the order from one status to another only if it is
// still in from. It reports false when another writer got there first.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.Status) (bool, error) {
	res := r.conn(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.changed(ctx, models.CollectionOrders, notify.OpUpdate, id)
	return true, nil
}
