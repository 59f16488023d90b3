package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
)

// Publisher is the write side of a notifier.
type Publisher interface {
	Publish(ctx context.Context, c notify.Change) error
}

// base is embedded by every repository. Writes call changed once they have
// committed so subscribers never refetch ahead of the data.
type base struct {
	db  *gorm.DB
	pub Publisher
}

func (b base) conn(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx)
}

func (b base) changed(ctx context.Context, collection string, op notify.Op, id string) {
	if b.pub == nil {
		return
	}
	err := b.pub.Publish(ctx, notify.Change{Collection: collection, Op: op, ID: id, At: time.Now().UTC()})
	if err != nil {
		logger.WithCtx(ctx).Warn("change notification failed", "collection", collection, "op", op, "error", err)
	}
}

// Repositories bundles every repository over one connection.
type Repositories struct {
	Users      *UserRepository
	Categories *CategoryRepository
	Products   *ProductRepository
	Tables     *TableRepository
	Orders     *OrderRepository
}

// New wires every repository to db and pub. pub may be nil.
func New(db *gorm.DB, pub Publisher) *Repositories {
	b := base{db: db, pub: pub}
	return &Repositories{
		Users:      &UserRepository{base: b},
		Categories: &CategoryRepository{base: b},
		Products:   &ProductRepository{base: b},
		Tables:     &TableRepository{base: b},
		Orders:     &OrderRepository{base: b},
	}
}

var fingerprintTables = map[string]bool{
	models.CollectionUsers:      true,
	models.CollectionCategories: true,
	models.CollectionProducts:   true,
	models.CollectionTables:     true,
	models.CollectionOrders:     true,
	models.CollectionOrderItems: true,
}

// Fingerprint summarises a collection as "<rows>:<latest updated_at>". It
// backs the polling notifier.
func Fingerprint(db *gorm.DB) notify.Prober {
	return func(ctx context.Context, collection string) (string, error) {
		if !fingerprintTables[collection] {
			return "", fmt.Errorf("fingerprint: unknown collection %q", collection)
		}
		var row struct {
			N      int64
			Latest sql.NullString
		}
		err := db.WithContext(ctx).Table(collection).
			Select("COUNT(*) AS n, MAX(updated_at) AS latest").
			Scan(&row).Error
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d:%s", row.N, row.Latest.String), nil
	}
}
