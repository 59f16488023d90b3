package migrations

import (
	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/migration"
)

func init() {
	migration.Register("20250101000000_create_catalog_tables", &CreateCatalogTables{})
	migration.Register("20250101000001_create_users_table", &CreateUsersTable{})
	migration.Register("20250101000002_create_orders_tables", &CreateOrdersTables{})
}

// -------- 0001: categories, products, restaurant_tables --------

type CreateCatalogTables struct{}

func (m *CreateCatalogTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Category{}, &models.Product{}, &models.Table{})
}

func (m *CreateCatalogTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(models.CollectionProducts, models.CollectionCategories, models.CollectionTables)
}

// -------- 0002: users --------

// CreateUsersTable adds staff. users.code carries a unique index so two
// staff members can never share a PIN, whatever the client checked.
type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(models.CollectionUsers)
}

// -------- 0003: orders, order_items --------

type CreateOrdersTables struct{}

func (m *CreateOrdersTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{}, &models.OrderItem{})
}

func (m *CreateOrdersTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(models.CollectionOrderItems, models.CollectionOrders)
}
