package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Collection names double as table names and change-feed topics.
const (
	CollectionUsers      = "users"
	CollectionCategories = "categories"
	CollectionProducts   = "products"
	CollectionTables     = "restaurant_tables"
	CollectionOrders     = "orders"
	CollectionOrderItems = "order_items"
)

// Collections lists every collection that emits change notifications.
var Collections = []string{
	CollectionUsers,
	CollectionCategories,
	CollectionProducts,
	CollectionTables,
	CollectionOrders,
	CollectionOrderItems,
}

// Category groups products on the menu.
type Category struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Category) TableName() string { return CollectionCategories }

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Product is a menu item.
type Product struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	Name       string          `gorm:"size:255;not null;index" json:"name"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID string          `gorm:"size:36;not null;index" json:"category_id"`
	Category   *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	CreatedAt  time.Time       `json:"-"`
	UpdatedAt  time.Time       `json:"-"`
}

func (Product) TableName() string { return CollectionProducts }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Table is a dining table. Number is unique across active and inactive tables.
type Table struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Number    int       `gorm:"not null;uniqueIndex" json:"number"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Table) TableName() string { return CollectionTables }

func (t *Table) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
