package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status is an order's position in the kitchen flow.
// Orders only move forward: pending -> preparing -> ready.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
)

// Statuses lists every status in flow order.
var Statuses = []Status{StatusPending, StatusPreparing, StatusReady}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusPreparing, StatusReady:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Rank orders statuses; unknown statuses rank -1.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusPreparing:
		return 1
	case StatusReady:
		return 2
	default:
		return -1
	}
}

// Next returns the single legal successor. Ready is terminal.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusPending:
		return StatusPreparing, true
	case StatusPreparing:
		return StatusReady, true
	default:
		return "", false
	}
}

// CanTransition reports whether from -> to is the next step in the flow.
func CanTransition(from, to Status) bool {
	next, ok := from.Next()
	return ok && next == to
}

// Active reports whether the kitchen still has work on the order.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusPreparing
}

// Label is the name shown on the restaurant screens.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "pendiente"
	case StatusPreparing:
		return "preparando"
	case StatusReady:
		return "listo"
	default:
		return string(s)
	}
}

// Order is a table's submitted order. TableNumber and WaiterName are
// snapshots taken when the order is created.
type Order struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	TableID      string      `gorm:"size:36;not null;index" json:"table_id"`
	TableNumber  int         `gorm:"not null" json:"table_number"`
	Observations string      `gorm:"type:text" json:"observations"`
	Status       Status      `gorm:"size:20;not null;default:pending;index" json:"status"`
	UserID       string      `gorm:"size:36;not null;index" json:"user_id"`
	WaiterName   string      `gorm:"size:255" json:"waiter_name"`
	CreatedAt    time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Items        []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Table        *Table      `gorm:"foreignKey:TableID;constraint:OnDelete:RESTRICT" json:"-"`
	User         *User       `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Order) TableName() string { return CollectionOrders }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Total sums price times quantity over the order's items.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// OrderItem is an immutable line of an order. ProductName and ProductPrice
// are captured at creation and never re-joined.
type OrderItem struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	OrderID      string          `gorm:"size:36;not null;index" json:"order_id"`
	ProductID    string          `gorm:"size:36;not null;index" json:"product_id"`
	ProductName  string          `gorm:"size:255;not null" json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"product_price"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	Product      *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
	CreatedAt    time.Time       `json:"-"`
	UpdatedAt    time.Time       `json:"-"`
}

func (OrderItem) TableName() string { return CollectionOrderItems }

func (it *OrderItem) BeforeCreate(*gorm.DB) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	return nil
}

// Subtotal is price times quantity.
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.ProductPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}
