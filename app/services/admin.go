package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/repositories"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/auth"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
)

const (
	maxNameLength     = 255
	minPasswordLength = 8
)

var (
	maxPrice = decimal.New(99999999, 0)

	// Digits with an optional decimal part, after the comma is normalised.
	plainDecimalRE = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// Text is a form value. It accepts a JSON string or a bare JSON number so
// "6.00", "6,00" and 6 all reach the parser as text.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a string or a number: %w", err)
	}
	*t = Text(n.String())
	return nil
}

// ParsePrice reads a price typed by an admin. A decimal comma is accepted.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, errors.New("is required")
	}
	if !plainDecimalRE.MatchString(s) {
		return decimal.Zero, errors.New("must be a number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("must be a number")
	}
	switch {
	case d.IsNegative():
		return decimal.Zero, errors.New("cannot be negative")
	case d.Exponent() < -2 && !d.Equal(d.Round(2)):
		return decimal.Zero, errors.New("at most 2 decimals")
	case d.GreaterThan(maxPrice):
		return decimal.Zero, errors.New("is too large")
	}
	return d.Round(2), nil
}

// ParseTableNumber reads a table number typed by an admin.
func ParseTableNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("must be a whole number")
	}
	if n <= 0 {
		return 0, errors.New("must be greater than zero")
	}
	return n, nil
}

func cleanName(field string, s *string, required bool) (string, *ValidationError) {
	if s == nil {
		if required {
			return "", invalid(field, "is required")
		}
		return "", nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return "", invalid(field, "is required")
	}
	if len(v) > maxNameLength {
		return "", invalid(field, fmt.Sprintf("at most %d characters", maxNameLength))
	}
	return v, nil
}

// ─── Inputs ──────────────────────────────────────────────────────────────────

// Nil fields are left untouched on update and required on create unless
// noted otherwise.

type CategoryInput struct {
	Name *string `json:"name"`
}

type ProductInput struct {
	Name       *string `json:"name"`
	Price      *Text   `json:"price"`
	CategoryID *string `json:"category_id"`
}

type TableInput struct {
	Number *Text `json:"number"`
	Active *bool `json:"active"` // defaults to true on create
}

type StaffInput struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Code     *string `json:"code"`
	Password *string `json:"password"`
}

// AdminPanel is the back office: CRUD over categories, products, tables and
// staff with the integrity checks the screens rely on.
type AdminPanel struct {
	repos   *repositories.Repositories
	catalog *CatalogStore
}

func NewAdminPanel(repos *repositories.Repositories, catalog *CatalogStore) *AdminPanel {
	return &AdminPanel{repos: repos, catalog: catalog}
}

// reload refreshes the catalog after a committed write. The write already
// succeeded, so a failed reload is only logged.
func (a *AdminPanel) reload(ctx context.Context) {
	if err := a.catalog.Refresh(ctx); err != nil {
		logger.WithCtx(ctx).Warn("catalog reload after admin write failed", "error", err)
	}
}

// writeErr maps a failed write. Unique-index violations surface on field.
func writeErr(op, field string, err error) error {
	if isDuplicate(err) {
		return invalid(field, "already in use")
	}
	return backend(op, err)
}

func blocked(entity, id, dependent string, n int64) error {
	return &ReferentialIntegrityError{Entity: entity, ID: id, Dependent: dependent, Count: n}
}

// ─── Categories ──────────────────────────────────────────────────────────────

func (a *AdminPanel) CreateCategory(ctx context.Context, in CategoryInput) (models.Category, error) {
	name, verr := cleanName("name", in.Name, true)
	if verr != nil {
		return models.Category{}, verr
	}
	c := models.Category{Name: name}
	if err := a.repos.Categories.Create(ctx, &c); err != nil {
		return models.Category{}, writeErr("create category", "name", err)
	}
	a.reload(ctx)
	return c, nil
}

func (a *AdminPanel) UpdateCategory(ctx context.Context, id string, in CategoryInput) (models.Category, error) {
	name, verr := cleanName("name", in.Name, true)
	if verr != nil {
		return models.Category{}, verr
	}
	if err := a.repos.Categories.Update(ctx, id, map[string]interface{}{"name": name}); err != nil {
		return models.Category{}, writeErr("update category", "name", err)
	}
	a.reload(ctx)
	c, err := a.repos.Categories.FindByID(ctx, id)
	return c, backend("find category", err)
}

// DeleteCategory refuses while any product is filed under the category.
func (a *AdminPanel) DeleteCategory(ctx context.Context, id string) error {
	n, err := a.repos.Categories.CountProducts(ctx, id)
	if err != nil {
		return backend("count category products", err)
	}
	if n > 0 {
		return blocked("category", id, "products", n)
	}
	if err := a.repos.Categories.Delete(ctx, id); err != nil {
		return backend("delete category", err)
	}
	a.reload(ctx)
	return nil
}

// ─── Products ────────────────────────────────────────────────────────────────

func (a *AdminPanel) productFields(ctx context.Context, in ProductInput, create bool) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if in.Name != nil || create {
		name, verr := cleanName("name", in.Name, true)
		if verr != nil {
			return nil, verr
		}
		fields["name"] = name
	}
	if in.Price != nil || create {
		if in.Price == nil {
			return nil, invalid("price", "is required")
		}
		price, err := ParsePrice(string(*in.Price))
		if err != nil {
			return nil, invalid("price", err.Error())
		}
		fields["price"] = price
	}
	if in.CategoryID != nil || create {
		if in.CategoryID == nil || strings.TrimSpace(*in.CategoryID) == "" {
			return nil, invalid("category_id", "is required")
		}
		id := strings.TrimSpace(*in.CategoryID)
		if _, err := a.repos.Categories.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, invalid("category_id", "unknown category")
			}
			return nil, backend("find category", err)
		}
		fields["category_id"] = id
	}
	return fields, nil
}

func (a *AdminPanel) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	fields, err := a.productFields(ctx, in, true)
	if err != nil {
		return models.Product{}, err
	}
	p := models.Product{
		Name:       fields["name"].(string),
		Price:      fields["price"].(decimal.Decimal),
		CategoryID: fields["category_id"].(string),
	}
	if err := a.repos.Products.Create(ctx, &p); err != nil {
		return models.Product{}, writeErr("create product", "name", err)
	}
	a.reload(ctx)
	return a.findProduct(ctx, p.ID)
}

func (a *AdminPanel) UpdateProduct(ctx context.Context, id string, in ProductInput) (models.Product, error) {
	fields, err := a.productFields(ctx, in, false)
	if err != nil {
		return models.Product{}, err
	}
	if len(fields) == 0 {
		return models.Product{}, invalid("product", "nothing to update")
	}
	if err := a.repos.Products.Update(ctx, id, fields); err != nil {
		return models.Product{}, writeErr("update product", "name", err)
	}
	a.reload(ctx)
	return a.findProduct(ctx, id)
}

func (a *AdminPanel) findProduct(ctx context.Context, id string) (models.Product, error) {
	p, err := a.repos.Products.FindByID(ctx, id)
	return p, backend("find product", err)
}

// DeleteProduct refuses while any order line references the product.
func (a *AdminPanel) DeleteProduct(ctx context.Context, id string) error {
	n, err := a.repos.Products.CountOrderItems(ctx, id)
	if err != nil {
		return backend("count product order items", err)
	}
	if n > 0 {
		return blocked("product", id, "order items", n)
	}
	if err := a.repos.Products.Delete(ctx, id); err != nil {
		return backend("delete product", err)
	}
	a.reload(ctx)
	return nil
}

// ─── Tables ──────────────────────────────────────────────────────────────────

// tableNumberTaken checks the loaded floor plan. The unique index is the
// final word when two admins race.
func (a *AdminPanel) tableNumberTaken(number int, self string) bool {
	for _, t := range a.catalog.Tables() {
		if t.Number == number && t.ID != self {
			return true
		}
	}
	return false
}

func (a *AdminPanel) CreateTable(ctx context.Context, in TableInput) (models.Table, error) {
	if in.Number == nil {
		return models.Table{}, invalid("number", "is required")
	}
	n, err := ParseTableNumber(string(*in.Number))
	if err != nil {
		return models.Table{}, invalid("number", err.Error())
	}
	if a.tableNumberTaken(n, "") {
		return models.Table{}, invalid("number", fmt.Sprintf("table %d already exists", n))
	}

	t := models.Table{Number: n, Active: true}
	if in.Active != nil {
		t.Active = *in.Active
	}
	if err := a.repos.Tables.Create(ctx, &t); err != nil {
		return models.Table{}, writeErr("create table", "number", err)
	}
	a.reload(ctx)
	return t, nil
}

func (a *AdminPanel) UpdateTable(ctx context.Context, id string, in TableInput) (models.Table, error) {
	fields := map[string]interface{}{}
	if in.Number != nil {
		n, err := ParseTableNumber(string(*in.Number))
		if err != nil {
			return models.Table{}, invalid("number", err.Error())
		}
		if a.tableNumberTaken(n, id) {
			return models.Table{}, invalid("number", fmt.Sprintf("table %d already exists", n))
		}
		fields["number"] = n
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if len(fields) == 0 {
		return models.Table{}, invalid("table", "nothing to update")
	}

	if err := a.repos.Tables.Update(ctx, id, fields); err != nil {
		return models.Table{}, writeErr("update table", "number", err)
	}
	a.reload(ctx)
	t, err := a.repos.Tables.FindByID(ctx, id)
	return t, backend("find table", err)
}

// DeleteTable refuses while any order was taken at the table.
func (a *AdminPanel) DeleteTable(ctx context.Context, id string) error {
	n, err := a.repos.Tables.CountOrders(ctx, id)
	if err != nil {
		return backend("count table orders", err)
	}
	if n > 0 {
		return blocked("table", id, "orders", n)
	}
	if err := a.repos.Tables.Delete(ctx, id); err != nil {
		return backend("delete table", err)
	}
	a.reload(ctx)
	return nil
}

// ─── Staff ───────────────────────────────────────────────────────────────────

// Staff lists every user ordered by role then name.
func (a *AdminPanel) Staff(ctx context.Context) ([]models.User, error) {
	users, err := a.repos.Users.All(ctx)
	return users, backend("list staff", err)
}

func (a *AdminPanel) pinTaken(ctx context.Context, pin, self string) (bool, error) {
	users, err := a.repos.Users.All(ctx)
	if err != nil {
		return false, backend("list staff", err)
	}
	for _, u := range users {
		if u.PIN() == pin && u.ID != self {
			return true, nil
		}
	}
	return false, nil
}

// credentials validates the PIN or password for role and returns the
// columns to write.
func (a *AdminPanel) credentials(ctx context.Context, role models.Role, in StaffInput, self string, create bool) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	pinRole, err := role.UsesPIN()
	if err != nil {
		return nil, invalid("role", err.Error())
	}

	if pinRole {
		if in.Password != nil {
			return nil, invalid("password", "only admins sign in with a password")
		}
		if in.Code == nil {
			if create {
				return nil, invalid("code", "is required")
			}
			return fields, nil
		}
		pin := strings.TrimSpace(*in.Code)
		if !ValidPIN(pin) {
			return nil, invalid("code", "must be 4 digits")
		}
		taken, err := a.pinTaken(ctx, pin, self)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, invalid("code", "already in use")
		}
		fields["code"] = pin
		return fields, nil
	}

	if in.Code != nil {
		return nil, invalid("code", "admins sign in with a password")
	}
	if in.Password == nil {
		if create {
			return nil, invalid("password", "is required")
		}
		return fields, nil
	}
	if len(*in.Password) < minPasswordLength {
		return nil, invalid("password", fmt.Sprintf("at least %d characters", minPasswordLength))
	}
	hash, err := auth.HashPassword(*in.Password)
	if err != nil {
		return nil, backend("hash password", err)
	}
	fields["password_hash"] = hash
	return fields, nil
}

func (a *AdminPanel) CreateStaff(ctx context.Context, in StaffInput) (models.User, error) {
	name, verr := cleanName("name", in.Name, true)
	if verr != nil {
		return models.User{}, verr
	}
	if in.Role == nil {
		return models.User{}, invalid("role", "is required")
	}
	role, err := models.ParseRole(*in.Role)
	if err != nil {
		return models.User{}, invalid("role", err.Error())
	}
	fields, err := a.credentials(ctx, role, in, "", true)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{Name: name, Role: role}
	if pin, ok := fields["code"].(string); ok {
		u.Code = &pin
	}
	if hash, ok := fields["password_hash"].(string); ok {
		u.PasswordHash = hash
	}
	if err := a.repos.Users.Create(ctx, &u); err != nil {
		return models.User{}, writeErr("create staff", "code", err)
	}
	logger.WithCtx(ctx).Info("staff created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// UpdateStaff changes name and credentials. The role is fixed at creation.
func (a *AdminPanel) UpdateStaff(ctx context.Context, id string, in StaffInput) (models.User, error) {
	current, err := a.repos.Users.FindByID(ctx, id)
	if err != nil {
		return models.User{}, backend("find staff", err)
	}
	if in.Role != nil {
		role, err := models.ParseRole(*in.Role)
		if err != nil {
			return models.User{}, invalid("role", err.Error())
		}
		if role != current.Role {
			return models.User{}, invalid("role", "cannot be changed")
		}
	}

	fields, err := a.credentials(ctx, current.Role, in, id, false)
	if err != nil {
		return models.User{}, err
	}
	if in.Name != nil {
		name, verr := cleanName("name", in.Name, true)
		if verr != nil {
			return models.User{}, verr
		}
		fields["name"] = name
	}
	if len(fields) == 0 {
		return models.User{}, invalid("staff", "nothing to update")
	}

	if err := a.repos.Users.Update(ctx, id, fields); err != nil {
		return models.User{}, writeErr("update staff", "code", err)
	}
	u, err := a.repos.Users.FindByID(ctx, id)
	return u, backend("find staff", err)
}

// DeleteStaff refuses while the staff member has taken orders.
func (a *AdminPanel) DeleteStaff(ctx context.Context, id string) error {
	n, err := a.repos.Users.CountOrders(ctx, id)
	if err != nil {
		return backend("count staff orders", err)
	}
	if n > 0 {
		return blocked("staff", id, "orders", n)
	}
	if err := a.repos.Users.Delete(ctx, id); err != nil {
		return backend("delete staff", err)
	}
	return nil
}
