package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
)

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	var vErr *services.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, field)
}

func TestTableRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	seven := services.Text("7")
	created, err := f.admin.CreateTable(ctx, services.TableInput{Number: &seven})
	require.NoError(t, err)
	assert.Equal(t, 7, created.Number)
	assert.True(t, created.Active)

	got, ok := f.catalog.Table(created.ID)
	require.True(t, ok, "catalog refreshes after admin writes")
	assert.Equal(t, 7, got.Number)

	off := false
	updated, err := f.admin.UpdateTable(ctx, created.ID, services.TableInput{Active: &off})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, 7, updated.Number)

	require.NoError(t, f.admin.DeleteTable(ctx, created.ID))
	_, ok = f.catalog.Table(created.ID)
	assert.False(t, ok)
}

func TestTableNumberValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, raw := range []string{"", "abc", "0", "-2", "1.5"} {
		n := services.Text(raw)
		_, err := f.admin.CreateTable(ctx, services.TableInput{Number: &n})
		requireField(t, err, "number")
	}

	three := services.Text("3")
	_, err := f.admin.CreateTable(ctx, services.TableInput{Number: &three})
	requireField(t, err, "number")

	_, err = f.admin.UpdateTable(ctx, f.table(t, 1).ID, services.TableInput{Number: &three})
	requireField(t, err, "number")

	one := services.Text("1")
	_, err = f.admin.UpdateTable(ctx, f.table(t, 1).ID, services.TableInput{Number: &one})
	require.NoError(t, err, "keeping its own number is fine")
}

func TestDeleteWithDependentsIsRefused(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	placed := f.placeOrder(t, 2)

	var riErr *services.ReferentialIntegrityError

	bebidas := f.category(t, "Bebidas")
	require.ErrorAs(t, f.admin.DeleteCategory(ctx, bebidas.ID), &riErr)
	assert.Equal(t, "products", riErr.Dependent)
	_, err := f.repos.Categories.FindByID(ctx, bebidas.ID)
	require.NoError(t, err, "row survives")

	croquetas := f.product(t, "Croquetas")
	require.ErrorAs(t, f.admin.DeleteProduct(ctx, croquetas.ID), &riErr)
	_, err = f.repos.Products.FindByID(ctx, croquetas.ID)
	require.NoError(t, err)

	require.ErrorAs(t, f.admin.DeleteTable(ctx, placed.Order.TableID), &riErr)
	_, err = f.repos.Tables.FindByID(ctx, placed.Order.TableID)
	require.NoError(t, err)

	require.ErrorAs(t, f.admin.DeleteStaff(ctx, placed.Order.UserID), &riErr)
	_, err = f.repos.Users.FindByID(ctx, placed.Order.UserID)
	require.NoError(t, err)
}

func TestDeleteWithoutDependents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cat, err := f.admin.CreateCategory(ctx, services.CategoryInput{Name: strPtr("Tapas")})
	require.NoError(t, err)
	require.NoError(t, f.admin.DeleteCategory(ctx, cat.ID))

	require.NoError(t, f.admin.DeleteProduct(ctx, f.product(t, "Fruta").ID))
	for _, p := range f.catalog.Products() {
		assert.NotEqual(t, "Fruta", p.Name)
	}

	var bErr *services.BackendError
	require.ErrorAs(t, f.admin.DeleteCategory(ctx, cat.ID), &bErr)
	assert.True(t, bErr.NotFound())
}

func TestProductCRUD(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entrantes := f.category(t, "Entrantes")

	price := services.Text("6,50")
	p, err := f.admin.CreateProduct(ctx, services.ProductInput{
		Name:       strPtr("Gambas"),
		Price:      &price,
		CategoryID: &entrantes.ID,
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6.5").Equal(p.Price))
	require.NotNil(t, p.Category)
	assert.Equal(t, "Entrantes", p.Category.Name)
	assert.Len(t, f.catalog.ProductsByCategory(entrantes.ID), 5)

	postres := f.category(t, "Postres")
	p, err = f.admin.UpdateProduct(ctx, p.ID, services.ProductInput{CategoryID: &postres.ID})
	require.NoError(t, err)
	assert.Equal(t, postres.ID, p.CategoryID)
	assert.True(t, decimal.RequireFromString("6.5").Equal(p.Price), "untouched fields keep their value")

	free := services.Text("0")
	_, err = f.admin.UpdateProduct(ctx, p.ID, services.ProductInput{Price: &free})
	require.NoError(t, err, "complimentary items are allowed")
}

func TestProductValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cat := f.category(t, "Bebidas").ID

	neg := services.Text("-1")
	_, err := f.admin.CreateProduct(ctx, services.ProductInput{Name: strPtr("X"), Price: &neg, CategoryID: &cat})
	requireField(t, err, "price")

	nan := services.Text("cheap")
	_, err = f.admin.CreateProduct(ctx, services.ProductInput{Name: strPtr("X"), Price: &nan, CategoryID: &cat})
	requireField(t, err, "price")

	ok := services.Text("2")
	_, err = f.admin.CreateProduct(ctx, services.ProductInput{Name: strPtr("X"), Price: &ok, CategoryID: strPtr("missing")})
	requireField(t, err, "category_id")

	_, err = f.admin.CreateProduct(ctx, services.ProductInput{Name: strPtr("  "), Price: &ok, CategoryID: &cat})
	requireField(t, err, "name")

	_, err = f.admin.CreateProduct(ctx, services.ProductInput{Name: strPtr("X"), CategoryID: &cat})
	requireField(t, err, "price")
}

func TestStaffRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.admin.CreateStaff(ctx, services.StaffInput{Name: strPtr("Ana"), Role: strPtr("waiter"), Code: strPtr("1234")})
	requireField(t, err, "code")

	_, err = f.admin.CreateStaff(ctx, services.StaffInput{Name: strPtr("Ana"), Role: strPtr("waiter")})
	requireField(t, err, "code")

	_, err = f.admin.CreateStaff(ctx, services.StaffInput{Name: strPtr("Ana"), Role: strPtr("waiter"), Code: strPtr("12")})
	requireField(t, err, "code")

	_, err = f.admin.CreateStaff(ctx, services.StaffInput{Name: strPtr("Ana"), Role: strPtr("chef"), Code: strPtr("4321")})
	requireField(t, err, "role")

	_, err = f.admin.CreateStaff(ctx, services.StaffInput{Name: strPtr("Boss"), Role: strPtr("admin"), Code: strPtr("4321"), Password: strPtr("long enough")})
	requireField(t, err, "code")

	_, err = f.admin.CreateStaff(ctx, services.StaffInput{Name: strPtr("Boss"), Role: strPtr("admin"), Password: strPtr("short")})
	requireField(t, err, "password")

	ana, err := f.admin.CreateStaff(ctx, services.StaffInput{Name: strPtr("Ana"), Role: strPtr("waiter"), Code: strPtr("4321")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleWaiter, ana.Role)
	assert.Equal(t, "4321", ana.PIN())

	_, err = f.admin.UpdateStaff(ctx, ana.ID, services.StaffInput{Role: strPtr("kitchen")})
	requireField(t, err, "role")

	_, err = f.admin.UpdateStaff(ctx, ana.ID, services.StaffInput{Code: strPtr("9999")})
	requireField(t, err, "code")

	ana, err = f.admin.UpdateStaff(ctx, ana.ID, services.StaffInput{Name: strPtr("Ana María"), Code: strPtr("4322")})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", ana.Name)
	assert.Equal(t, "4322", ana.PIN())

	login, err := f.gate.Login(ctx, "4322")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, login.Identity.ID)

	require.NoError(t, f.admin.DeleteStaff(ctx, ana.ID))
	staff, err := f.admin.Staff(ctx)
	require.NoError(t, err)
	assert.Len(t, staff, 3)
}

func TestParsePrice(t *testing.T) {
	good := map[string]string{"6": "6", "6.00": "6", "6,5": "6.5", " 1.80 ": "1.8", "0": "0", "2.500": "2.5"}
	for in, want := range good {
		got, err := services.ParsePrice(in)
		require.NoError(t, err, in)
		assert.True(t, decimal.RequireFromString(want).Equal(got), "%q gave %s", in, got)
	}

	for _, in := range []string{"", "abc", "-0.01", "1.234", "1e12", "1e3", "1E2", "+5", ".5", "5.", "0x10", "1 000"} {
		_, err := services.ParsePrice(in)
		assert.Error(t, err, in)
	}
}

func TestTextAcceptsStringsAndNumbers(t *testing.T) {
	var in services.ProductInput
	require.NoError(t, json.Unmarshal([]byte(`{"price": 6.5}`), &in))
	assert.Equal(t, services.Text("6.5"), *in.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price": "6,50"}`), &in))
	assert.Equal(t, services.Text("6,50"), *in.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"price": true}`), &in))
}

func TestProductPriceRejectsExponent(t *testing.T) {
	f := setup(t)
	cat := f.category(t, "Bebidas").ID

	price := services.Text("1e3")
	_, err := f.admin.CreateProduct(context.Background(), services.ProductInput{Name: strPtr("Zumo"), Price: &price, CategoryID: &cat})
	requireField(t, err, "price")

	for _, p := range f.catalog.Products() {
		assert.NotEqual(t, "Zumo", p.Name)
	}
}
