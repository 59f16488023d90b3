package services_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/repositories"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/auth"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/session"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/testkit"
)

func TestMain(m *testing.M) {
	logger.Silence()
	os.Exit(m.Run())
}

type fixture struct {
	db       *gorm.DB
	bus      *notify.Memory
	repos    *repositories.Repositories
	catalog  *services.CatalogStore
	orders   *services.OrderManager
	admin    *services.AdminPanel
	gate     *services.IdentityGate
	store    *session.FileStore
	storeDir string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{db: testkit.Seeded(t)}
	f.bus = notify.NewMemory(4, logger.Discard())
	t.Cleanup(func() { _ = f.bus.Close() })

	f.repos = repositories.New(f.db, f.bus)
	f.catalog = services.NewCatalogStore(f.repos)
	require.NoError(t, f.catalog.Refresh(ctx))
	f.orders = services.NewOrderManager(f.repos, f.catalog)
	f.admin = services.NewAdminPanel(f.repos, f.catalog)

	f.storeDir = t.TempDir()
	store, err := session.NewFileStore(f.storeDir)
	require.NoError(t, err)
	f.store = store

	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	f.gate = services.NewIdentityGate(f.repos.Users, services.NewSessions(store, time.Hour), issuer)
	return f
}

func (f *fixture) product(t *testing.T, name string) models.Product {
	t.Helper()
	for _, p := range f.catalog.Products() {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %q not seeded", name)
	return models.Product{}
}

func (f *fixture) table(t *testing.T, number int) models.Table {
	t.Helper()
	for _, tb := range f.catalog.Tables() {
		if tb.Number == number {
			return tb
		}
	}
	t.Fatalf("table %d not seeded", number)
	return models.Table{}
}

func (f *fixture) staff(t *testing.T, pin string) models.User {
	t.Helper()
	users, err := f.repos.Users.FindStaffByCode(context.Background(), pin)
	require.NoError(t, err)
	require.Len(t, users, 1)
	return users[0]
}

func (f *fixture) category(t *testing.T, name string) models.Category {
	t.Helper()
	for _, c := range f.catalog.Categories() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not seeded", name)
	return models.Category{}
}

// placeOrder creates 2x Croquetas and 1x Agua for table number.
func (f *fixture) placeOrder(t *testing.T, number int) *services.PlacedOrder {
	t.Helper()
	placed, err := f.orders.CreateOrder(context.Background(), services.OrderInput{
		TableID: f.table(t, number).ID,
		UserID:  f.staff(t, "1234").ID,
		Items: []services.OrderLine{
			{ProductID: f.product(t, "Croquetas").ID, Quantity: 2},
			{ProductID: f.product(t, "Agua").ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	return placed
}

func strPtr(s string) *string { return &s }
