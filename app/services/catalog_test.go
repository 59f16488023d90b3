package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
)

func TestCatalogLoadsSeed(t *testing.T) {
	f := setup(t)

	assert.Len(t, f.catalog.Categories(), 4)
	assert.Len(t, f.catalog.Products(), 16)
	assert.Len(t, f.catalog.Tables(), 6)
	assert.Len(t, f.catalog.ActiveTables(), 5)
	assert.False(t, f.catalog.LoadedAt().IsZero())

	bebidas := f.category(t, "Bebidas")
	drinks := f.catalog.ProductsByCategory(bebidas.ID)
	assert.Len(t, drinks, 4)

	agua := f.product(t, "Agua")
	require.NotNil(t, agua.Category)
	assert.Equal(t, "Bebidas", agua.Category.Name)
	assert.True(t, decimal.RequireFromString("1.50").Equal(agua.Price))
}

func TestCatalogCopiesAreIndependent(t *testing.T) {
	f := setup(t)

	cats := f.catalog.Categories()
	cats[0].Name = "changed"
	assert.NotEqual(t, "changed", f.catalog.Categories()[0].Name)
}

func TestCatalogFollowsOtherWriters(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.catalog.Start(ctx, f.bus))

	// Written through the repository, as another instance would.
	tbl := models.Table{Number: 42, Active: true}
	require.NoError(t, f.repos.Tables.Create(context.Background(), &tbl))

	require.Eventually(t, func() bool {
		_, ok := f.catalog.Table(tbl.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}
