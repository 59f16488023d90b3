package testkit

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	_ "github.com/Artssj1234/mesa-y-pedidos-app/database/migrations"
	"github.com/Artssj1234/mesa-y-pedidos-app/database/seeders"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/database"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/migration"
)

var dbSeq atomic.Int64

// DB opens a private in-memory sqlite database with every migration applied.
// It is closed when the test ends.
func DB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:mesa_test_%d?mode=memory&cache=shared", dbSeq.Add(1))

	db, err := database.Connect(context.Background(), "sqlite", dsn)
	require.NoError(t, err, "open test database")
	t.Cleanup(func() { _ = database.Close(db) })

	_, err = migration.New(db, nil).Run()
	require.NoError(t, err, "migrate test database")
	return db
}

// Seeded is DB plus the demo restaurant: the menu, tables 1-6 with table 5
// out of service, two waiters (1234, 5678) and the kitchen (9999).
func Seeded(t testing.TB) *gorm.DB {
	t.Helper()
	db := DB(t)
	require.NoError(t, seeders.RunAll(context.Background(), db, nil), "seed test database")
	return db
}
