package orm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/orm"
)

func TestPageNormalize(t *testing.T) {
	p := orm.Page{}.Normalize()
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, orm.DefaultPageSize, p.Size)

	p = orm.Page{Number: 3, Size: 1000}.Normalize()
	assert.Equal(t, orm.MaxPageSize, p.Size)
	assert.Equal(t, 2*orm.MaxPageSize, p.Offset())
}

func TestNewPagination(t *testing.T) {
	pg := orm.NewPagination(orm.Page{Number: 2, Size: 10}, 25)
	assert.Equal(t, 2, pg.Page)
	assert.Equal(t, 3, pg.LastPage)
	assert.Equal(t, int64(25), pg.Total)

	assert.Equal(t, 1, orm.NewPagination(orm.Page{}, 0).LastPage)
}
