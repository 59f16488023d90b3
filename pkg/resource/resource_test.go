package resource_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/resource"
)

type table struct {
	ID     string
	Number int
	secret string
}

var tableResource resource.Transformer[table] = func(t table) resource.Map {
	return resource.Map{"id": t.ID, "number": t.Number}
}

func TestOneAndMany(t *testing.T) {
	one := resource.One(table{ID: "a", Number: 3, secret: "x"}, tableResource)
	assert.Equal(t, resource.Map{"id": "a", "number": 3}, one)

	out, err := json.Marshal(resource.Many([]table(nil), tableResource))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))

	many := resource.Many([]table{{ID: "a"}, {ID: "b"}}, tableResource)
	require.Len(t, many, 2)
	assert.Equal(t, "b", many[1]["id"])
}

func TestWithDoesNotMutate(t *testing.T) {
	base := resource.Map{"id": "a"}
	got := resource.With(base, resource.Map{"label": "listo"})
	assert.Equal(t, "listo", got["label"])
	assert.NotContains(t, base, "label")
}
