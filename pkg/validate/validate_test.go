package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/validate"
)

type line struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"   validate:"min=1,max=99"`
}

type orderInput struct {
	TableID      string `json:"table_id"     validate:"required,uuid"`
	Items        []line `json:"items"        validate:"required,min=1,dive"`
	Observations string `json:"observations" validate:"nullable,max=10"`
}

const someID = "0b6f3c2e-4d1a-4b8e-9f3a-2c1d5e6f7a8b"

func TestValidInput(t *testing.T) {
	errs := validate.Struct(orderInput{
		TableID: someID,
		Items:   []line{{ProductID: someID, Quantity: 2}},
	})
	assert.False(t, validate.HasErrors(errs), "%v", errs)
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(orderInput{})
	assert.Contains(t, errs, "table_id")
	assert.Contains(t, errs, "items")
}

func TestDiveReportsIndexedFields(t *testing.T) {
	errs := validate.Struct(&orderInput{
		TableID: someID,
		Items: []line{
			{ProductID: someID, Quantity: 1},
			{ProductID: "nope", Quantity: 0},
		},
	})
	assert.Contains(t, errs, "items[1].product_id")
	assert.Contains(t, errs, "items[1].quantity")
	assert.NotContains(t, errs, "items[0].product_id")
}

func TestNullableSkipsEmpty(t *testing.T) {
	in := orderInput{TableID: someID, Items: []line{{ProductID: someID, Quantity: 1}}}
	assert.Empty(t, validate.Struct(in))

	in.Observations = "far too long for the limit"
	assert.Contains(t, validate.Struct(in), "observations")
}

func TestDigitsRule(t *testing.T) {
	type pin struct {
		PIN string `json:"pin" validate:"required,digits=4"`
	}
	assert.Empty(t, validate.Struct(pin{PIN: "1234"}))
	assert.Contains(t, validate.Struct(pin{PIN: "123"}), "pin")
	assert.Contains(t, validate.Struct(pin{PIN: "12a4"}), "pin")
	assert.Contains(t, validate.Struct(pin{}), "pin")
}

func TestInRule(t *testing.T) {
	type status struct {
		Status string `json:"status" validate:"required,in=pending|preparing|ready"`
	}
	assert.Empty(t, validate.Struct(status{Status: "preparing"}))
	assert.Empty(t, validate.Struct(status{Status: "READY"}))
	assert.Contains(t, validate.Struct(status{Status: "served"}), "status")
}

func TestPointerFields(t *testing.T) {
	type patch struct {
		Name  *string `json:"name"  validate:"nullable,min=2"`
		Price *string `json:"price" validate:"nullable,numeric"`
	}
	short, price, bad := "x", "6,50", "six"

	assert.Empty(t, validate.Struct(patch{}))
	assert.Contains(t, validate.Struct(patch{Name: &short}), "name")
	assert.Empty(t, validate.Struct(patch{Price: &price}))
	assert.Contains(t, validate.Struct(patch{Price: &bad}), "price")
}

func TestNonStructIsIgnored(t *testing.T) {
	assert.Empty(t, validate.Struct(42))
	assert.Empty(t, validate.Struct((*orderInput)(nil)))
}
