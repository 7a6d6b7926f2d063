package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cannabistrack-api/internal/models"
)

func TestApplyNewSale(t *testing.T) {
	product := &models.Product{Quantity: 100}

	ApplyNewSale(product, 30)
	assert.Equal(t, 70.0, product.Quantity)

	ApplyNewSale(product, 80)
	assert.Equal(t, -10.0, product.Quantity, "stock is not floored at zero")
}

func TestApplyNewSale_SumsWithoutDrift(t *testing.T) {
	product := &models.Product{Quantity: 1}
	for i := 0; i < 10; i++ {
		ApplyNewSale(product, 0.1)
	}
	assert.Equal(t, 0.0, product.Quantity)
}

func TestApplySaleEdit(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		oldQty   float64
		newQty   float64
		expected float64
	}{
		{"reduce sale returns stock", 70, 30, 10, 90},
		{"increase sale takes stock", 70, 30, 45, 55},
		{"no-op edit", 70, 30, 30, 70},
		{"fractional grams", 12.5, 0.3, 0.2, 12.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := &models.Product{Quantity: tt.start}
			ApplySaleEdit(product, tt.oldQty, tt.newQty)
			assert.Equal(t, tt.expected, product.Quantity)
		})
	}
}

func TestApplySaleEdit_Repeated(t *testing.T) {
	product := &models.Product{Quantity: 70}
	ApplySaleEdit(product, 30, 30)
	ApplySaleEdit(product, 30, 30)
	assert.Equal(t, 70.0, product.Quantity)
}

func TestReverseSale(t *testing.T) {
	product := &models.Product{Quantity: 40}
	ReverseSale(product, 2.5)
	assert.Equal(t, 42.5, product.Quantity)
}

func TestNilProductIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		ApplyNewSale(nil, 1)
		ApplySaleEdit(nil, 1, 2)
	})
}

func TestMoneyHelpers(t *testing.T) {
	assert.Equal(t, 37.5, LineTotal(3, 12.5))
	assert.Equal(t, 0.35, LineTotal(0.1, 3.5))
	assert.Equal(t, 0.3, SumMoney(0.1, 0.2))
	assert.Equal(t, 0.6, SumQuantity(0.1, 0.2, 0.3))
	assert.Equal(t, -20.0, SaleDelta(10, 30))
	assert.True(t, MoneyEqual(37.5, 37.504))
	assert.False(t, MoneyEqual(37.5, 37.51))
}
