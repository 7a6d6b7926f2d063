// Package inventory holds the arithmetic that keeps a product's on-hand
// quantity in step with the sales recorded against it.
package inventory

import (
	"github.com/shopspring/decimal"

	"cannabistrack-api/internal/models"
)

// Money is kept to two decimal places; quantities to models.QuantityPlaces.
const moneyPlaces = 2

// ApplyNewSale removes a newly recorded sale from the product's stock.
// Stock is not floored at zero; an oversold product goes negative.
func ApplyNewSale(product *models.Product, saleQuantity float64) {
	if product == nil {
		return
	}
	product.Quantity = toQuantity(decimal.NewFromFloat(product.Quantity).
		Sub(decimal.NewFromFloat(saleQuantity)))
}

// ApplySaleEdit reverses the old contribution of an edited sale and applies the new one.
func ApplySaleEdit(product *models.Product, oldQuantity, newQuantity float64) {
	if product == nil {
		return
	}
	product.Quantity = toQuantity(decimal.NewFromFloat(product.Quantity).
		Add(decimal.NewFromFloat(oldQuantity)).
		Sub(decimal.NewFromFloat(newQuantity)))
}

// ReverseSale returns a sale's quantity to the product, used when a sale is moved to another product.
func ReverseSale(product *models.Product, saleQuantity float64) {
	ApplySaleEdit(product, saleQuantity, 0)
}

// SaleDelta returns the stock change an edit from oldQuantity to newQuantity causes.
func SaleDelta(oldQuantity, newQuantity float64) float64 {
	return toQuantity(decimal.NewFromFloat(oldQuantity).Sub(decimal.NewFromFloat(newQuantity)))
}

// LineTotal returns quantity * unitPrice rounded to cents.
func LineTotal(quantity, unitPrice float64) float64 {
	return decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(unitPrice)).
		Round(moneyPlaces).
		InexactFloat64()
}

// SumMoney adds amounts without accumulating float error.
func SumMoney(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(moneyPlaces).InexactFloat64()
}

// SumQuantity adds quantities without accumulating float error.
func SumQuantity(quantities ...float64) float64 {
	total := decimal.Zero
	for _, q := range quantities {
		total = total.Add(decimal.NewFromFloat(q))
	}
	return toQuantity(total)
}

// MoneyEqual reports whether two amounts agree to the cent.
func MoneyEqual(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(moneyPlaces).Equal(decimal.NewFromFloat(b).Round(moneyPlaces))
}

func toQuantity(d decimal.Decimal) float64 {
	return d.Round(models.QuantityPlaces).InexactFloat64()
}
