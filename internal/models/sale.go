package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MinSaleQuantity is the smallest quantity a single sale may record
const MinSaleQuantity = 0.1

// Sale represents a recorded sale against a product batch
type Sale struct {
	ID           string    `json:"id" validate:"required"`
	ProductID    string    `json:"productId" validate:"required"`
	Quantity     float64   `json:"quantity" validate:"gt=0"`
	UnitPrice    float64   `json:"unitPrice" validate:"min=0"`
	TotalAmount  float64   `json:"totalAmount" validate:"min=0"`
	BatchNumber  string    `json:"batchNumber"`
	CustomerInfo *string   `json:"customerInfo,omitempty"`
	SaleDate     string    `json:"saleDate" validate:"required"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewSale creates a new sale with generated ID and creation timestamp
func NewSale(productID string, quantity, unitPrice float64, saleDate string) *Sale {
	return &Sale{
		ID:        uuid.New().String(),
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		SaleDate:  saleDate,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate validates the sale data
func (s *Sale) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("sale ID is required")
	}
	if err := ValidateRequired(s.ProductID, "productId"); err != nil {
		return err
	}
	if s.Quantity < MinSaleQuantity {
		return &ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("quantity must be at least %.1f", MinSaleQuantity),
			Value:   s.Quantity,
		}
	}
	if err := ValidateQuantityPlaces(s.Quantity, "quantity"); err != nil {
		return err
	}
	if err := ValidatePositiveNumber(s.UnitPrice, "unitPrice"); err != nil {
		return err
	}
	if err := ValidatePositiveNumber(s.TotalAmount, "totalAmount"); err != nil {
		return err
	}
	return ValidateRequired(s.SaleDate, "saleDate")
}

// GetCustomerInfo returns the customer info or empty string if nil
func (s *Sale) GetCustomerInfo() string {
	if s.CustomerInfo == nil {
		return ""
	}
	return *s.CustomerInfo
}

// Clone returns a deep copy of the sale
func (s *Sale) Clone() *Sale {
	c := *s
	c.CustomerInfo = cloneString(s.CustomerInfo)
	return &c
}
