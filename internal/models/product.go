package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProductType represents the kind of cannabis product
type ProductType string

const (
	ProductTypeFlower      ProductType = "flower"
	ProductTypeConcentrate ProductType = "concentrate"
	ProductTypeEdible      ProductType = "edible"
	ProductTypeTopical     ProductType = "topical"
	ProductTypeOther       ProductType = "other"
)

// ProductTypes lists the accepted product types in display order
var ProductTypes = []string{
	string(ProductTypeFlower),
	string(ProductTypeConcentrate),
	string(ProductTypeEdible),
	string(ProductTypeTopical),
	string(ProductTypeOther),
}

// Product represents an inventory item tracked by batch
type Product struct {
	ID              string      `json:"id" validate:"required"`
	StrainName      string      `json:"strainName" validate:"required,min=1,max=255"`
	BatchNumber     string      `json:"batchNumber" validate:"required,min=1,max=100"`
	ProductType     ProductType `json:"productType" validate:"required,oneof=flower concentrate edible topical other"`
	THCLevel        float64     `json:"thcLevel" validate:"min=0,max=100"`
	CBDLevel        float64     `json:"cbdLevel" validate:"min=0,max=100"`
	Quantity        float64     `json:"quantity"`
	UnitPrice       float64     `json:"unitPrice" validate:"min=0"`
	HarvestDate     string      `json:"harvestDate" validate:"required"`
	ExpiryDate      string      `json:"expiryDate" validate:"required"`
	Supplier        *string     `json:"supplier,omitempty"`
	StorageLocation *string     `json:"storageLocation,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// NewProduct creates a new product with generated ID and timestamps
func NewProduct(strainName, batchNumber string, productType ProductType, quantity, unitPrice float64) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:          uuid.New().String(),
		StrainName:  strainName,
		BatchNumber: batchNumber,
		ProductType: productType,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate validates the product data
func (p *Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product ID is required")
	}
	if err := ValidateRequired(p.StrainName, "strainName"); err != nil {
		return err
	}
	if err := ValidateRequired(p.BatchNumber, "batchNumber"); err != nil {
		return err
	}
	if err := ValidateEnum(string(p.ProductType), ProductTypes, "productType"); err != nil {
		return err
	}
	if err := ValidatePercentage(p.THCLevel, "thcLevel"); err != nil {
		return err
	}
	if err := ValidatePercentage(p.CBDLevel, "cbdLevel"); err != nil {
		return err
	}
	if err := ValidateQuantityPlaces(p.Quantity, "quantity"); err != nil {
		return err
	}
	if err := ValidatePositiveNumber(p.UnitPrice, "unitPrice"); err != nil {
		return err
	}
	return nil
}

// GetSearchableText returns text that can be used for searching
func (p *Product) GetSearchableText() string {
	parts := []string{p.StrainName, p.BatchNumber, string(p.ProductType)}
	if p.Supplier != nil && *p.Supplier != "" {
		parts = append(parts, *p.Supplier)
	}
	return strings.Join(parts, " ")
}

// UpdateTimestamp moves UpdatedAt forward, never backwards or onto the same instant
func (p *Product) UpdateTimestamp() {
	p.UpdatedAt = nextTimestamp(p.UpdatedAt)
}

// IsOutOfStock reports whether nothing is left on hand
func (p *Product) IsOutOfStock() bool {
	return p.Quantity <= 0
}

// IsLowStock reports whether the on-hand quantity is below threshold
func (p *Product) IsLowStock(threshold float64) bool {
	return p.Quantity < threshold
}

// IsExpired reports whether the expiry date lies before now.
// Unparseable dates are treated as not expired.
func (p *Product) IsExpired(now time.Time) bool {
	expiry, ok := ParseCalendarDate(p.ExpiryDate)
	if !ok {
		return false
	}
	return expiry.Before(now)
}

// GetSupplier returns the supplier or empty string if nil
func (p *Product) GetSupplier() string {
	if p.Supplier == nil {
		return ""
	}
	return *p.Supplier
}

// GetStorageLocation returns the storage location or empty string if nil
func (p *Product) GetStorageLocation() string {
	if p.StorageLocation == nil {
		return ""
	}
	return *p.StorageLocation
}

// Clone returns a deep copy of the product
func (p *Product) Clone() *Product {
	c := *p
	c.Supplier = cloneString(p.Supplier)
	c.StorageLocation = cloneString(p.StorageLocation)
	return &c
}
