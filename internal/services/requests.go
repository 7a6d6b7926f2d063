package services

import (
	"fmt"
	"strings"

	"cannabistrack-api/internal/inventory"
	"cannabistrack-api/internal/models"
)

var requestValidator = newValidator()

// ValidateRequest checks req against its validate tags.
// A nil request or a failing field yields a *ValidationError carrying message.
func ValidateRequest(message string, req interface{}) error {
	if req == nil {
		return newValidationError(message, fmt.Errorf("request body is required"))
	}
	if err := requestValidator.Struct(req); err != nil {
		return newValidationError(message, err)
	}
	return nil
}

// NewProduct builds a product with a fresh ID from the request
func (r *CreateProductRequest) NewProduct() *models.Product {
	product := models.NewProduct(
		models.SanitizeString(r.StrainName),
		strings.TrimSpace(r.BatchNumber),
		models.ProductType(r.ProductType),
		r.Quantity,
		r.UnitPrice,
	)
	product.THCLevel = r.THCLevel
	product.CBDLevel = r.CBDLevel
	product.HarvestDate = r.HarvestDate
	product.ExpiryDate = r.ExpiryDate
	product.Supplier = optionalString(r.Supplier)
	product.StorageLocation = optionalString(r.StorageLocation)
	return product
}

// ApplyTo merges the non-nil fields into p
func (r *UpdateProductRequest) ApplyTo(p *models.Product) {
	if r.StrainName != nil {
		p.StrainName = models.SanitizeString(*r.StrainName)
	}
	if r.BatchNumber != nil {
		p.BatchNumber = strings.TrimSpace(*r.BatchNumber)
	}
	if r.ProductType != nil {
		p.ProductType = models.ProductType(*r.ProductType)
	}
	if r.THCLevel != nil {
		p.THCLevel = *r.THCLevel
	}
	if r.CBDLevel != nil {
		p.CBDLevel = *r.CBDLevel
	}
	if r.Quantity != nil {
		p.Quantity = *r.Quantity
	}
	if r.UnitPrice != nil {
		p.UnitPrice = *r.UnitPrice
	}
	if r.HarvestDate != nil {
		p.HarvestDate = *r.HarvestDate
	}
	if r.ExpiryDate != nil {
		p.ExpiryDate = *r.ExpiryDate
	}
	if r.Supplier != nil {
		p.Supplier = optionalString(r.Supplier)
	}
	if r.StorageLocation != nil {
		p.StorageLocation = optionalString(r.StorageLocation)
	}
}

// ProductReplacement returns an update that sets every editable field of p
func ProductReplacement(p *models.Product) *UpdateProductRequest {
	productType := string(p.ProductType)
	return &UpdateProductRequest{
		StrainName:      &p.StrainName,
		BatchNumber:     &p.BatchNumber,
		ProductType:     &productType,
		THCLevel:        &p.THCLevel,
		CBDLevel:        &p.CBDLevel,
		Quantity:        &p.Quantity,
		UnitPrice:       &p.UnitPrice,
		HarvestDate:     &p.HarvestDate,
		ExpiryDate:      &p.ExpiryDate,
		Supplier:        stringValue(p.Supplier),
		StorageLocation: stringValue(p.StorageLocation),
	}
}

// ProductCreation returns the create request that reproduces p
func ProductCreation(p *models.Product) *CreateProductRequest {
	return &CreateProductRequest{
		StrainName:      p.StrainName,
		BatchNumber:     p.BatchNumber,
		ProductType:     string(p.ProductType),
		THCLevel:        p.THCLevel,
		CBDLevel:        p.CBDLevel,
		Quantity:        p.Quantity,
		UnitPrice:       p.UnitPrice,
		HarvestDate:     p.HarvestDate,
		ExpiryDate:      p.ExpiryDate,
		Supplier:        p.Supplier,
		StorageLocation: p.StorageLocation,
	}
}

// NewSale builds a sale with a fresh ID; the total is quantity * unit price
func (r *CreateSaleRequest) NewSale() *models.Sale {
	sale := models.NewSale(strings.TrimSpace(r.ProductID), r.Quantity, r.UnitPrice, r.SaleDate)
	sale.BatchNumber = strings.TrimSpace(r.BatchNumber)
	sale.CustomerInfo = optionalString(r.CustomerInfo)
	sale.TotalAmount = inventory.LineTotal(sale.Quantity, sale.UnitPrice)
	return sale
}

// ApplyTo merges the non-nil fields into s and recomputes the total
func (r *UpdateSaleRequest) ApplyTo(s *models.Sale) {
	if r.ProductID != nil {
		s.ProductID = strings.TrimSpace(*r.ProductID)
	}
	if r.Quantity != nil {
		s.Quantity = *r.Quantity
	}
	if r.UnitPrice != nil {
		s.UnitPrice = *r.UnitPrice
	}
	if r.BatchNumber != nil {
		s.BatchNumber = strings.TrimSpace(*r.BatchNumber)
	}
	if r.CustomerInfo != nil {
		s.CustomerInfo = optionalString(r.CustomerInfo)
	}
	if r.SaleDate != nil {
		s.SaleDate = *r.SaleDate
	}
	s.TotalAmount = inventory.LineTotal(s.Quantity, s.UnitPrice)
}

// SaleCreation returns the create request that reproduces s
func SaleCreation(s *models.Sale) *CreateSaleRequest {
	return &CreateSaleRequest{
		ProductID:    s.ProductID,
		Quantity:     s.Quantity,
		UnitPrice:    s.UnitPrice,
		BatchNumber:  s.BatchNumber,
		CustomerInfo: s.CustomerInfo,
		SaleDate:     s.SaleDate,
	}
}

// SaleReplacement returns an edit that sets every field of s
func SaleReplacement(s *models.Sale) *UpdateSaleRequest {
	return &UpdateSaleRequest{
		ProductID:    &s.ProductID,
		Quantity:     &s.Quantity,
		UnitPrice:    &s.UnitPrice,
		BatchNumber:  &s.BatchNumber,
		CustomerInfo: stringValue(s.CustomerInfo),
		SaleDate:     &s.SaleDate,
	}
}

// NewAudit builds a pending audit with a fresh ID
func (r *CreateAuditRequest) NewAudit() *models.Audit {
	audit := models.NewAudit(models.AuditType(r.AuditType), models.SanitizeString(r.AuditorName), r.StartDate)
	audit.EndDate = optionalString(r.EndDate)
	audit.Notes = optionalString(r.Notes)
	audit.Discrepancies = buildDiscrepancies(r.Discrepancies)
	return audit
}

// ApplyTo merges the non-nil fields into a; a non-nil Discrepancies replaces the list
func (r *UpdateAuditRequest) ApplyTo(a *models.Audit) {
	if r.AuditType != nil {
		a.AuditType = models.AuditType(*r.AuditType)
	}
	if r.AuditorName != nil {
		a.AuditorName = models.SanitizeString(*r.AuditorName)
	}
	if r.Status != nil {
		a.Status = models.AuditStatus(*r.Status)
	}
	if r.StartDate != nil {
		a.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		a.EndDate = optionalString(r.EndDate)
	}
	if r.Notes != nil {
		a.Notes = optionalString(r.Notes)
	}
	if r.Discrepancies != nil {
		a.Discrepancies = buildDiscrepancies(r.Discrepancies)
	}
}

// AuditCreation returns the create request that reproduces a.
// Status is not part of creation; follow with AuditReplacement when it matters.
func AuditCreation(a *models.Audit) *CreateAuditRequest {
	return &CreateAuditRequest{
		AuditType:     string(a.AuditType),
		AuditorName:   a.AuditorName,
		StartDate:     a.StartDate,
		EndDate:       a.EndDate,
		Notes:         a.Notes,
		Discrepancies: discrepancyInputs(a.Discrepancies),
	}
}

// AuditReplacement returns an update that sets every editable field of a
func AuditReplacement(a *models.Audit) *UpdateAuditRequest {
	auditType := string(a.AuditType)
	status := string(a.Status)
	return &UpdateAuditRequest{
		AuditType:     &auditType,
		AuditorName:   &a.AuditorName,
		Status:        &status,
		StartDate:     &a.StartDate,
		EndDate:       stringValue(a.EndDate),
		Notes:         stringValue(a.Notes),
		Discrepancies: discrepancyInputs(a.Discrepancies),
	}
}

// ApplyTo merges the non-nil fields into s
func (r *UpdateSettingsRequest) ApplyTo(s *models.AppSettings) {
	if r.AppName != nil {
		s.AppName = models.SanitizeString(*r.AppName)
	}
	if r.LogoURL != nil {
		s.LogoURL = optionalString(r.LogoURL)
	}
	if r.Theme != nil {
		s.Theme = models.Theme(*r.Theme)
	}
	if r.Language != nil {
		s.Language = models.Language(*r.Language)
	}
}

// SettingsReplacement returns an update that sets every field of s
func SettingsReplacement(s *models.AppSettings) *UpdateSettingsRequest {
	theme := string(s.Theme)
	language := string(s.Language)
	return &UpdateSettingsRequest{
		AppName:  &s.AppName,
		LogoURL:  stringValue(s.LogoURL),
		Theme:    &theme,
		Language: &language,
	}
}

// buildDiscrepancies computes each difference server-side as actual minus expected
func buildDiscrepancies(inputs []DiscrepancyInput) []models.Discrepancy {
	result := make([]models.Discrepancy, 0, len(inputs))
	for _, in := range inputs {
		result = append(result, models.NewDiscrepancy(in.ProductID, in.ExpectedQuantity, in.ActualQuantity))
	}
	return result
}

func discrepancyInputs(discrepancies []models.Discrepancy) []DiscrepancyInput {
	inputs := make([]DiscrepancyInput, 0, len(discrepancies))
	for _, d := range discrepancies {
		inputs = append(inputs, DiscrepancyInput{
			ProductID:        d.ProductID,
			ExpectedQuantity: d.ExpectedQuantity,
			ActualQuantity:   d.ActualQuantity,
		})
	}
	return inputs
}

// stringValue turns an optional field into an explicit value so clearing it survives a round trip
func stringValue(s *string) *string {
	v := ""
	if s != nil {
		v = *s
	}
	return &v
}
