package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditType represents the kind of compliance audit
type AuditType string

const (
	AuditTypeMonthly    AuditType = "monthly"
	AuditTypeSpot       AuditType = "spot"
	AuditTypeCompliance AuditType = "compliance"
)

// AuditStatus represents the lifecycle state of an audit
type AuditStatus string

const (
	AuditStatusPending    AuditStatus = "pending"
	AuditStatusInProgress AuditStatus = "in-progress"
	AuditStatusCompleted  AuditStatus = "completed"
	AuditStatusFailed     AuditStatus = "failed"
)

var (
	// AuditTypes lists the accepted audit types
	AuditTypes = []string{string(AuditTypeMonthly), string(AuditTypeSpot), string(AuditTypeCompliance)}

	// AuditStatuses lists the accepted audit statuses
	AuditStatuses = []string{
		string(AuditStatusPending),
		string(AuditStatusInProgress),
		string(AuditStatusCompleted),
		string(AuditStatusFailed),
	}
)

// Discrepancy records a mismatch between expected and counted stock.
// It is advisory and never adjusts product quantities.
type Discrepancy struct {
	ProductID        string  `json:"productId" validate:"required"`
	ExpectedQuantity float64 `json:"expectedQuantity"`
	ActualQuantity   float64 `json:"actualQuantity"`
	Difference       float64 `json:"difference"`
}

// NewDiscrepancy creates a discrepancy with the difference computed as actual minus expected
func NewDiscrepancy(productID string, expected, actual float64) Discrepancy {
	return Discrepancy{
		ProductID:        productID,
		ExpectedQuantity: expected,
		ActualQuantity:   actual,
		Difference:       roundToTwoDecimals(actual - expected),
	}
}

// Audit represents a compliance audit of the inventory
type Audit struct {
	ID            string        `json:"id" validate:"required"`
	AuditType     AuditType     `json:"auditType" validate:"required,oneof=monthly spot compliance"`
	AuditorName   string        `json:"auditorName" validate:"required"`
	Status        AuditStatus   `json:"status" validate:"required,oneof=pending in-progress completed failed"`
	StartDate     string        `json:"startDate" validate:"required"`
	EndDate       *string       `json:"endDate,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// NewAudit creates a new pending audit with generated ID and creation timestamp
func NewAudit(auditType AuditType, auditorName, startDate string) *Audit {
	return &Audit{
		ID:            uuid.New().String(),
		AuditType:     auditType,
		AuditorName:   auditorName,
		Status:        AuditStatusPending,
		StartDate:     startDate,
		Discrepancies: []Discrepancy{},
		CreatedAt:     time.Now().UTC(),
	}
}

// Validate validates the audit data
func (a *Audit) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("audit ID is required")
	}
	if err := ValidateEnum(string(a.AuditType), AuditTypes, "auditType"); err != nil {
		return err
	}
	if err := ValidateRequired(a.AuditorName, "auditorName"); err != nil {
		return err
	}
	if err := ValidateEnum(string(a.Status), AuditStatuses, "status"); err != nil {
		return err
	}
	if err := ValidateRequired(a.StartDate, "startDate"); err != nil {
		return err
	}
	for i, d := range a.Discrepancies {
		if err := ValidateRequired(d.ProductID, fmt.Sprintf("discrepancies[%d].productId", i)); err != nil {
			return err
		}
	}
	return nil
}

// IsPending returns true if the audit has not started
func (a *Audit) IsPending() bool {
	return a.Status == AuditStatusPending
}

// Clone returns a deep copy of the audit
func (a *Audit) Clone() *Audit {
	c := *a
	c.EndDate = cloneString(a.EndDate)
	c.Notes = cloneString(a.Notes)
	c.Discrepancies = make([]Discrepancy, len(a.Discrepancies))
	copy(c.Discrepancies, a.Discrepancies)
	return &c
}
