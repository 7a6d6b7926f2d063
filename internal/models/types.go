package models

import (
	"math"
	"time"
)

// Common constants
const (
	// Products below this quantity are reported as low stock
	DefaultLowStockThreshold = 10.0

	// Number of sales shown in the recent activity list
	RecentActivityLimit = 10

	// Default and maximum window for the daily sales report
	DefaultReportDays = 7
	MaxReportDays     = 90

	// Label used when a sale references a product that no longer exists
	UnknownProductLabel = "Unknown"

	// Calendar date layout used by harvest, expiry and sale dates
	DateLayout = "2006-01-02"
)

// DashboardSummary represents aggregated inventory and sales figures
type DashboardSummary struct {
	TotalProducts   int          `json:"totalProducts"`
	LowStockCount   int          `json:"lowStockCount"`
	OutOfStockCount int          `json:"outOfStockCount"`
	ExpiredCount    int          `json:"expiredCount"`
	PendingAudits   int          `json:"pendingAudits"`
	TodaySales      float64      `json:"todaySales"`
	TodaySaleCount  int          `json:"todaySaleCount"`
	InventoryWeight float64      `json:"inventoryWeight"`
	InventoryValue  float64      `json:"inventoryValue"`
	RecentActivity  []RecentSale `json:"recentActivity"`
	GeneratedAt     time.Time    `json:"generatedAt"`
}

// RecentSale represents a sale in the recent activity list
type RecentSale struct {
	SaleID      string  `json:"saleId"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    float64 `json:"quantity"`
	TotalAmount float64 `json:"totalAmount"`
	SaleDate    string  `json:"saleDate"`
}

// DailySales represents the sales total for one calendar day
type DailySales struct {
	Date        string  `json:"date"`
	SaleCount   int     `json:"saleCount"`
	Quantity    float64 `json:"quantity"`
	TotalAmount float64 `json:"totalAmount"`
}

// APIError represents an API error response
type APIError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	return ve.Message
}

// HealthCheck represents system health status
type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
}

// ParseCalendarDate parses a date or RFC 3339 timestamp string
func ParseCalendarDate(value string) (time.Time, bool) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// nextTimestamp returns the current time, nudged past prev when the clock has not advanced
func nextTimestamp(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// roundToTwoDecimals rounds a float64 to 2 decimal places
func roundToTwoDecimals(value float64) float64 {
	return math.Round(value*100) / 100
}
