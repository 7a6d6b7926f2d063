// Package export renders inventory records as CSV, XLSX or printable HTML.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cannabistrack-api/internal/models"
)

// Format identifies an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

// ParseFormat converts a query value to a Format, defaulting to CSV
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatHTML, "pdf":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", value)
	}
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Table is a titled grid of string cells
type Table struct {
	Name    string
	Title   string
	Headers []string
	Rows    [][]string
}

// Filename returns the download name, e.g. products_2024-03-01.csv
func (t *Table) Filename(f Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", t.Name, now.Format(models.DateLayout), f)
}

// Render writes the table in the requested format
func Render(w io.Writer, t *Table, f Format, now time.Time) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatHTML:
		return WriteHTML(w, t, now)
	default:
		return fmt.Errorf("unsupported export format: %s", f)
	}
}

// ProductsTable lays out products using their wire field names as headers
func ProductsTable(products []*models.Product) *Table {
	t := &Table{
		Name:  "products",
		Title: "Products Report",
		Headers: []string{
			"id", "strainName", "batchNumber", "productType", "thcLevel", "cbdLevel",
			"quantity", "unitPrice", "harvestDate", "expiryDate", "supplier", "storageLocation",
			"createdAt", "updatedAt",
		},
	}
	for _, p := range products {
		t.Rows = append(t.Rows, []string{
			p.ID, p.StrainName, p.BatchNumber, string(p.ProductType),
			formatNumber(p.THCLevel), formatNumber(p.CBDLevel),
			formatNumber(p.Quantity), formatNumber(p.UnitPrice),
			p.HarvestDate, p.ExpiryDate, p.GetSupplier(), p.GetStorageLocation(),
			formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		})
	}
	return t
}

// SalesTable lays out sales; productNames maps product IDs to strain names
func SalesTable(sales []*models.Sale, productNames map[string]string) *Table {
	t := &Table{
		Name:  "sales",
		Title: "Sales Report",
		Headers: []string{
			"id", "productId", "strainName", "quantity", "unitPrice", "totalAmount",
			"batchNumber", "customerInfo", "saleDate", "createdAt",
		},
	}
	for _, s := range sales {
		name, ok := productNames[s.ProductID]
		if !ok {
			name = models.UnknownProductLabel
		}
		t.Rows = append(t.Rows, []string{
			s.ID, s.ProductID, name,
			formatNumber(s.Quantity), formatNumber(s.UnitPrice), formatNumber(s.TotalAmount),
			s.BatchNumber, s.GetCustomerInfo(), s.SaleDate, formatTime(s.CreatedAt),
		})
	}
	return t
}

// AuditsTable lays out audits with the discrepancy count
func AuditsTable(audits []*models.Audit) *Table {
	t := &Table{
		Name:  "audits",
		Title: "Audits Report",
		Headers: []string{
			"id", "auditType", "auditorName", "status", "startDate", "endDate",
			"notes", "discrepancies", "createdAt",
		},
	}
	for _, a := range audits {
		t.Rows = append(t.Rows, []string{
			a.ID, string(a.AuditType), a.AuditorName, string(a.Status), a.StartDate,
			deref(a.EndDate), deref(a.Notes), strconv.Itoa(len(a.Discrepancies)),
			formatTime(a.CreatedAt),
		})
	}
	return t
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
