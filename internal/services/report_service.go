package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"cannabistrack-api/internal/export"
	"cannabistrack-api/internal/inventory"
	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// reportService implements the ReportService interface
type reportService struct {
	repos             repositories.RepositoryManager
	lowStockThreshold float64
	now               func() time.Time
}

// NewReportService creates a new report service instance
func NewReportService(repos repositories.RepositoryManager, lowStockThreshold float64) ReportService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = models.DefaultLowStockThreshold
	}
	return &reportService{
		repos:             repos,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

// GetSummary aggregates the dashboard figures
func (s *reportService) GetSummary(ctx context.Context) (*models.DashboardSummary, error) {
	products, err := s.repos.Products().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	sales, err := s.repos.Sales().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	pending, err := s.repos.Audits().GetByStatus(ctx, models.AuditStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending audits: %w", err)
	}

	now := s.now().UTC()
	summary := &models.DashboardSummary{
		TotalProducts:  len(products),
		PendingAudits:  len(pending),
		RecentActivity: []models.RecentSale{},
		GeneratedAt:    now,
	}

	var weights, values []float64
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.StrainName
		if p.IsLowStock(s.lowStockThreshold) {
			summary.LowStockCount++
		}
		if p.IsOutOfStock() {
			summary.OutOfStockCount++
		}
		if p.IsExpired(now) {
			summary.ExpiredCount++
		}
		if p.Quantity > 0 {
			weights = append(weights, p.Quantity)
			values = append(values, inventory.LineTotal(p.Quantity, p.UnitPrice))
		}
	}
	summary.InventoryWeight = inventory.SumQuantity(weights...)
	summary.InventoryValue = inventory.SumMoney(values...)

	today := now.Format(models.DateLayout)
	var todayTotals []float64
	for _, sale := range sales {
		if saleDay(sale.SaleDate) == today {
			todayTotals = append(todayTotals, sale.TotalAmount)
		}
	}
	summary.TodaySales = inventory.SumMoney(todayTotals...)
	summary.TodaySaleCount = len(todayTotals)

	recent := make([]*models.Sale, len(sales))
	copy(recent, sales)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].SaleDate > recent[j].SaleDate })
	if len(recent) > models.RecentActivityLimit {
		recent = recent[:models.RecentActivityLimit]
	}
	for _, sale := range recent {
		name, ok := names[sale.ProductID]
		if !ok {
			name = models.UnknownProductLabel
		}
		summary.RecentActivity = append(summary.RecentActivity, models.RecentSale{
			SaleID:      sale.ID,
			ProductID:   sale.ProductID,
			ProductName: name,
			Quantity:    sale.Quantity,
			TotalAmount: sale.TotalAmount,
			SaleDate:    sale.SaleDate,
		})
	}

	return summary, nil
}

// GetDailySales returns one entry per day for the last days days, oldest first
func (s *reportService) GetDailySales(ctx context.Context, days int) ([]models.DailySales, error) {
	if days <= 0 {
		days = models.DefaultReportDays
	}
	if days > models.MaxReportDays {
		days = models.MaxReportDays
	}

	sales, err := s.repos.Sales().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	now := s.now().UTC()
	result := make([]models.DailySales, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, i-days+1).Format(models.DateLayout)
		result[i] = models.DailySales{Date: day}
		index[day] = i
	}

	for _, sale := range sales {
		i, ok := index[saleDay(sale.SaleDate)]
		if !ok {
			continue
		}
		result[i].SaleCount++
		result[i].Quantity = inventory.SumQuantity(result[i].Quantity, sale.Quantity)
		result[i].TotalAmount = inventory.SumMoney(result[i].TotalAmount, sale.TotalAmount)
	}

	return result, nil
}

// Export renders one entity collection in the requested format
func (s *reportService) Export(ctx context.Context, entity string, format export.Format) (*ExportResult, error) {
	var table *export.Table

	switch entity {
	case "products":
		products, err := s.repos.Products().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		table = export.ProductsTable(products)
	case "sales":
		sales, err := s.repos.Sales().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sales: %w", err)
		}
		products, err := s.repos.Products().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		names := make(map[string]string, len(products))
		for _, p := range products {
			names[p.ID] = p.StrainName
		}
		table = export.SalesTable(sales, names)
	case "audits":
		audits, err := s.repos.Audits().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list audits: %w", err)
		}
		table = export.AuditsTable(audits)
	default:
		return nil, &ValidationError{
			Message: "Invalid export entity",
			Fields:  map[string]string{"entity": "must be one of: products, sales, audits"},
		}
	}

	now := s.now()
	var buf bytes.Buffer
	if err := export.Render(&buf, table, format, now); err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", entity, err)
	}

	return &ExportResult{
		Filename:    table.Filename(format, now),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// saleDay returns the calendar day of a sale date in DateLayout
func saleDay(saleDate string) string {
	if t, ok := models.ParseCalendarDate(saleDate); ok {
		return t.UTC().Format(models.DateLayout)
	}
	if len(saleDate) >= len(models.DateLayout) {
		return saleDate[:len(models.DateLayout)]
	}
	return saleDate
}
