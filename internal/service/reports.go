package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"vetpos/internal/cache"
	"vetpos/internal/domain"
	"vetpos/internal/store"
)

const maxExportRows = 5000

func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.DailyReport{}, err
	}
	from, to, err := s.dayBounds(date)
	if err != nil {
		return domain.DailyReport{}, err
	}
	sales, _, err := s.repo.ListSales(ctx, store.SaleQuery{From: &from, To: &to})
	if err != nil {
		return domain.DailyReport{}, err
	}

	report := buildDailyReport(sales)
	report.Date = from.In(s.location).Format("2006-01-02")
	return report, nil
}

func buildDailyReport(sales []domain.Sale) domain.DailyReport {
	var report domain.DailyReport
	byPayment := map[domain.PaymentMethod]*domain.DailyReportPayment{}
	for _, sale := range sales {
		switch sale.Status {
		case domain.SaleCancelled:
			report.CancelledSales++
		case domain.SaleCompleted:
			report.CompletedSales++
			report.SubtotalCents += sale.SubtotalCents
			report.TaxCents += sale.TaxCents
			report.DiscountCents += sale.DiscountCents
			report.NetSalesCents += sale.TotalCents
			row, ok := byPayment[sale.PaymentMethod]
			if !ok {
				row = &domain.DailyReportPayment{PaymentMethod: sale.PaymentMethod}
				byPayment[sale.PaymentMethod] = row
			}
			row.Sales++
			row.TotalCents += sale.TotalCents
		}
	}
	report.ByPayment = make([]domain.DailyReportPayment, 0, len(byPayment))
	for _, row := range byPayment {
		report.ByPayment = append(report.ByPayment, *row)
	}
	sort.Slice(report.ByPayment, func(i, j int) bool {
		return report.ByPayment[i].PaymentMethod < report.ByPayment[j].PaymentMethod
	})
	return report
}

// WriteDailyReportCSV renders a daily report as metric,value rows followed by
// one row per payment method.
func WriteDailyReportCSV(w io.Writer, report domain.DailyReport) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"metric", "value"},
		{"date", report.Date},
		{"completed_sales", strconv.FormatInt(report.CompletedSales, 10)},
		{"cancelled_sales", strconv.FormatInt(report.CancelledSales, 10)},
		{"subtotal", money(report.SubtotalCents).StringFixed(2)},
		{"tax", money(report.TaxCents).StringFixed(2)},
		{"discount", money(report.DiscountCents).StringFixed(2)},
		{"net_sales", money(report.NetSalesCents).StringFixed(2)},
	}
	for _, row := range report.ByPayment {
		rows = append(rows, []string{
			"payment_" + string(row.PaymentMethod),
			fmt.Sprintf("%d/%s", row.Sales, money(row.TotalCents).StringFixed(2)),
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// ExportSalesXLSX writes the sales matching filter as a spreadsheet, newest
// first, capped at maxExportRows rows.
func (s *Service) ExportSalesXLSX(ctx context.Context, filter domain.SaleFilter, w io.Writer) error {
	if _, err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	sales, _, err := s.repo.ListSales(ctx, store.SaleQuery{
		From:          filter.From,
		To:            filter.To,
		PaymentMethod: filter.PaymentMethod,
		Status:        filter.Status,
		Limit:         maxExportRows,
	})
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Ventas"
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return err
	}

	header := []interface{}{
		"receipt_number", "created_at", "status", "payment_method",
		"client_id", "pet_id", "items", "subtotal", "tax", "discount", "total", "created_by",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, sale := range sales {
		row := []interface{}{
			sale.ReceiptNumber,
			sale.CreatedAt.In(s.location).Format("2006-01-02 15:04"),
			string(sale.Status),
			string(sale.PaymentMethod),
			derefString(sale.ClientID),
			derefString(sale.PetID),
			len(sale.Items),
			money(sale.SubtotalCents).InexactFloat64(),
			money(sale.TaxCents).InexactFloat64(),
			money(sale.DiscountCents).InexactFloat64(),
			money(sale.TotalCents).InexactFloat64(),
			sale.CreatedBy,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// Dashboard summarises today's activity and open drawers. The result is
// cached until the next write that touches sales, drawers or inventory.
func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	if _, err := s.requireRole(ctx); err != nil {
		return domain.Dashboard{}, err
	}
	from, to, err := s.dayBounds("")
	if err != nil {
		return domain.Dashboard{}, err
	}
	day := from.In(s.location).Format("2006-01-02")

	var cached domain.Dashboard
	hit, version, lookupErr := s.views.Get(ctx, cache.ViewDashboard, day, &cached)
	if lookupErr == nil && hit {
		return cached, nil
	}

	drawers, err := s.openDrawerSummaries(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	sales, _, err := s.repo.ListSales(ctx, store.SaleQuery{From: &from, To: &to})
	if err != nil {
		return domain.Dashboard{}, err
	}
	report := buildDailyReport(sales)

	items, err := s.repo.ListInventoryItems(ctx, store.InventoryQuery{})
	if err != nil {
		return domain.Dashboard{}, err
	}
	now := s.now()
	dash := domain.Dashboard{
		Date:              day,
		OpenDrawers:       drawers,
		SalesToday:        report.CompletedSales,
		RevenueTodayCents: report.NetSalesCents,
		CancelledToday:    report.CancelledSales,
		GeneratedAt:       now.Format(time.RFC3339),
	}
	for _, item := range items {
		switch domain.DeriveInventoryStatus(item, now.In(s.location)) {
		case domain.InventoryLowStock:
			dash.LowStockItems++
		case domain.InventoryOutOfStock:
			dash.OutOfStockItems++
		case domain.InventoryExpired:
			dash.ExpiredItems++
		}
	}

	s.storeView(ctx, cache.ViewDashboard, day, version, lookupErr, dash)
	return dash, nil
}

func money(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
