package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

type ExportService struct {
	ledgerSvc *LedgerService
}

func NewExportService(ledgerSvc *LedgerService) *ExportService {
	return &ExportService{ledgerSvc: ledgerSvc}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ExportCSV renders the ledger of one contract as CSV sections
func (s *ExportService) ExportCSV(ctx context.Context, contractID string, actor Actor) ([]byte, string, error) {
	snap, err := s.ledgerSvc.snapshot(ctx, contractID, actor)
	if err != nil {
		return nil, "", err
	}
	sum := snap.Summary

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	// Header
	_ = writer.Write([]string{"Contract Ledger", sum.Title, sum.GeneratedAt.Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})

	// Summary Section
	_ = writer.Write([]string{"Summary"})
	_ = writer.Write([]string{"Metric", "Value"})
	_ = writer.Write([]string{"Status", sum.Status})
	_ = writer.Write([]string{"Progress", fmt.Sprintf("%.2f%%", sum.Progress)})
	_ = writer.Write([]string{"Contract Value", money(sum.Payments.ContractValue)})
	_ = writer.Write([]string{"Total Paid", money(sum.Payments.TotalPaid)})
	_ = writer.Write([]string{"Remaining", money(sum.Payments.Remaining)})
	_ = writer.Write([]string{"Delivered Quantity", money(sum.DeliveredQuantity)})
	_ = writer.Write([]string{""})

	// Deliveries Section
	_ = writer.Write([]string{"Deliveries"})
	_ = writer.Write([]string{"Date", "Status", "Quantity", "Tracking", "Location", "Notes"})
	for _, d := range snap.Deliveries {
		_ = writer.Write([]string{d.Date.Format("2006-01-02"), d.Status, money(d.Quantity), d.TrackingID, d.Location, d.Notes})
	}
	_ = writer.Write([]string{""})

	// Payments Section
	_ = writer.Write([]string{"Payments"})
	_ = writer.Write([]string{"Date", "Status", "Amount", "Method", "Reference", "Notes"})
	for _, p := range snap.Payments {
		_ = writer.Write([]string{p.Date.Format("2006-01-02"), p.Status, money(p.Amount), p.Method, p.Reference, p.Notes})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ledger_%s_%s.csv", contractID, sum.GeneratedAt.Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportXLSX renders the ledger of one contract as a workbook with a
// summary, a deliveries and a payments sheet
func (s *ExportService) ExportXLSX(ctx context.Context, contractID string, actor Actor) ([]byte, string, error) {
	snap, err := s.ledgerSvc.snapshot(ctx, contractID, actor)
	if err != nil {
		return nil, "", err
	}
	sum := snap.Summary

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Summary"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	_ = f.SetCellValue(sheet, "A1", "Contract Ledger")
	_ = f.SetCellValue(sheet, "B1", sum.Title)
	_ = f.SetCellStyle(sheet, "A1", "B1", headerStyle)

	_ = f.SetCellValue(sheet, "A3", "Metric")
	_ = f.SetCellValue(sheet, "B3", "Value")
	_ = f.SetCellStyle(sheet, "A3", "B3", boldStyle)

	rows := [][]interface{}{
		{"Status", sum.Status},
		{"Progress (%)", sum.Progress},
		{"Contract Value", sum.Payments.ContractValue},
		{"Total Paid", sum.Payments.TotalPaid},
		{"Remaining", sum.Payments.Remaining},
		{"Pending", sum.Payments.PendingAmount},
		{"Overdue", sum.Payments.OverdueAmount},
		{"Delivered Quantity", sum.DeliveredQuantity},
		{"Generated At", sum.GeneratedAt.Format("2006-01-02 15:04")},
	}
	for i, row := range rows {
		_ = f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+4), &row)
	}

	deliveries := "Deliveries"
	if _, err := f.NewSheet(deliveries); err != nil {
		return nil, "", err
	}
	_ = f.SetSheetRow(deliveries, "A1", &[]interface{}{"Date", "Status", "Quantity", "Tracking", "Location", "Notes"})
	_ = f.SetCellStyle(deliveries, "A1", "F1", boldStyle)
	for i, d := range snap.Deliveries {
		_ = f.SetSheetRow(deliveries, fmt.Sprintf("A%d", i+2),
			&[]interface{}{d.Date.Format("2006-01-02"), d.Status, d.Quantity, d.TrackingID, d.Location, d.Notes})
	}

	payments := "Payments"
	if _, err := f.NewSheet(payments); err != nil {
		return nil, "", err
	}
	_ = f.SetSheetRow(payments, "A1", &[]interface{}{"Date", "Status", "Amount", "Method", "Reference", "Notes"})
	_ = f.SetCellStyle(payments, "A1", "F1", boldStyle)
	for i, p := range snap.Payments {
		_ = f.SetSheetRow(payments, fmt.Sprintf("A%d", i+2),
			&[]interface{}{p.Date.Format("2006-01-02"), p.Status, p.Amount, p.Method, p.Reference, p.Notes})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ledger_%s_%s.xlsx", contractID, sum.GeneratedAt.Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
