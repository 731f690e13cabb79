package oeehttp

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	apihttp "oee-backend/internal/api/http"
	"oee-backend/internal/apperr"
	oee "oee-backend/internal/oee/domain"
	"oee-backend/internal/observability/metrics"
)

// ExportXLSX handles GET /oee/history/{objectType}/{objectID}/export.xlsx.
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	objectType, objectID, buckets, err := h.history(r)
	if err != nil {
		metrics.ObserveHistoryExport("xlsx", metrics.ResultError, time.Since(start))
		apihttp.WriteError(w, h.logger, err)
		return
	}

	payload, err := BuildHistoryXLSX(objectType, objectID, buckets)
	if err != nil {
		metrics.ObserveHistoryExport("xlsx", metrics.ResultError, time.Since(start))
		apihttp.WriteError(w, h.logger, apperr.Internal("oee http: render xlsx", err))
		return
	}
	metrics.ObserveHistoryExport("xlsx", metrics.ResultSuccess, time.Since(start))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="oee_history_%d_%d.xlsx"`, objectType, objectID))
	_, _ = w.Write(payload)
}

// ExportPDF handles GET /oee/history/{objectType}/{objectID}/export.pdf.
func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	objectType, objectID, buckets, err := h.history(r)
	if err != nil {
		metrics.ObserveHistoryExport("pdf", metrics.ResultError, time.Since(start))
		apihttp.WriteError(w, h.logger, err)
		return
	}

	payload, err := BuildHistoryPDF(objectType, objectID, buckets)
	if err != nil {
		metrics.ObserveHistoryExport("pdf", metrics.ResultError, time.Since(start))
		apihttp.WriteError(w, h.logger, apperr.Internal("oee http: render pdf", err))
		return
	}
	metrics.ObserveHistoryExport("pdf", metrics.ResultSuccess, time.Since(start))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="oee_history_%d_%d.pdf"`, objectType, objectID))
	_, _ = w.Write(payload)
}

// BuildHistoryXLSX renders the daily buckets as a spreadsheet.
func BuildHistoryXLSX(objectType int, objectID int64, buckets []oee.Bucket) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "history"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "OEE Daily History")
	_ = f.SetCellValue(sheet, "A2", "Object Type")
	_ = f.SetCellValue(sheet, "B2", objectType)
	_ = f.SetCellValue(sheet, "A3", "Object ID")
	_ = f.SetCellValue(sheet, "B3", objectID)

	headers := []string{
		"Day", "Avg Availability", "Avg Performance", "Avg Quality", "Avg OEE",
		"Good Count", "Total Count", "Run Time", "Total Time", "Target Count", "Samples",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 5)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, b := range buckets {
		row := i + 6
		values := []any{
			b.Day.Format("2006-01-02"),
			b.AvgAvailability, b.AvgPerformance, b.AvgQuality, b.AvgOee,
			b.SumGoodCount, b.SumTotalCount, b.SumRunTime, b.SumTotalTime, b.SumTargetCount,
			b.SampleCount,
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildHistoryPDF renders the daily buckets as a landscape table.
func BuildHistoryPDF(objectType int, objectID int64, buckets []oee.Bucket) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "OEE Daily History")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Object Type: %d", objectType))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Object ID: %d", objectID))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(24, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(26, 6, "Availability", "1", 0, "C", false, 0, "")
	pdf.CellFormat(26, 6, "Performance", "1", 0, "C", false, 0, "")
	pdf.CellFormat(26, 6, "Quality", "1", 0, "C", false, 0, "")
	pdf.CellFormat(26, 6, "OEE", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Good", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Run Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Total Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Target", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Samples", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, b := range buckets {
		pdf.CellFormat(24, 6, b.Day.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(26, 6, fmt.Sprintf("%.4f", b.AvgAvailability), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 6, fmt.Sprintf("%.4f", b.AvgPerformance), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 6, fmt.Sprintf("%.4f", b.AvgQuality), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 6, fmt.Sprintf("%.4f", b.AvgOee), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, fmt.Sprintf("%.1f", b.SumGoodCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, fmt.Sprintf("%.1f", b.SumTotalCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, fmt.Sprintf("%.1f", b.SumRunTime), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, fmt.Sprintf("%.1f", b.SumTotalTime), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, fmt.Sprintf("%.1f", b.SumTargetCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", b.SampleCount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
