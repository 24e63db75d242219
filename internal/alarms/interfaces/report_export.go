package interfaces

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	alarms "gridwatch/internal/alarms/domain"
)

type reportSummary struct {
	Total      int
	BySeverity map[string]int
	ByStatus   map[string]int
}

func summarize(list []alarms.Alarm) reportSummary {
	summary := reportSummary{
		BySeverity: make(map[string]int),
		ByStatus:   make(map[string]int),
	}
	for _, alarm := range list {
		summary.Total++
		summary.BySeverity[alarm.Severity]++
		summary.ByStatus[alarm.Status]++
	}
	return summary
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// BuildAlarmReportPDF renders a minimal PDF alarm report.
func BuildAlarmReportPDF(list []alarms.Alarm, generatedAt time.Time) ([]byte, error) {
	summary := summarize(list)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Alarm Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Alarms: %d", summary.Total))
	pdf.Ln(5)
	for _, severity := range sortedKeys(summary.BySeverity) {
		pdf.Cell(0, 6, fmt.Sprintf("Severity %s: %d", severity, summary.BySeverity[severity]))
		pdf.Ln(5)
	}
	for _, status := range sortedKeys(summary.ByStatus) {
		pdf.Cell(0, 6, fmt.Sprintf("Status %s: %d", status, summary.ByStatus[status]))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	// Alarms table
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(32, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(26, 6, "Site", "1", 0, "C", false, 0, "")
	pdf.CellFormat(18, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Category", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 6, "Message", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, alarm := range list {
		pdf.CellFormat(32, 6, alarm.Timestamp.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(26, 6, alarm.Site, "1", 0, "L", false, 0, "")
		pdf.CellFormat(18, 6, alarm.Severity, "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, alarm.Category, "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, alarm.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 6, alarm.Message, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlarmReportXLSX renders a minimal XLSX alarm report.
func BuildAlarmReportXLSX(list []alarms.Alarm, generatedAt time.Time) ([]byte, error) {
	summary := summarize(list)

	f := excelize.NewFile()
	summarySheet := "summary"
	alarmsSheet := "alarms"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(alarmsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Alarm Report")
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", generatedAt.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Total Alarms")
	_ = f.SetCellValue(summarySheet, "B4", summary.Total)
	row := 6
	for _, severity := range sortedKeys(summary.BySeverity) {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Severity "+severity)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), summary.BySeverity[severity])
		row++
	}
	row++
	for _, status := range sortedKeys(summary.ByStatus) {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Status "+status)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), summary.ByStatus[status])
		row++
	}

	_ = f.SetCellValue(alarmsSheet, "A1", "ID")
	_ = f.SetCellValue(alarmsSheet, "B1", "Time")
	_ = f.SetCellValue(alarmsSheet, "C1", "Site")
	_ = f.SetCellValue(alarmsSheet, "D1", "Region")
	_ = f.SetCellValue(alarmsSheet, "E1", "Severity")
	_ = f.SetCellValue(alarmsSheet, "F1", "Category")
	_ = f.SetCellValue(alarmsSheet, "G1", "Status")
	_ = f.SetCellValue(alarmsSheet, "H1", "Message")
	_ = f.SetCellValue(alarmsSheet, "I1", "Rule")
	_ = f.SetCellValue(alarmsSheet, "J1", "Asset")
	for i, alarm := range list {
		rowIdx := i + 2
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("A%d", rowIdx), alarm.ID)
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("B%d", rowIdx), alarm.Timestamp.UTC().Format(time.RFC3339))
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("C%d", rowIdx), alarm.Site)
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("D%d", rowIdx), alarm.Region)
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("E%d", rowIdx), alarm.Severity)
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("F%d", rowIdx), alarm.Category)
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("G%d", rowIdx), alarm.Status)
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("H%d", rowIdx), alarm.Message)
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("I%d", rowIdx), alarm.RuleID)
		_ = f.SetCellValue(alarmsSheet, fmt.Sprintf("J%d", rowIdx), alarm.AssetID)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
