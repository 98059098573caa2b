package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetClients is the worksheet holding the client report.
const SheetClients = "Clients"

var clientHeader = []interface{}{
	"Client ID", "Client", "Active", "Total Projects", "Active Projects", "Completed Projects", "Total Hours",
}

// RenderWorkbook writes the client report as an XLSX workbook.
func RenderWorkbook(rows []ClientSummary, generatedAt time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetClients); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetClients, "A1", &clientHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(clientHeader), 1)
	if err := f.SetCellStyle(SheetClients, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		active := "No"
		if r.ClientStatus {
			active = "Yes"
		}
		values := []interface{}{
			r.ClientID, r.ClientName, active, r.TotalProjects, r.ActiveProjects, r.CompletedProjects, r.TrackedHours,
		}
		if err := f.SetSheetRow(SheetClients, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	footer, _ := excelize.CoordinatesToCellName(1, len(rows)+3)
	if err := f.SetCellValue(SheetClients, footer, "Generated "+generatedAt.UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("write footer: %w", err)
	}
	_ = f.SetColWidth(SheetClients, "B", "B", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf, nil
}
