package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"equipment-tracker/internal/domain"
	"equipment-tracker/internal/repository"
)

const (
	ExportFilename    = "inventory.xlsx"
	ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ExportSheet       = "Inventory"
)

// ExportHeaders is the column order of the inventory spreadsheet.
var ExportHeaders = []any{
	"Name", "Description", "Quantity", "Unit", "Condition",
	"Assigned To", "Location", "Date Issued", "Last Inspected", "Remarks",
}

// Export is a rendered spreadsheet ready to be sent or stored.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService dumps the full equipment table to a spreadsheet.
type ExportService interface {
	ExportAll(ctx context.Context) (*Export, error)
}

type exportService struct {
	items repository.EquipmentRepository
}

func NewExportService(items repository.EquipmentRepository) ExportService {
	return &exportService{items: items}
}

// ExportAll writes every record in storage order; unlike List it neither
// filters nor sorts.
func (s *exportService) ExportAll(ctx context.Context) (*Export, error) {
	items, err := s.items.All(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &ExportHeaders); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(ExportSheet, "A1", "J1", style)
	}

	for i, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		row := exportRow(item)
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(ExportSheet, "A", "A", 25)
	_ = f.SetColWidth(ExportSheet, "B", "B", 40)
	_ = f.SetColWidth(ExportSheet, "F", "G", 20)
	_ = f.SetColWidth(ExportSheet, "H", "I", 15)
	_ = f.SetColWidth(ExportSheet, "J", "J", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write spreadsheet: %w", err)
	}

	return &Export{
		Filename:    ExportFilename,
		ContentType: ExportContentType,
		Data:        buf.Bytes(),
	}, nil
}

func exportRow(item domain.Equipment) []any {
	return []any{
		item.Name,
		deref(item.Description),
		item.Quantity,
		item.Unit,
		item.Condition,
		deref(item.AssignedTo),
		deref(item.Location),
		formatDate(item.DateIssued),
		formatDate(item.LastInspected),
		deref(item.Remarks),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(domain.DateLayout)
}
