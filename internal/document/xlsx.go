package document

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/backend-tour/internal/invoice"
)

const (
	invoicesSheet = "Invoices"
	itemsSheet    = "Items"
)

var (
	invoiceHeader = []any{"Reference", "Customer", "Email", "Date", "Due date", "Status", "Subtotal", "Tax", "Total"}
	itemHeader    = []any{"Reference", "Description", "Quantity", "Unit price", "Total"}
)

// InvoicesXLSX exports invoices into a workbook with one summary sheet and
// one sheet of line items.
func (r *Renderer) InvoicesXLSX(invoices []invoice.Invoice) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoicesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, fmt.Errorf("create items sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return nil, fmt.Errorf("create money style: %w", err)
	}

	if err := writeRow(f, invoicesSheet, 1, invoiceHeader); err != nil {
		return nil, err
	}
	if err := writeRow(f, itemsSheet, 1, itemHeader); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(invoicesSheet, "A1", "I1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetCellStyle(itemsSheet, "A1", "E1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	itemRow := 2
	for i, inv := range invoices {
		row := i + 2
		values := []any{
			inv.Reference(),
			inv.CustomerName,
			inv.CustomerEmail,
			inv.Date,
			inv.DueDate,
			string(inv.Status),
			inv.Subtotal.Money().InexactFloat64(),
			inv.Tax.Money().InexactFloat64(),
			inv.Total.Money().InexactFloat64(),
		}
		if err := writeRow(f, invoicesSheet, row, values); err != nil {
			return nil, err
		}
		for _, item := range inv.Items {
			values := []any{
				inv.Reference(),
				item.Description,
				item.Quantity,
				item.UnitPrice.Money().InexactFloat64(),
				item.Total.Money().InexactFloat64(),
			}
			if err := writeRow(f, itemsSheet, itemRow, values); err != nil {
				return nil, err
			}
			itemRow++
		}
	}
	if len(invoices) > 0 {
		if err := f.SetCellStyle(invoicesSheet, "G2", fmt.Sprintf("I%d", len(invoices)+1), money); err != nil {
			return nil, fmt.Errorf("style amounts: %w", err)
		}
	}
	if itemRow > 2 {
		if err := f.SetCellStyle(itemsSheet, "D2", fmt.Sprintf("E%d", itemRow-1), money); err != nil {
			return nil, fmt.Errorf("style amounts: %w", err)
		}
	}
	_ = f.SetColWidth(invoicesSheet, "A", "C", 24)
	_ = f.SetColWidth(itemsSheet, "B", "B", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
