// Package xlsx writes spreadsheet exports.
package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RegisterRow is one bill in the monthly register. Amounts are preformatted.
type RegisterRow struct {
	BillID        string
	Mohalla       string
	HouseNumber   string
	OwnerName     string
	Status        string
	BilledEnergy  string
	Bill1Standard string
	Bill2Standard string
	TotalStandard string
	TotalPenalty  string
	AmountPaid    string
	Outstanding   string
	DueDate       string
}

var registerHeader = []any{
	"Bill", "Mohalla", "House", "Owner", "Status", "Billed energy",
	"Bill 1", "Bill 2", "Total", "Total after due date", "Paid", "Outstanding", "Due date",
}

// BuildBillRegister renders the bill register of period as an XLSX workbook.
func BuildBillRegister(period string, rows []RegisterRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "register"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(sheet, "A1", "Bill register")
	_ = f.SetCellValue(sheet, "B1", period)
	if err := f.SetSheetRow(sheet, "A3", &registerHeader); err != nil {
		return nil, err
	}
	for i, row := range rows {
		values := []any{
			row.BillID, row.Mohalla, row.HouseNumber, row.OwnerName, row.Status, row.BilledEnergy,
			row.Bill1Standard, row.Bill2Standard, row.TotalStandard, row.TotalPenalty,
			row.AmountPaid, row.Outstanding, row.DueDate,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+4), &values); err != nil {
			return nil, err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A3", "M3", style)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
