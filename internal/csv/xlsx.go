package csv

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"dealercrm/internal/models"
)

const xlsxSheetName = "顧客"

// XLSXRows reads the first worksheet of a workbook. Line numbers are
// spreadsheet row numbers; empty rows are skipped like blank CSV lines.
func XLSXRows(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	var rows []Row
	for i, record := range records {
		if blank(record) {
			continue
		}
		rows = append(rows, Row{Line: i + 1, Fields: record})
	}
	return rows, nil
}

// WriteXLSX writes the same layout as WriteCustomers into a workbook.
func WriteXLSX(w io.Writer, customers []models.Customer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		return f.SetSheetRow(xlsxSheetName, cell, &values)
	}

	if err := write(1, Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, c := range customers {
		if err := write(i+2, CustomerToRow(c)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
