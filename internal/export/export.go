package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the exported track record
const SheetName = "Track record"

// XLSX renders rows as a workbook. The first row is treated as the header
// and set in bold.
func XLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("addressing cell: %w", err)
			}
			if err := f.SetCellStr(SheetName, cell, value); err != nil {
				return nil, fmt.Errorf("writing cell %s: %w", cell, err)
			}
		}
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("creating header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return nil, fmt.Errorf("addressing header: %w", err)
		}
		if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
			return nil, fmt.Errorf("styling header: %w", err)
		}
		if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return nil, fmt.Errorf("freezing header: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
