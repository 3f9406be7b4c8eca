package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Attendance"

// RenderXLSX writes m as a single-sheet workbook with the same columns as the PDF.
func RenderXLSX(w io.Writer, m Matrix) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4285F4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	presentStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "22C55E"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	absentStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "EF4444"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	headers := m.Headers()
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headStyle); err != nil {
		return err
	}

	for i, row := range m.Rows {
		r := i + 2
		values := make([]interface{}, 0, len(headers))
		values = append(values, row.Attendee.FullName, string(row.Attendee.Category))
		for j := range m.Sessions {
			values = append(values, row.Cell(j))
		}
		values = append(values, row.Absences)

		start, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return err
		}
		for j := range m.Sessions {
			cell, _ := excelize.CoordinatesToCellName(3+j, r)
			style := absentStyle
			if row.Present[j] {
				style = presentStyle
			}
			if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
				return err
			}
		}
		if row.Absences > 0 {
			cell, _ := excelize.CoordinatesToCellName(len(headers), r)
			if err := f.SetCellStyle(sheetName, cell, cell, absentStyle); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 28); err != nil {
		return err
	}
	return f.Write(w)
}
