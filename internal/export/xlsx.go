package export

import (
	"github.com/xuri/excelize/v2"
)

const sheetName = "Test Results"

var headers = []any{"No", "F.I.O (Region)", "Ball"}

func renderXLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}

	center, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	for col, width := range map[string]float64{"A": 5, "B": 40, "C": 10} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, err
		}
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", "C1", header); err != nil {
		return nil, err
	}

	for i, r := range rows {
		line := i + 2
		no, _ := excelize.CoordinatesToCellName(1, line)
		ball, _ := excelize.CoordinatesToCellName(3, line)
		if err := f.SetSheetRow(sheetName, no, &[]any{r.No, r.Name, r.Score}); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, no, no, center); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, ball, ball, center); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
