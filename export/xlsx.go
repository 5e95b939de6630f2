package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pollwise/pollwise/survey"
)

const (
	summarySheet = "Summary"
	rowHeight    = 30
)

// writeWorkbook lays an aggregate out as one summary sheet followed by
// a sheet per question, in question order. Every cell is centered and
// wrapped; column widths follow the longest cell in the column.
func writeWorkbook(agg survey.Aggregate, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
	})
	if err != nil {
		return err
	}

	f.SetSheetName("Sheet1", summarySheet)

	rows := [][]string{{"email", "name", "surname", "score"}}
	for _, s := range agg.Summary {
		rows = append(rows, []string{s.Email, s.Name, s.Surname, fmt.Sprint(s.Score)})
	}
	if err := writeSheet(f, summarySheet, rows, style); err != nil {
		return err
	}

	for i, q := range agg.Questions {
		sheet := fmt.Sprintf("Question #%d", i+1)
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}

		header := []string{"email"}
		for col := 1; col <= q.Columns; col++ {
			header = append(header, fmt.Sprintf("Answer %d", col))
		}

		rows := [][]string{{q.Title}, header}
		for _, r := range q.Rows {
			row := append([]string{r.Email}, r.Answers...)
			rows = append(rows, row)
		}
		if err := writeSheet(f, sheet, rows, style); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, sheet string, rows [][]string, style int) error {
	columns := 0
	for _, row := range rows {
		if len(row) > columns {
			columns = len(row)
		}
	}
	if columns == 0 {
		return nil
	}

	widths := make([]int, columns)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		if err := f.SetRowHeight(sheet, i+1, rowHeight); err != nil {
			return err
		}
		for col, text := range row {
			if len(text) > widths[col] {
				widths[col] = len(text)
			}
		}
	}

	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, float64(width+2)); err != nil {
			return err
		}
	}

	last, err := excelize.CoordinatesToCellName(columns, len(rows))
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}
