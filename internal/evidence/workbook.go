package evidence

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"evidence-stamp/internal/domain/entity"
)

const (
	workbookSheet     = "証拠一覧"
	workbookHeaderRow = 4
)

var workbookHeaders = []string{
	"号証",
	"標目",
	"原本・写しの別",
	"作成年月日",
	"作成者",
	"立証趣旨",
	"備考",
}

// BuildWorkbook renders the evidence list as an XLSX workbook: a title block
// with the header fields followed by one row per entry.
func BuildWorkbook(entries []entity.IndexEntry, ictx entity.IndexContext) ([]byte, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	f := excelize.NewFile()
	defer f.Close()

	if index, _ := f.GetSheetIndex(workbookSheet); index == -1 {
		if _, err := f.NewSheet(workbookSheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(workbookSheet)
	f.SetActiveSheet(activeIndex)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	set := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(workbookSheet, cell, v)
	}

	set(1, 1, ictx.BundleTitle)
	set(1, 2, ictx.CaseName)
	set(3, 2, ictx.Court)
	set(5, 2, ictx.SubmittedDate)
	if ictx.First != "" {
		set(1, 3, fmt.Sprintf("%s ～ %s", ictx.First, ictx.Last))
	}

	for i, h := range workbookHeaders {
		set(i+1, workbookHeaderRow, h)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(workbookSheet, "A1", "A1", bold)
		_ = f.SetCellStyle(workbookSheet, "A4", "G4", bold)
	}

	row := workbookHeaderRow + 1
	for _, e := range entries {
		set(1, row, e.No)
		set(2, row, e.Caption)
		set(3, row, e.Copy)
		set(4, row, e.Created)
		set(5, row, e.Author)
		set(6, row, e.Purpose)
		set(7, row, e.Note)
		row++
	}

	_ = f.SetColWidth(workbookSheet, "A", "A", 18) // number
	_ = f.SetColWidth(workbookSheet, "B", "B", 40) // caption
	_ = f.SetColWidth(workbookSheet, "C", "E", 14)
	_ = f.SetColWidth(workbookSheet, "F", "F", 48) // purpose
	_ = f.SetColWidth(workbookSheet, "G", "G", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
