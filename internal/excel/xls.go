package excel

import (
	"bytes"
	"context"
	"fmt"

	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"

	"github.com/extrame/xls"
)

// xlsCharset is only consulted for BIFF5 files without a code page record.
const xlsCharset = "utf-8"

// normalizeXLS reads a BIFF8 workbook. The reader renders every cell as
// text, so values are typed the same way as CSV fields.
func normalizeXLS(ctx context.Context, data []byte) (wb model.NormalizedWorkbook, err error) {
	if err := checkCompoundFile(data); err != nil {
		return nil, err
	}

	// The BIFF reader panics on malformed record streams.
	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = errors.ParseError{Err: fmt.Errorf("read legacy workbook: %v: %w", r, errors.ErrInvalidFileFormat)}
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), xlsCharset)
	if err != nil {
		return nil, errors.ParseError{Err: fmt.Errorf("open legacy workbook: %w", err)}
	}
	if book == nil || book.NumSheets() == 0 {
		return nil, errors.ParseError{Err: errors.ErrInvalidFileFormat}
	}

	wb = make(model.NormalizedWorkbook, book.NumSheets())
	for idx := 0; idx < book.NumSheets(); idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sheet := book.GetSheet(idx)
		if sheet == nil {
			return nil, errors.ParseError{Err: fmt.Errorf("read sheet %d: %w", idx, errors.ErrInvalidFileFormat)}
		}
		wb[sheet.Name] = buildSheet(idx, readXLSSheet(sheet))
	}

	return wb, nil
}

// readXLSSheet returns the cell grid of a sheet with trailing empty cells
// and rows removed, matching what excelize reports for OOXML sheets.
func readXLSSheet(sheet *xls.WorkSheet) [][]model.CellValue {
	grid := make([][]model.CellValue, 0, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := xlsRow(sheet, r)
		if row == nil {
			grid = append(grid, []model.CellValue{})
			continue
		}

		cells := make([]model.CellValue, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, csvCell(row.Col(c)))
		}
		grid = append(grid, trimTrailingNulls(cells))
	}

	for len(grid) > 0 && len(grid[len(grid)-1]) == 0 {
		grid = grid[:len(grid)-1]
	}
	return grid
}

// xlsRow returns nil for rows with no records; WorkSheet.Row dereferences
// the missing entry.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
