package model

import "sort"

type ColumnType string

const (
	ColumnNumber  ColumnType = "number"
	ColumnDate    ColumnType = "date"
	ColumnBoolean ColumnType = "boolean"
	ColumnString  ColumnType = "string"
	ColumnUnknown ColumnType = "unknown"
)

// NormalizedSheet is one worksheet split into a header row and data rows.
// ColumnTypes has one entry per distinct header and is empty when Rows is.
type NormalizedSheet struct {
	Index       int                   `json:"index"`
	Headers     []string              `json:"headers"`
	Rows        [][]CellValue         `json:"rows"`
	ColumnTypes map[string]ColumnType `json:"columnTypes"`
}

// NormalizedWorkbook maps sheet names to their normalized content.
type NormalizedWorkbook map[string]NormalizedSheet

// SheetNames returns the sheet names in the order they appear in the
// source workbook.
func (w NormalizedWorkbook) SheetNames() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := w[names[i]], w[names[j]]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return names[i] < names[j]
	})
	return names
}

func (w NormalizedWorkbook) TotalRows() int {
	total := 0
	for _, sheet := range w {
		total += len(sheet.Rows)
	}
	return total
}
