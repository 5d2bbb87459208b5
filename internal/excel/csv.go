package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"
)

// DefaultCSVSheetName names the single sheet produced from CSV input.
const DefaultCSVSheetName = "Sheet1"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func normalizeCSV(ctx context.Context, data []byte, sheetName string) (model.NormalizedWorkbook, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var grid [][]model.CellValue
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ParseError{Err: fmt.Errorf("read csv: %w", err)}
		}

		row := make([]model.CellValue, len(record))
		for i, field := range record {
			row[i] = csvCell(field)
		}
		grid = append(grid, row)
	}

	return model.NormalizedWorkbook{sheetName: buildSheet(0, grid)}, nil
}

// csvCell types a CSV field the way a spreadsheet application would on
// import: numbers and TRUE/FALSE are recognized, blanks are empty cells.
func csvCell(field string) model.CellValue {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return model.Null()
	}
	if f, ok := parseNumber(trimmed); ok {
		return model.Number(f)
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return model.Boolean(true)
	case "false":
		return model.Boolean(false)
	}
	return model.Text(field)
}
