package excel

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Normalizer converts uploaded workbook bytes into the normalized model.
// It keeps no state between calls and is safe for concurrent use.
type Normalizer struct {
	strategies map[Format]ParsingStrategy
	log        zerolog.Logger
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		strategies: map[Format]ParsingStrategy{
			FormatOOXML:  NewExcelStrategy(),
			FormatLegacy: NewLegacyStrategy(),
			FormatCSV:    NewCSVStrategy(),
		},
		log: logger.Component("normalizer"),
	}
}

// Normalize detects the container format and normalizes every sheet.
// Unrecognized input fails with a ParseError and no partial result.
func (n *Normalizer) Normalize(ctx context.Context, data []byte) (model.NormalizedWorkbook, error) {
	return n.NormalizeAs(ctx, data, Sniff(data))
}

// NormalizeAs normalizes data with the strategy for format. Passing
// FormatCSV is the only way to read CSV input, which has no signature.
func (n *Normalizer) NormalizeAs(ctx context.Context, data []byte, format Format) (model.NormalizedWorkbook, error) {
	strategy, ok := n.strategies[format]
	if !ok {
		return nil, errors.ParseError{Err: errors.ErrInvalidFileFormat}
	}

	wb, err := strategy.Normalize(ctx, data)
	if err != nil {
		n.log.Debug().Err(err).Str("format", string(format)).Int("bytes", len(data)).Msg("Normalization failed")
		return nil, err
	}

	n.log.Debug().
		Str("format", string(format)).
		Int("sheets", len(wb)).
		Int("rows", wb.TotalRows()).
		Msg("Workbook normalized")
	return wb, nil
}

func normalizeOOXML(ctx context.Context, data []byte) (model.NormalizedWorkbook, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.ParseError{Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseError{Err: errors.ErrInvalidFileFormat}
	}

	wb := make(model.NormalizedWorkbook, len(sheets))
	for idx, name := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		grid, err := readSheet(file, name)
		if err != nil {
			return nil, errors.ParseError{Err: fmt.Errorf("read sheet %q: %w", name, err)}
		}
		wb[name] = buildSheet(idx, grid)
	}

	return wb, nil
}

// readSheet returns the raw cell grid of a sheet. Cell values are taken
// unformatted so numbers keep their stored value; dates stored as serials
// stay numbers. GetRows drops cells whose value is empty, so every position
// up to the widest row is typed to keep explicit empty strings apart from
// missing cells.
func readSheet(file *excelize.File, sheet string) ([][]model.CellValue, error) {
	rows, err := file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	grid := make([][]model.CellValue, len(rows))
	for r, row := range rows {
		cells := make([]model.CellValue, width)
		for c := 0; c < width; c++ {
			var raw string
			if c < len(row) {
				raw = row[c]
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			cellType, err := file.GetCellType(sheet, ref)
			if err != nil {
				return nil, err
			}
			cells[c] = convertCell(cellType, raw)
		}
		grid[r] = trimTrailingNulls(cells)
	}
	return grid, nil
}

// convertCell types one raw value. String cells keep their text even when
// empty; any other cell without a value is null.
func convertCell(cellType excelize.CellType, raw string) model.CellValue {
	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return model.Text(raw)
	}
	if raw == "" {
		return model.Null()
	}

	switch cellType {
	case excelize.CellTypeBool:
		switch strings.ToUpper(raw) {
		case "1", "TRUE":
			return model.Boolean(true)
		case "0", "FALSE":
			return model.Boolean(false)
		}
		return model.Text(raw)
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, ok := parseNumber(raw); ok {
			return model.Number(f)
		}
		return model.Text(raw)
	default:
		return model.Text(raw)
	}
}

func trimTrailingNulls(cells []model.CellValue) []model.CellValue {
	end := len(cells)
	for end > 0 && cells[end-1].IsNull() {
		end--
	}
	return cells[:end]
}

// parseNumber rejects NaN and infinities, which have no JSON encoding.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// buildSheet splits a grid into headers and data rows and attaches the
// inferred column types.
func buildSheet(index int, grid [][]model.CellValue) model.NormalizedSheet {
	sheet := model.NormalizedSheet{
		Index:   index,
		Headers: []string{},
		Rows:    [][]model.CellValue{},
	}

	if len(grid) > 0 {
		for _, cell := range grid[0] {
			sheet.Headers = append(sheet.Headers, cell.String())
		}
		sheet.Rows = append(sheet.Rows, grid[1:]...)
	}

	sheet.ColumnTypes = DetectColumnTypes(sheet.Headers, sheet.Rows)
	return sheet
}
