package excel

import (
	"context"

	"excel-insights-api/internal/model"
)

// ParsingStrategy turns the bytes of one container format into a
// normalized workbook.
type ParsingStrategy interface {
	Normalize(ctx context.Context, data []byte) (model.NormalizedWorkbook, error)
}

type ExcelStrategy struct{}

func NewExcelStrategy() ParsingStrategy {
	return &ExcelStrategy{}
}

func (s *ExcelStrategy) Normalize(ctx context.Context, data []byte) (model.NormalizedWorkbook, error) {
	return normalizeOOXML(ctx, data)
}

type CSVStrategy struct {
	SheetName string
}

func NewCSVStrategy() ParsingStrategy {
	return &CSVStrategy{SheetName: DefaultCSVSheetName}
}

func (s *CSVStrategy) Normalize(ctx context.Context, data []byte) (model.NormalizedWorkbook, error) {
	return normalizeCSV(ctx, data, s.SheetName)
}

// LegacyStrategy reads BIFF8 .xls workbooks stored in an OLE2 container.
type LegacyStrategy struct{}

func NewLegacyStrategy() ParsingStrategy {
	return &LegacyStrategy{}
}

func (s *LegacyStrategy) Normalize(ctx context.Context, data []byte) (model.NormalizedWorkbook, error) {
	return normalizeXLS(ctx, data)
}
