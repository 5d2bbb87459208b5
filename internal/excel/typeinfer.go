package excel

import (
	"strings"
	"unicode"

	"excel-insights-api/internal/model"

	"github.com/araddon/dateparse"
)

// SampleSize is the number of leading data rows inspected per column.
const SampleSize = 5

// InferType guesses a column type from a sample of its values. The rules
// are checked in order and each must hold for every sampled value:
// all null, all numeric, all dates, all booleans. Anything else is a string.
//
// Numbers are tested before dates, so a column of numbers that could also
// be read as date serials is reported as number. Only text cells can be
// dates, which means a column mixing numbers and date strings is a string.
func InferType(sample []model.CellValue) model.ColumnType {
	switch {
	case all(sample, model.CellValue.IsNull):
		return model.ColumnUnknown
	case all(sample, model.CellValue.IsNumber):
		return model.ColumnNumber
	case all(sample, isDate):
		return model.ColumnDate
	case all(sample, model.CellValue.IsBoolean):
		return model.ColumnBoolean
	default:
		return model.ColumnString
	}
}

// DetectColumnTypes maps every header to the type inferred from the first
// SampleSize rows at that header's position. It returns an empty map when
// there are no rows. Duplicate headers keep the type of the last position.
func DetectColumnTypes(headers []string, rows [][]model.CellValue) map[string]model.ColumnType {
	types := make(map[string]model.ColumnType)
	if len(rows) == 0 {
		return types
	}

	n := len(rows)
	if n > SampleSize {
		n = SampleSize
	}

	for idx, header := range headers {
		sample := make([]model.CellValue, n)
		for r := 0; r < n; r++ {
			if idx < len(rows[r]) {
				sample[r] = rows[r][idx]
			}
		}
		types[header] = InferType(sample)
	}
	return types
}

func all(values []model.CellValue, pred func(model.CellValue) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

// isDate accepts text cells that parse as a calendar date or timestamp.
// A bare word such as a month name is not a date; at least one digit is
// required.
func isDate(v model.CellValue) bool {
	if !v.IsText() {
		return false
	}
	s := strings.TrimSpace(v.Text)
	if s == "" || strings.IndexFunc(s, unicode.IsDigit) < 0 {
		return false
	}
	_, err := dateparse.ParseAny(s)
	return err == nil
}
