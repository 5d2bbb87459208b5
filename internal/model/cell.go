package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type CellKind uint8

const (
	CellNull CellKind = iota
	CellNumber
	CellText
	CellBoolean
)

func (k CellKind) String() string {
	switch k {
	case CellNumber:
		return "number"
	case CellText:
		return "text"
	case CellBoolean:
		return "boolean"
	default:
		return "null"
	}
}

// CellValue is a single spreadsheet cell. Exactly one of Num, Text or Bool
// is meaningful, selected by Kind.
type CellValue struct {
	Kind CellKind
	Num  float64
	Text string
	Bool bool
}

func Null() CellValue               { return CellValue{} }
func Number(v float64) CellValue    { return CellValue{Kind: CellNumber, Num: v} }
func Text(v string) CellValue       { return CellValue{Kind: CellText, Text: v} }
func Boolean(v bool) CellValue      { return CellValue{Kind: CellBoolean, Bool: v} }
func (c CellValue) IsNull() bool    { return c.Kind == CellNull }
func (c CellValue) IsNumber() bool  { return c.Kind == CellNumber }
func (c CellValue) IsText() bool    { return c.Kind == CellText }
func (c CellValue) IsBoolean() bool { return c.Kind == CellBoolean }

// String renders the cell the way it would appear in a header or CSV field.
func (c CellValue) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellText:
		return c.Text
	case CellBoolean:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

func (c CellValue) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellNumber:
		return json.Marshal(c.Num)
	case CellText:
		return json.Marshal(c.Text)
	case CellBoolean:
		return json.Marshal(c.Bool)
	default:
		return []byte("null"), nil
	}
}

func (c *CellValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Null()
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = Boolean(b)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported cell value %s: %w", data, err)
		}
		*c = Number(n)
	}
	return nil
}
