package excel

import (
	"reflect"
	"testing"

	"excel-insights-api/internal/model"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		name   string
		sample []model.CellValue
		want   model.ColumnType
	}{
		{"all null", []model.CellValue{model.Null(), model.Null()}, model.ColumnUnknown},
		{"integers", []model.CellValue{model.Number(30), model.Number(25)}, model.ColumnNumber},
		{"date serials stay numbers", []model.CellValue{model.Number(45292), model.Number(45293)}, model.ColumnNumber},
		{"iso dates", []model.CellValue{model.Text("2024-01-15"), model.Text("2024-02-01")}, model.ColumnDate},
		{"timestamps", []model.CellValue{model.Text("2024-01-15 10:30:00"), model.Text("2024-01-16T08:00:00Z")}, model.ColumnDate},
		{"booleans", []model.CellValue{model.Boolean(true), model.Boolean(false)}, model.ColumnBoolean},
		{"names", []model.CellValue{model.Text("Alice"), model.Text("Bob")}, model.ColumnString},
		{"numbers with a gap", []model.CellValue{model.Number(1), model.Null()}, model.ColumnString},
		{"number and date string", []model.CellValue{model.Number(1), model.Text("2024-01-15")}, model.ColumnString},
		{"blank text is not null", []model.CellValue{model.Text("")}, model.ColumnString},
		{"month name is not a date", []model.CellValue{model.Text("March")}, model.ColumnString},
		{"booleans and numbers", []model.CellValue{model.Boolean(true), model.Number(1)}, model.ColumnString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferType(tt.sample); got != tt.want {
				t.Errorf("InferType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectColumnTypes_SamplesFirstFiveRows(t *testing.T) {
	headers := []string{"Score"}
	rows := [][]model.CellValue{
		{model.Number(1)}, {model.Number(2)}, {model.Number(3)},
		{model.Number(4)}, {model.Number(5)}, {model.Text("n/a")},
	}

	got := DetectColumnTypes(headers, rows)
	if got["Score"] != model.ColumnNumber {
		t.Errorf("Score = %q, want number: values past the sample must be ignored", got["Score"])
	}
}

func TestDetectColumnTypes_ShortRowsAreNull(t *testing.T) {
	headers := []string{"A", "B"}
	rows := [][]model.CellValue{{model.Number(1)}, {model.Number(2)}}

	got := DetectColumnTypes(headers, rows)
	want := map[string]model.ColumnType{"A": model.ColumnNumber, "B": model.ColumnUnknown}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DetectColumnTypes() = %v, want %v", got, want)
	}
}

func TestDetectColumnTypes_NoRows(t *testing.T) {
	got := DetectColumnTypes([]string{"A", "B"}, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("DetectColumnTypes() = %#v, want empty non-nil map", got)
	}
}
