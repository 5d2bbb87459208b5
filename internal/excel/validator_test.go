package excel

import (
	"testing"

	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func TestValidator(t *testing.T) {
	v := NewValidator([]string{xlsxMIME, "application/vnd.ms-excel"})
	settings := model.DefaultSettings()

	tests := []struct {
		name    string
		meta    UploadMeta
		wantErr bool
	}{
		{"xlsx", UploadMeta{Filename: "report.xlsx", Size: 1024}, false},
		{"upper case extension", UploadMeta{Filename: "old.XLS", Size: 10}, false},
		{"pdf extension", UploadMeta{Filename: "report.pdf", Size: 10}, true},
		{"no file", UploadMeta{Filename: ""}, true},
		{"extension not allowed", UploadMeta{Filename: "report.ods", Size: 10}, true},
		{"too large", UploadMeta{Filename: "big.xlsx", Size: 11 * 1024 * 1024}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.meta, settings)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsValidation(err) {
				t.Errorf("Validate() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestValidateMIME(t *testing.T) {
	v := NewValidator([]string{xlsxMIME, "application/vnd.ms-excel"})

	tests := []struct {
		declared string
		wantErr  bool
	}{
		{xlsxMIME, false},
		{"APPLICATION/VND.MS-EXCEL", false},
		{"application/vnd.ms-excel; charset=binary", false},
		{"application/pdf", true},
		{"", true},
	}

	for _, tt := range tests {
		err := v.ValidateMIME(tt.declared)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateMIME(%q) error = %v, wantErr %v", tt.declared, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrUnsupportedType) {
			t.Errorf("ValidateMIME(%q) error = %v, want ErrUnsupportedType", tt.declared, err)
		}
	}
}
