package excel

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"
)

// UploadMeta describes an upload before its content is read.
type UploadMeta struct {
	Filename string
	Size     int64
}

// Validator rejects uploads that are obviously not spreadsheets before any
// parsing is attempted.
type Validator struct {
	allowedMIME map[string]struct{}
}

func NewValidator(allowedMIMETypes []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedMIMETypes))
	for _, t := range allowedMIMETypes {
		allowed[strings.ToLower(t)] = struct{}{}
	}
	return &Validator{allowedMIME: allowed}
}

// Validate checks the filename and size against the current settings. The
// declared content type is checked by ValidateMIME.
func (v *Validator) Validate(meta UploadMeta, settings model.SystemSettings) error {
	if strings.TrimSpace(meta.Filename) == "" {
		return errors.ValidationError{
			Field:   "file",
			Value:   meta.Filename,
			Message: "no file uploaded",
		}
	}

	ext := strings.ToLower(filepath.Ext(meta.Filename))
	if !settings.AllowsExtension(ext) {
		return errors.ValidationError{
			Field:   "filename",
			Value:   meta.Filename,
			Message: fmt.Sprintf("%s: extension %q is not allowed", errors.ErrUnsupportedType, ext),
		}
	}

	if max := settings.MaxFileSizeBytes(); max > 0 && meta.Size > max {
		return errors.ValidationError{
			Field:   "size",
			Value:   meta.Size,
			Message: fmt.Sprintf("%s (%v MB)", errors.ErrFileTooLarge, settings.MaxFileSizeMB),
		}
	}

	return nil
}

func (v *Validator) ValidateMIME(declared string) error {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mediaType = declared
	}
	if _, ok := v.allowedMIME[strings.ToLower(mediaType)]; !ok {
		return fmt.Errorf("%w: %q. Only Excel files are allowed", errors.ErrUnsupportedType, declared)
	}
	return nil
}
