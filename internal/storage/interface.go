package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"excel-insights-api/internal/config"
)

// ErrObjectNotFound is returned by Download and Delete when no object is
// stored under the key.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey rejects keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// Storage holds uploaded workbook binaries keyed by their stored name.
type Storage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data io.ReadSeeker) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the driver named by storage.driver.
func New(cfg *config.Config) (Storage, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return NewS3Storage(cfg)
	case "local":
		return NewLocalStorage(cfg.Storage.Local.Dir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

var spreadsheetTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
}

// ContentType guesses the media type of a stored object from its key.
func ContentType(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	if t, ok := spreadsheetTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
