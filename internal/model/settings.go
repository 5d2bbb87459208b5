package model

import "time"

const (
	DefaultMaxFileSizeMB = 10
)

var DefaultAllowedFileExtensions = []string{".xlsx", ".xls", ".csv"}

type SystemSettings struct {
	MaxFileSizeMB         float64   `json:"maxFileSize"`
	AllowedFileExtensions []string  `json:"allowedFileTypes"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func DefaultSettings() SystemSettings {
	exts := make([]string, len(DefaultAllowedFileExtensions))
	copy(exts, DefaultAllowedFileExtensions)
	return SystemSettings{
		MaxFileSizeMB:         DefaultMaxFileSizeMB,
		AllowedFileExtensions: exts,
	}
}

func (s SystemSettings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB * 1024 * 1024)
}

func (s SystemSettings) AllowsExtension(ext string) bool {
	for _, allowed := range s.AllowedFileExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}
