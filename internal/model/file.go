package model

import "time"

// FileRecord is one processed upload. Records are never updated; a
// re-upload creates a new record.
type FileRecord struct {
	ID           string             `json:"fileId"`
	OwnerID      string             `json:"-"`
	StoredName   string             `json:"-"`
	OriginalName string             `json:"filename"`
	SizeBytes    int64              `json:"size"`
	Data         NormalizedWorkbook `json:"data"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type FileSummary struct {
	ID        string    `json:"_id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
}

// DashboardStats carries the exact file count plus counters derived from
// it. Every counter named in Estimated is a fixed multiple of
// FilesProcessed, not measured activity.
type DashboardStats struct {
	FilesProcessed int      `json:"filesProcessed"`
	ChartsCreated  int      `json:"chartsCreated"`
	ChartImports   int      `json:"chartImports"`
	Estimated      []string `json:"estimated"`
}
